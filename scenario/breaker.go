package scenario

import "time"

// Circuit breaker tuning.
const (
	// breakerThreshold failures within the window open the breaker.
	breakerThreshold = 5

	// breakerWindow is both the failure-counting window and the
	// cool-down after which an open breaker resets.
	breakerWindow = 30 * time.Second
)

// breaker is one per-scenario circuit breaker.
type breaker struct {
	failures    int
	lastFailure time.Time
	open        bool
	openedAt    time.Time
}

// Allowed reports whether the named scenario may attempt work. An open
// breaker blocks attempts until its cool-down elapses, then resets.
func (e *Engine) Allowed(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.breakers[name]
	if !ok {
		return true
	}

	now := e.now()
	if b.open {
		if now.Sub(b.openedAt) < breakerWindow {
			return false
		}
		// Cool-down elapsed without further probes: reset.
		b.open = false
		b.failures = 0
	}
	return true
}

// RecordFailure counts a failure against the named scenario, opening the
// breaker once the threshold is reached within the window.
func (e *Engine) RecordFailure(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.breakers[name]
	if !ok {
		b = &breaker{}
		e.breakers[name] = b
	}

	now := e.now()
	if b.failures > 0 && now.Sub(b.lastFailure) > breakerWindow {
		// Stale failures outside the window do not accumulate.
		b.failures = 0
	}
	b.failures++
	b.lastFailure = now

	if !b.open && b.failures >= breakerThreshold {
		b.open = true
		b.openedAt = now
		if e.logger != nil {
			e.logger.Warn("circuit breaker opened", "scenario", name, "failures", b.failures)
		}
	}
}

// RecordSuccess clears the failure count for the named scenario.
func (e *Engine) RecordSuccess(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.breakers[name]; ok {
		b.failures = 0
		b.open = false
	}
}

// OpenBreakers returns the names of currently open breakers.
func (e *Engine) OpenBreakers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var names []string
	now := e.now()
	for name, b := range e.breakers {
		if b.open && now.Sub(b.openedAt) < breakerWindow {
			names = append(names, name)
		}
	}
	return names
}
