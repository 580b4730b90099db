package scenario

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/gogpu/shield/faultlog"
)

// Retry tuning.
const (
	retryMaxInterval  = 10 * time.Second
	retryFastAttempts = 5
	retrySlowAttempts = 3
)

// RetryIntermittent runs op with fast exponential backoff: 100ms base,
// doubling per attempt, capped at retryMaxInterval, at most
// retryFastAttempts invocations. Returns true as soon as op succeeds;
// the attempt budget is per call, so a success leaves the next call with
// a fresh counter.
//
// The wait between attempts is a plain timed sleep: once started, a retry
// sequence runs to completion or exhausts its budget.
func (e *Engine) RetryIntermittent(name string, op func() error) bool {
	return e.retry(name, op, 100*time.Millisecond, retryFastAttempts)
}

// RetrySlow is RetryIntermittent with a 1s base for call sites where the
// failure is expected to need real time to clear (device re-creation,
// driver resets).
func (e *Engine) RetrySlow(name string, op func() error) bool {
	return e.retry(name, op, time.Second, retrySlowAttempts)
}

func (e *Engine) retry(name string, op func() error, base time.Duration, maxAttempts int) bool {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = base
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxInterval = retryMaxInterval
	policy.Reset()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = e.runOp(op); lastErr == nil {
			if attempt > 1 {
				e.log.Log(faultlog.Unknown,
					fmt.Sprintf("%s recovered on attempt %d", name, attempt),
					faultlog.SeverityLow,
					map[string]any{"scenario": name, "attempt": attempt})
			}
			return true
		}
		if attempt < maxAttempts {
			e.sleep(policy.NextBackOff())
		}
	}

	e.log.Log(faultlog.Unknown,
		fmt.Sprintf("%s failed after %d attempts: %v", name, maxAttempts, lastErr),
		faultlog.SeverityHigh,
		map[string]any{"scenario": name, "attempts": maxAttempts})
	return false
}

// runOp invokes op, converting a panic into an error.
func (e *Engine) runOp(op func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario: operation panicked: %v", r)
		}
	}()
	return op()
}
