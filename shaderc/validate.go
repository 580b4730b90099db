package shaderc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Validation limits. These are advisory heuristics for catching sources
// that were clearly not written for a lightweight background effect;
// exceeding them never blocks compilation.
const (
	maxSourceLines  = 2000
	maxLoopBound    = 10000
	maxWorkgroupDim = 256
)

var (
	entryPointRe = regexp.MustCompile(`@(vertex|fragment|compute)\b`)
	loopBoundRe  = regexp.MustCompile(`for\s*\([^;]*;[^<]*<\s*(\d+)`)
	workgroupRe  = regexp.MustCompile(`@workgroup_size\(\s*(\d+)`)
)

// Validation is the outcome of a static source check.
type Validation struct {
	// Valid is false only when the source cannot be a usable shader
	// (empty, or no entry point at all).
	Valid bool

	// Issues are advisory findings, one line each.
	Issues []string
}

// ValidateSource runs static heuristic checks over WGSL source.
// The findings are advisory: callers compile regardless and use the issues
// for diagnostics only.
func ValidateSource(source string) Validation {
	v := Validation{Valid: true}

	if strings.TrimSpace(source) == "" {
		return Validation{Issues: []string{"source is empty"}}
	}

	if !entryPointRe.MatchString(source) {
		v.Valid = false
		v.Issues = append(v.Issues, "no entry point attribute (@vertex, @fragment or @compute)")
	}

	if n := strings.Count(source, "\n") + 1; n > maxSourceLines {
		v.Issues = append(v.Issues, fmt.Sprintf("source is %d lines, expected at most %d", n, maxSourceLines))
	}

	for _, m := range loopBoundRe.FindAllStringSubmatch(source, -1) {
		if bound, err := strconv.Atoi(m[1]); err == nil && bound > maxLoopBound {
			v.Issues = append(v.Issues, fmt.Sprintf("loop bound %d exceeds %d", bound, maxLoopBound))
		}
	}

	for _, m := range workgroupRe.FindAllStringSubmatch(source, -1) {
		if dim, err := strconv.Atoi(m[1]); err == nil && dim > maxWorkgroupDim {
			v.Issues = append(v.Issues, fmt.Sprintf("workgroup size %d exceeds %d", dim, maxWorkgroupDim))
		}
	}

	return v
}
