package doctor

import (
	"fmt"
	"sync"

	"github.com/rileyhilliard/shipr/internal/util"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Fixable    bool        `json:"fixable,omitempty"` // Whether --fix can address this
}

// Check defines the interface for diagnostic checks.
type Check interface {
	// Name returns the check's identifier.
	Name() string

	// Category returns the check's category (e.g., "TOOLS", "KEYS", "TARGETS").
	Category() string

	// Run executes the check and returns the result.
	Run() CheckResult

	// Fix attempts to repair the issue. Returns nil if the fix worked or
	// there is nothing it can do.
	Fix() error
}

// Run executes checks with at most workers running at once and returns the
// results in check order. workers <= 0 runs every check at once.
func Run(checks []Check, workers int) []CheckResult {
	if workers <= 0 || workers > len(checks) {
		workers = len(checks)
	}
	results := make([]CheckResult, len(checks))
	if len(checks) == 0 {
		return results
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				results[i] = checks[i].Run()
			}
		}()
	}
	for i := range checks {
		next <- i
	}
	close(next)
	wg.Wait()
	return results
}

// Tally counts results by status.
type Tally struct {
	Pass int
	Warn int
	Fail int
	// Fixable counts non-passing results that Fix may repair.
	Fixable int
}

// Count tallies results.
func Count(results []CheckResult) Tally {
	var t Tally
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			t.Pass++
			continue
		case StatusWarn:
			t.Warn++
		case StatusFail:
			t.Fail++
		}
		if r.Fixable {
			t.Fixable++
		}
	}
	return t
}

// Healthy reports whether nothing failed. Warnings are allowed.
func (t Tally) Healthy() bool {
	return t.Fail == 0
}

// Summary is a one-line verdict, e.g. "2 issues found".
func (t Tally) Summary() string {
	issues := t.Warn + t.Fail
	if issues == 0 {
		return "Everything looks good"
	}
	return util.CountNoun(issues, "issue", "issues") + " found"
}

// FixAll runs Fix on every check whose result is fixable and not passing,
// then re-runs it. Results are returned in the original order.
func FixAll(checks []Check, results []CheckResult) ([]CheckResult, []error) {
	out := make([]CheckResult, len(results))
	copy(out, results)

	var errs []error
	for i, r := range results {
		if !r.Fixable || r.Status == StatusPass {
			continue
		}
		if err := checks[i].Fix(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", checks[i].Name(), err))
			continue
		}
		out[i] = checks[i].Run()
	}
	return out, errs
}
