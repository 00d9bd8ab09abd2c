package runner

import (
	"time"

	"github.com/conduit-lang/backport/internal/diagnostics"
)

// Report summarizes one run
type Report struct {
	RunID        string                   `json:"run_id"`
	Classes      int                      `json:"classes"`
	Modified     int                      `json:"modified"`
	Cached       int                      `json:"cached"`
	Copied       int                      `json:"copied"`
	Malformed    []string                 `json:"malformed,omitempty"`
	Warnings     int                      `json:"warnings"`
	Suppressed   int                      `json:"suppressed"`
	DroppedRules int                      `json:"dropped_rules"`
	TypeRules    int                      `json:"type_rules"`
	MethodRules  int                      `json:"method_rules"`
	Diagnostics  []diagnostics.Diagnostic `json:"diagnostics"`
	StartedAt    time.Time                `json:"started_at"`
	Duration     time.Duration            `json:"duration_ns"`
}

// CacheHitRate returns the share of classes taken from the cache, as a
// percentage.
func (r *Report) CacheHitRate() float64 {
	if r.Classes == 0 {
		return 0.0
	}
	return float64(r.Cached) / float64(r.Classes) * 100.0
}
