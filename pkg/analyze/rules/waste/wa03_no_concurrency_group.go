package waste

import (
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

func init() {
	analyze.Register(analyze.RuleDef{
		ID:          "WA03",
		Name:        "waste.no-concurrency-group",
		Category:    core.CategoryWaste,
		Description: "Re-runs of the same ref queue up instead of cancelling superseded runs",
		Severity:    core.SeverityMedium,
		Check:       checkConcurrencyGroup,
	})
}

func checkConcurrencyGroup(ctx *analyze.Context) []core.Finding {
	p := ctx.Pipeline()
	if p.Trigger.ConcurrencyGroup != "" {
		return nil
	}

	// A cancelled superseded run saves one full pipeline on the
	// schedule, so price the fix at the critical path length.
	savings := 0
	if path, err := ctx.Graph().CriticalPath(); err == nil {
		savings = int(path.Duration.Seconds())
	}

	return []core.Finding{{
		RuleID:   "WA03",
		Severity: core.SeverityMedium,
		Category: core.CategoryWaste,
		Title:    "No concurrency or cancellation group",
		Description: "Pushing again while a run is in flight queues a second full run instead of " +
			"cancelling the superseded one.",
		AffectedJobs:         allJobNames(p),
		Recommendation:       "Declare a concurrency group keyed on the ref with cancel-in-progress enabled (or mark GitLab jobs interruptible).",
		FixID:                "concurrency-group",
		EstimatedSavingsSecs: savings,
		Confidence:           0.8,
		AutoFixable:          true,
	}}
}
