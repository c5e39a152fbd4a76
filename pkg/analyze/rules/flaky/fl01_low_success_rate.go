// Package flaky surfaces jobs whose historical success rate indicates
// retry churn. It only fires when calibration history is supplied.
package flaky

import (
	"fmt"

	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

func init() {
	analyze.Register(analyze.RuleDef{
		ID:          "FL01",
		Name:        "flakiness.low-success-rate",
		Category:    core.CategoryFlakiness,
		Description: "Job fails intermittently across historical runs",
		Severity:    core.SeverityMedium,
		Check:       checkLowSuccessRate,
		ConfigKeys:  []string{"flaky_success_rate"},
	})
}

func checkLowSuccessRate(ctx *analyze.Context) []core.Finding {
	stats := ctx.Stats()
	if stats == nil {
		return nil
	}
	floor := ctx.Thresholds().FlakySuccessRate
	if floor <= 0 {
		floor = 0.90
	}

	var findings []core.Finding
	for _, job := range ctx.Pipeline().Jobs {
		js, ok := stats.Job(job.Name)
		if !ok || js.Runs < 5 || js.SuccessRate >= floor {
			continue
		}
		sev := core.SeverityMedium
		if js.SuccessRate < 0.75 {
			sev = core.SeverityHigh
		}
		// Expected retry cost: failure probability times one job run.
		retryCost := (1 - js.SuccessRate) * job.EstimatedDuration().Seconds()
		findings = append(findings, core.Finding{
			RuleID:   "FL01",
			Severity: sev,
			Category: core.CategoryFlakiness,
			Title:    fmt.Sprintf("Flaky job %q (%.0f%% success over %d runs)", job.Name, js.SuccessRate*100, js.Runs),
			Description: fmt.Sprintf(
				"Job %q succeeded in %.0f%% of %d observed runs; intermittent failures force re-runs of the whole pipeline.",
				job.Name, js.SuccessRate*100, js.Runs),
			AffectedJobs:         []string{job.Name},
			Recommendation:       "Quarantine or deflake the failing tests; retries hide the cost but still burn runner minutes.",
			EstimatedSavingsSecs: int(retryCost),
			Confidence:           0.75,
			AutoFixable:          false,
		})
	}
	return findings
}
