// Package waste holds the rule table over DAG-level and job-level
// properties that burn runner minutes without buying signal.
package waste

import (
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

func init() {
	analyze.Register(analyze.RuleDef{
		ID:          "WA01",
		Name:        "waste.missing-path-filters",
		Category:    core.CategoryWaste,
		Description: "Pipeline fires on every change, including non-code paths",
		Severity:    core.SeverityMedium,
		Check:       checkMissingPathFilters,
	})
}

func checkMissingPathFilters(ctx *analyze.Context) []core.Finding {
	p := ctx.Pipeline()
	if len(p.Trigger.PathFilters) > 0 || len(p.Trigger.PathIgnoreFilters) > 0 {
		return nil
	}

	// Choosing the right filter set needs knowledge of the repository
	// layout, so this one stays advisory.
	return []core.Finding{{
		RuleID:   "WA01",
		Severity: core.SeverityMedium,
		Category: core.CategoryWaste,
		Title:    "No path-based trigger filters",
		Description: "The full pipeline runs on every change, including documentation and " +
			"other non-code paths.",
		AffectedJobs:   allJobNames(p),
		Recommendation: "Add path filters (e.g. paths/paths-ignore or workflow rules changes) so doc-only changes skip the pipeline.",
		Confidence:     0.8,
		AutoFixable:    false,
	}}
}

func allJobNames(p *core.Pipeline) []string {
	names := make([]string, len(p.Jobs))
	for i, j := range p.Jobs {
		names[i] = j.Name
	}
	return names
}
