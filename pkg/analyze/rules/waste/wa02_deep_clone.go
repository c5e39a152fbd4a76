package waste

import (
	"fmt"

	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

func init() {
	analyze.Register(analyze.RuleDef{
		ID:          "WA02",
		Name:        "waste.deep-clone",
		Category:    core.CategoryWaste,
		Description: "Checkout fetches full history instead of a shallow clone",
		Severity:    core.SeverityLow,
		Check:       checkDeepClones,
	})
}

// depthKeys are the shallow-clone parameters per provider: GitHub's
// actions/checkout input and GitLab's GIT_DEPTH variable.
var depthKeys = []string{"fetch-depth", "depth"}

func shallow(s *core.Step) bool {
	for _, key := range depthKeys {
		// fetch-depth: 0 explicitly requests full history.
		if v, ok := s.With[key]; ok && v != "0" && v != "" {
			return true
		}
	}
	return false
}

func checkDeepClones(ctx *analyze.Context) []core.Finding {
	var findings []core.Finding
	for _, job := range ctx.Pipeline().Jobs {
		for _, step := range job.Steps {
			if step.Kind != core.StepCheckout || shallow(step) {
				continue
			}
			findings = append(findings, core.Finding{
				RuleID:   "WA02",
				Severity: core.SeverityLow,
				Category: core.CategoryWaste,
				Title:    fmt.Sprintf("Full-history clone in job %q", job.Name),
				Description: fmt.Sprintf(
					"Job %q checks out the repository without a depth limit; on large histories this dominates checkout time.", job.Name),
				AffectedJobs:         []string{job.Name},
				Recommendation:       "Set a shallow clone depth (fetch-depth: 1 or GIT_DEPTH: 1) unless the job needs history.",
				FixID:                "shallow-clone:" + job.Name,
				FixArgs:              map[string]string{"job": job.Name},
				EstimatedSavingsSecs: 15,
				Confidence:           0.9,
				AutoFixable:          true,
			})
			break // one finding per job
		}
	}
	return findings
}
