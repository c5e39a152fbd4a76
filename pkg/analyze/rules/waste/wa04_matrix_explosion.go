package waste

import (
	"fmt"

	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

func init() {
	analyze.Register(analyze.RuleDef{
		ID:          "WA04",
		Name:        "waste.matrix-explosion",
		Category:    core.CategoryWaste,
		Description: "Job matrix produces more combinations than the configured threshold",
		Severity:    core.SeverityHigh,
		Check:       checkMatrixExplosion,
		ConfigKeys:  []string{"matrix_size"},
	})
}

func checkMatrixExplosion(ctx *analyze.Context) []core.Finding {
	threshold := ctx.Thresholds().MatrixSize
	if threshold <= 0 {
		threshold = 12
	}

	var findings []core.Finding
	for _, job := range ctx.Pipeline().Jobs {
		size := job.MatrixSize()
		if size <= threshold {
			continue
		}
		// Every combination beyond the threshold burns a full job run.
		excess := size - threshold
		findings = append(findings, core.Finding{
			RuleID:   "WA04",
			Severity: core.SeverityHigh,
			Category: core.CategoryWaste,
			Title:    fmt.Sprintf("Matrix explosion in job %q (%d combinations)", job.Name, size),
			Description: fmt.Sprintf(
				"Job %q expands to %d matrix combinations (threshold: %d); most combinations add runner cost without adding coverage.",
				job.Name, size, threshold),
			AffectedJobs:         []string{job.Name},
			Recommendation:       "Shard the largest dimension or exclude redundant combinations to stay within the threshold.",
			FixID:                "shard-matrix:" + job.Name,
			FixArgs:              map[string]string{"job": job.Name},
			EstimatedSavingsSecs: excess * int(job.EstimatedDuration().Seconds()),
			Confidence:           0.85,
			AutoFixable:          true,
		})
	}
	return findings
}
