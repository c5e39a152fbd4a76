// Package parallel detects needs edges with no underlying artifact
// coupling, which serialize jobs that could run side by side.
package parallel

import (
	"fmt"
	"time"

	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

func init() {
	analyze.Register(analyze.RuleDef{
		ID:          "PA01",
		Name:        "parallelization.false-dependency",
		Category:    core.CategoryParallelization,
		Description: "A needs edge carries no artifact and only serializes the jobs",
		Severity:    core.SeverityHigh,
		Check:       checkFalseDependencies,
	})
}

// ArtifactCoupled reports whether the edge from producer to consumer is
// load-bearing: the consumer declares it downloads something the
// producer declares it uploads. The optimizer re-validates edge removal
// through this same predicate.
func ArtifactCoupled(producer, consumer *core.Job) bool {
	for _, produced := range producer.Produces {
		for _, consumed := range consumer.Consumes {
			if produced == consumed {
				return true
			}
		}
	}
	return false
}

func checkFalseDependencies(ctx *analyze.Context) []core.Finding {
	p := ctx.Pipeline()
	var findings []core.Finding

	for _, job := range p.Jobs {
		for _, need := range job.Needs {
			producer := p.Job(need)
			if producer == nil || ArtifactCoupled(producer, job) {
				continue
			}

			// The wait attributable solely to the producer: how much
			// earlier the job could start if this edge were removed.
			otherMax, producerFinish := waitProfile(ctx, job, need)
			savings := producerFinish - otherMax
			if savings < 0 {
				savings = 0
			}

			findings = append(findings, core.Finding{
				RuleID:   "PA01",
				Severity: severityForWait(int(savings.Seconds())),
				Category: core.CategoryParallelization,
				Title:    fmt.Sprintf("False dependency: %s -> %s", need, job.Name),
				Description: fmt.Sprintf(
					"Job %q waits for %q but consumes none of its artifacts; the edge only delays its start.",
					job.Name, need),
				AffectedJobs: []string{need, job.Name},
				Recommendation: fmt.Sprintf(
					"Remove %q from the needs of %q so both jobs run in parallel.", need, job.Name),
				FixID:                "remove-edge:" + need + ":" + job.Name,
				FixArgs:              map[string]string{"producer": need, "consumer": job.Name},
				EstimatedSavingsSecs: int(savings.Seconds()),
				Confidence:           0.7,
				AutoFixable:          true,
			})
		}
	}
	return findings
}

// waitProfile returns the latest finish among the job's other
// predecessors and the finish time of the candidate predecessor.
func waitProfile(ctx *analyze.Context, job *core.Job, candidate string) (otherMax, candidateFinish time.Duration) {
	candidateFinish = ctx.EarliestFinish(candidate)
	for _, need := range job.Needs {
		if need == candidate {
			continue
		}
		if f := ctx.EarliestFinish(need); f > otherMax {
			otherMax = f
		}
	}
	return otherMax, candidateFinish
}

// severityForWait scales severity with the seconds of serialized wait.
func severityForWait(secs int) core.Severity {
	switch {
	case secs >= 120:
		return core.SeverityHigh
	case secs >= 30:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}
