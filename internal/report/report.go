// Package report assembles the aggregate analysis report: metrics from
// the dependency graph, the findings of the analyzer suite, and the
// optimized-duration projection, merged with a composite health score.
package report

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/internal/history"
	"github.com/pipelens-dev/pipelens/internal/optimizer"
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// Builder produces analysis reports.
type Builder struct {
	config *analyze.Config
}

// NewBuilder creates a report builder. A nil config uses defaults.
func NewBuilder(config *analyze.Config) *Builder {
	if config == nil {
		config = analyze.NewConfig()
	}
	return &Builder{config: config}
}

// Build runs the analyzer suite and the optimizer against the pipeline
// and assembles the complete report. stats may be nil.
func (b *Builder) Build(p *core.Pipeline, stats *history.Statistics) (*core.AnalysisReport, error) {
	g, err := dag.FromPipeline(p)
	if err != nil {
		return nil, err
	}
	cp, err := g.CriticalPath()
	if err != nil {
		return nil, err
	}

	ctx := analyze.NewContext(p, g, b.config, stats)
	findings := analyze.NewAnalyzer(b.config).Analyze(ctx)

	res, err := optimizer.New(b.config).Optimize(p, findings)
	if err != nil {
		return nil, err
	}

	if findings == nil {
		findings = []core.Finding{} // JSON consumers expect an array
	}

	r := &core.AnalysisReport{
		ReportID:                   uuid.NewString(),
		PipelineName:               p.Name,
		SourceFile:                 p.SourcePath,
		Provider:                   p.Provider,
		JobCount:                   len(p.Jobs),
		StepCount:                  p.StepCount(),
		MaxParallelism:             g.MaxParallelism(),
		CriticalPath:               cp.Jobs,
		CriticalPathDurationSecs:   int(cp.Duration.Seconds()),
		TotalEstimatedDurationSecs: int(p.TotalEstimatedDuration().Seconds()),
		OptimizedDurationSecs:      int(res.OptimizedDuration.Seconds()),
		Findings:                   findings,
	}
	r.HealthScore = healthScore(p, cp, findings, stats)
	r.HealthGrade = core.Grade(r.HealthScore)
	return r, nil
}

// severityPenalty weights findings when scoring.
var severityPenalty = map[core.Severity]float64{
	core.SeverityCritical: 15,
	core.SeverityHigh:     10,
	core.SeverityMedium:   5,
	core.SeverityLow:      2,
	core.SeverityInfo:     1,
}

// healthScore grades the pipeline 0-100. It starts at 100 and
// subtracts weighted penalties for serialization, missing caches,
// historical failures, and the findings themselves.
func healthScore(p *core.Pipeline, cp dag.Path, findings []core.Finding, stats *history.Statistics) int {
	score := 100.0

	// Serialization: how close the wall-clock time sits to the fully
	// sequential worst case. A single-job pipeline is not penalized.
	if total := p.TotalEstimatedDuration(); len(p.Jobs) > 1 && total > 0 {
		floor := 1.0 / float64(len(p.Jobs))
		ratio := cp.Duration.Seconds() / total.Seconds()
		score -= 20 * (ratio - floor) / (1 - floor)
	}

	// Caching coverage across jobs that install dependencies.
	if installing, cached := cacheCoverage(p); installing > 0 {
		score -= 25 * float64(installing-cached) / float64(installing)
	}

	// Success-rate proxy from calibration history, when present.
	if stats != nil && len(stats.Jobs) > 0 {
		score -= 15 * (1 - stats.SuccessRate())
	}

	// The findings themselves, capped so a long tail of advisories
	// cannot zero the score on its own.
	var issues float64
	for _, f := range findings {
		issues += severityPenalty[f.Severity]
	}
	if issues > 40 {
		issues = 40
	}
	score -= issues

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// cacheCoverage counts jobs with install steps and how many of those
// restore a cache first.
func cacheCoverage(p *core.Pipeline) (installing, cached int) {
	for _, job := range p.Jobs {
		hasInstall, hasCache := false, false
		for _, s := range job.Steps {
			switch {
			case s.Kind == core.StepInstall:
				hasInstall = true
			case s.Kind == core.StepCacheRestore:
				hasCache = true
			case strings.HasPrefix(strings.ToLower(s.Uses), "actions/setup-") && s.With["cache"] != "":
				hasCache = true
			}
		}
		if hasInstall {
			installing++
			if hasCache {
				cached++
			}
		}
	}
	return installing, cached
}
