// Package parser converts provider-specific CI configuration into the
// normalized core.Pipeline model. Providers form a closed set: detection
// picks a variant, each variant has its own parse function, and every
// variant satisfies the same output contract (fully time-annotated,
// resolved needs, acyclic).
package parser

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/internal/history"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// Options tunes parsing. The zero value is ready to use.
type Options struct {
	// Stats calibrates job durations from observed run history. Jobs
	// without history keep the per-kind defaults.
	Stats *history.Statistics
}

// Detect determines the provider from the file path and, when the path
// is ambiguous, the document shape.
func Detect(path string, data []byte) (core.Provider, error) {
	base := filepath.Base(path)
	switch {
	case base == ".gitlab-ci.yml" || base == ".gitlab-ci.yaml":
		return core.ProviderGitLabCI, nil
	case strings.Contains(filepath.ToSlash(path), ".github/workflows/"):
		return core.ProviderGitHubActions, nil
	}

	text := string(data)
	if strings.Contains(text, "\njobs:") || strings.HasPrefix(text, "jobs:") {
		return core.ProviderGitHubActions, nil
	}
	if strings.Contains(text, "\nstages:") || strings.HasPrefix(text, "stages:") ||
		strings.Contains(text, "\n  script:") {
		return core.ProviderGitLabCI, nil
	}
	return "", &core.UnsupportedProviderError{Path: path}
}

// Parse converts raw configuration into a validated pipeline: every
// needs entry resolves, the needs relation is acyclic, and every step
// carries a duration estimate.
func Parse(path string, data []byte, provider core.Provider, opts Options) (*core.Pipeline, error) {
	var (
		p   *core.Pipeline
		err error
	)
	switch provider {
	case core.ProviderGitHubActions:
		p, err = parseGitHub(path, data)
	case core.ProviderGitLabCI:
		p, err = parseGitLab(path, data)
	default:
		return nil, &core.UnsupportedProviderError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	p.Source = append([]byte(nil), data...)

	calibrate(p, opts.Stats)

	// Structural validation; the returned pipeline is guaranteed safe
	// for every downstream consumer.
	if _, err := dag.FromPipeline(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseAuto detects the provider and parses in one call.
func ParseAuto(path string, data []byte, opts Options) (*core.Pipeline, error) {
	provider, err := Detect(path, data)
	if err != nil {
		return nil, err
	}
	return Parse(path, data, provider, opts)
}

// calibrate rescales step estimates so each job with observed history
// sums to its historical p50.
func calibrate(p *core.Pipeline, stats *history.Statistics) {
	if stats == nil {
		return
	}
	for _, job := range p.Jobs {
		js, ok := stats.Job(job.Name)
		if !ok || js.P50DurationSecs <= 0 || len(job.Steps) == 0 {
			continue
		}
		current := job.EstimatedDuration()
		if current <= 0 {
			continue
		}
		target := time.Duration(js.P50DurationSecs * float64(time.Second))
		ratio := float64(target) / float64(current)
		for _, s := range job.Steps {
			s.EstimatedDuration = time.Duration(float64(s.EstimatedDuration) * ratio)
		}
	}
}
