// Package optimizer rewrites a pipeline by applying the auto-fixable
// findings of an analysis pass. It never mutates the input pipeline;
// fixes run against a deep copy which is re-validated before it is
// returned.
package optimizer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/internal/parser"
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/analyze/rules/caching"
	"github.com/pipelens-dev/pipelens/pkg/analyze/rules/parallel"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// Result is the outcome of one optimization pass.
type Result struct {
	// Pipeline is the rewritten copy. The input pipeline is untouched.
	Pipeline *core.Pipeline

	// Applied and Skipped partition the auto-fixable findings: a fix is
	// skipped when its target no longer exists, e.g. an earlier fix
	// already covered it.
	Applied []core.Finding
	Skipped []core.Finding

	// OriginalDuration and OptimizedDuration are the critical-path
	// durations before and after the rewrite.
	OriginalDuration  time.Duration
	OptimizedDuration time.Duration
}

// Optimizer applies auto-fixable findings to pipelines.
type Optimizer struct {
	config *analyze.Config
}

// New creates an optimizer. A nil config uses the default thresholds
// and savings tables.
func New(config *analyze.Config) *Optimizer {
	if config == nil {
		config = analyze.NewConfig()
	}
	return &Optimizer{config: config}
}

// categoryOrder fixes the application order: caching fixes first, then
// edge removals, then waste fixes. The order is part of the contract so
// repeated runs produce identical output.
var categoryOrder = map[core.Category]int{
	core.CategoryCaching:         0,
	core.CategoryParallelization: 1,
	core.CategoryWaste:           2,
}

// Optimize applies every auto-fixable finding to a copy of the
// pipeline and returns the rewritten copy. The result is guaranteed
// acyclic, contains no job absent from the input, and its critical
// path never exceeds the input's sequential duration.
func (o *Optimizer) Optimize(p *core.Pipeline, findings []core.Finding) (*Result, error) {
	g, err := dag.FromPipeline(p)
	if err != nil {
		return nil, err
	}
	before, err := g.CriticalPath()
	if err != nil {
		return nil, err
	}

	fixes := make([]core.Finding, 0, len(findings))
	for _, f := range findings {
		if f.AutoFixable && f.FixID != "" {
			fixes = append(fixes, f)
		}
	}
	sort.SliceStable(fixes, func(i, j int) bool {
		if categoryOrder[fixes[i].Category] != categoryOrder[fixes[j].Category] {
			return categoryOrder[fixes[i].Category] < categoryOrder[fixes[j].Category]
		}
		return fixes[i].FixID < fixes[j].FixID
	})

	out := p.Clone()
	result := &Result{Pipeline: out, OriginalDuration: before.Duration}
	for _, f := range fixes {
		if o.apply(out, f) {
			result.Applied = append(result.Applied, f)
		} else {
			result.Skipped = append(result.Skipped, f)
		}
	}

	og, err := dag.FromPipeline(out)
	if err != nil {
		// Fixes only shorten durations, insert steps, or drop edges;
		// none can invalidate the graph.
		return nil, fmt.Errorf("optimizer produced an invalid pipeline: %w", err)
	}
	after, err := og.CriticalPath()
	if err != nil {
		return nil, err
	}
	result.OptimizedDuration = after.Duration
	return result, nil
}

// apply dispatches on the fix kind; arguments come from the finding's
// structured FixArgs, never from parsing the FixID, so job names may
// contain any characters the provider allows.
func (o *Optimizer) apply(p *core.Pipeline, f core.Finding) bool {
	kind, _, _ := strings.Cut(f.FixID, ":")
	switch kind {
	case "add-cache":
		return o.addCache(p, f.FixArgs["ecosystem"], f.AffectedJobs)
	case "remove-edge":
		producer, consumer := f.FixArgs["producer"], f.FixArgs["consumer"]
		return producer != "" && consumer != "" && removeEdge(p, producer, consumer)
	case "shallow-clone":
		return shallowClone(p, f.FixArgs["job"])
	case "concurrency-group":
		return addConcurrencyGroup(p)
	case "shard-matrix":
		return shardMatrix(p, f.FixArgs["job"], o.config.Thresholds.MatrixSize)
	}
	return false
}

// lockHints maps ecosystem to the lockfile pattern used in generated
// cache keys.
var lockHints = map[string]string{
	"npm":    "**/package-lock.json",
	"pip":    "**/requirements*.txt",
	"cargo":  "**/Cargo.lock",
	"gradle": "**/*.gradle*",
	"docker": "**/Dockerfile",
}

// addCache inserts a cache-restore step directly before the first
// install step of the ecosystem in each affected job, and shortens that
// install by the configured cache savings.
func (o *Optimizer) addCache(p *core.Pipeline, ecoName string, jobNames []string) bool {
	eco, ok := caching.EcosystemByName(ecoName)
	if !ok {
		return false
	}
	savings := time.Duration(o.config.Thresholds.CacheSavingsSecs[ecoName]) * time.Second

	changed := false
	for _, name := range jobNames {
		job := p.Job(name)
		if job == nil {
			continue
		}
		idx := -1
		for i, s := range job.Steps {
			if s.Kind == core.StepCacheRestore {
				idx = -1
				break // already cached, fix no longer applies
			}
			if hit, _ := eco.Matches(s); hit {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}

		restore := &core.Step{
			Name:              "Restore " + ecoName + " cache",
			Kind:              core.StepCacheRestore,
			EstimatedDuration: parser.DefaultDuration(core.StepCacheRestore),
		}
		if p.Provider == core.ProviderGitHubActions {
			restore.Uses = "actions/cache@v4"
			restore.With = map[string]string{
				"path": strings.Join(eco.CachePaths, "\n"),
				"key":  fmt.Sprintf("${{ runner.os }}-%s-${{ hashFiles('%s') }}", ecoName, lockHints[ecoName]),
			}
		} else {
			restore.With = map[string]string{"paths": strings.Join(eco.CachePaths, "\n")}
		}

		job.Steps = append(job.Steps, nil)
		copy(job.Steps[idx+1:], job.Steps[idx:])
		job.Steps[idx] = restore

		// A warm cache removes most of the download work from the
		// install itself.
		install := job.Steps[idx+1]
		if install.EstimatedDuration > savings+5*time.Second {
			install.EstimatedDuration -= savings
		} else {
			install.EstimatedDuration = 5 * time.Second
		}
		changed = true
	}
	return changed
}

// removeEdge drops the needs edge producer -> consumer. Safety was
// established by the analyzer; a coupled edge reaching this point is an
// analyzer bug, not an input error.
func removeEdge(p *core.Pipeline, producerName, consumerName string) bool {
	producer, consumer := p.Job(producerName), p.Job(consumerName)
	if producer == nil || consumer == nil {
		return false
	}
	if parallel.ArtifactCoupled(producer, consumer) {
		panic(fmt.Sprintf("optimizer: edge %s -> %s is artifact-coupled, refusing to remove it", producerName, consumerName))
	}

	kept := consumer.Needs[:0]
	removed := false
	for _, need := range consumer.Needs {
		if need == producerName {
			removed = true
			continue
		}
		kept = append(kept, need)
	}
	consumer.Needs = kept
	return removed
}

// shallowClone sets the provider's clone-depth parameter on the job's
// checkout step.
func shallowClone(p *core.Pipeline, jobName string) bool {
	job := p.Job(jobName)
	if job == nil {
		return false
	}
	key := "fetch-depth"
	if p.Provider == core.ProviderGitLabCI {
		key = "depth"
	}
	for _, s := range job.Steps {
		if s.Kind != core.StepCheckout {
			continue
		}
		if v, ok := s.With[key]; ok && v != "0" && v != "" {
			return false // already shallow
		}
		if s.With == nil {
			s.With = make(map[string]string, 1)
		}
		s.With[key] = "1"
		return true
	}
	return false
}

// addConcurrencyGroup declares a cancellation group so a re-run of the
// same ref cancels the queued run instead of stacking behind it.
func addConcurrencyGroup(p *core.Pipeline) bool {
	if p.Trigger.ConcurrencyGroup != "" {
		return false
	}
	switch p.Provider {
	case core.ProviderGitHubActions:
		p.Trigger.ConcurrencyGroup = "${{ github.workflow }}-${{ github.ref }}"
	case core.ProviderGitLabCI:
		// GitLab cancels redundant pipelines via interruptible jobs.
		p.Trigger.ConcurrencyGroup = "interruptible"
	default:
		return false
	}
	p.Trigger.CancelInProgress = true
	return true
}

// shardMatrix replaces an oversized cross product with an explicit
// combination list. Rows are built by rotating through each
// dimension's values, so every value of every dimension still runs at
// least once while the combination count drops from the product of
// dimension sizes to the largest single dimension size.
func shardMatrix(p *core.Pipeline, jobName string, threshold int) bool {
	job := p.Job(jobName)
	if job == nil || len(job.Matrix) == 0 || job.MatrixSize() <= threshold {
		return false
	}

	dims := make([]string, 0, len(job.Matrix))
	rows := 0
	for dim, values := range job.Matrix {
		dims = append(dims, dim)
		if len(values) > rows {
			rows = len(values)
		}
	}
	sort.Strings(dims)
	if rows >= job.MatrixSize() {
		return false // single effective dimension, nothing to shed
	}

	include := make([]map[string]string, rows)
	for i := range include {
		combo := make(map[string]string, len(dims))
		for _, dim := range dims {
			values := job.Matrix[dim]
			combo[dim] = values[i%len(values)]
		}
		include[i] = combo
	}
	job.Matrix = nil
	job.MatrixInclude = include
	return true
}
