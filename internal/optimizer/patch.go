package optimizer

import (
	"fmt"
	"strings"

	"github.com/pipelens-dev/pipelens/internal/parser"
	"github.com/pipelens-dev/pipelens/pkg/core"
	"gopkg.in/yaml.v3"
)

// patchSource reapplies the optimizer's changes onto the pipeline's
// original node tree. The change set is closed (cache insertion, edge
// removal, clone depth, concurrency, matrix sharding), so the patch is
// computed by diffing the optimized model against a fresh parse of the
// source; everything outside that set is never rewritten.
func patchSource(p *core.Pipeline) (*yaml.Node, error) {
	base, err := parser.Parse(p.SourcePath, p.Source, p.Provider, parser.Options{})
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(p.Source, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("source of %s is not a mapping document", p.SourcePath)
	}
	root := doc.Content[0]

	switch p.Provider {
	case core.ProviderGitHubActions:
		patchGitHub(root, base, p)
	case core.ProviderGitLabCI:
		patchGitLab(root, base, p)
	}
	return &doc, nil
}

// =============================================================================
// GitHub Actions
// =============================================================================

func patchGitHub(root *yaml.Node, base, opt *core.Pipeline) {
	if opt.Trigger.ConcurrencyGroup != "" && base.Trigger.ConcurrencyGroup == "" {
		c := mapNode()
		put(c, "group", strNode(opt.Trigger.ConcurrencyGroup))
		put(c, "cancel-in-progress", boolNode(opt.Trigger.CancelInProgress))
		mapSet(root, "concurrency", c)
	}

	jobs := mapGet(root, "jobs")
	if jobs == nil || jobs.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(jobs.Content); i += 2 {
		bj, oj := base.Job(jobs.Content[i].Value), opt.Job(jobs.Content[i].Value)
		if bj == nil || oj == nil {
			continue
		}
		patchGitHubJob(jobs.Content[i+1], bj, oj)
	}
}

func patchGitHubJob(jobNode *yaml.Node, bj, oj *core.Job) {
	if !equalStrings(bj.Needs, oj.Needs) {
		switch len(oj.Needs) {
		case 0:
			mapDelete(jobNode, "needs")
		case 1:
			mapSet(jobNode, "needs", strNode(oj.Needs[0]))
		default:
			mapSet(jobNode, "needs", strSeq(oj.Needs...))
		}
	}

	if len(oj.MatrixInclude) > 0 && len(bj.MatrixInclude) == 0 {
		strategy := mapGet(jobNode, "strategy")
		if strategy == nil {
			strategy = mapNode()
			mapSet(jobNode, "strategy", strategy)
		}
		mapSet(strategy, "matrix", matrixNode(oj))
	}

	steps := mapGet(jobNode, "steps")
	if steps == nil || steps.Kind != yaml.SequenceNode {
		return
	}

	// Source steps and base model steps are one-to-one on GitHub, so a
	// model step without a base counterpart is an optimizer insertion.
	pos, bi := 0, 0
	for _, s := range oj.Steps {
		if bi < len(bj.Steps) && sameStep(s, bj.Steps[bi]) {
			if s.Kind == core.StepCheckout && pos < len(steps.Content) {
				patchCheckoutDepth(steps.Content[pos], bj.Steps[bi], s)
			}
			bi++
			pos++
			continue
		}
		steps.Content = append(steps.Content, nil)
		copy(steps.Content[pos+1:], steps.Content[pos:])
		steps.Content[pos] = githubStepNode(s)
		pos++
	}
}

func patchCheckoutDepth(stepNode *yaml.Node, baseStep, optStep *core.Step) {
	depth := optStep.With["fetch-depth"]
	if depth == "" || baseStep.With["fetch-depth"] == depth {
		return
	}
	with := mapGet(stepNode, "with")
	if with == nil {
		with = mapNode()
		mapSet(stepNode, "with", with)
	}
	mapSet(with, "fetch-depth", intNode(depth))
}

// =============================================================================
// GitLab CI
// =============================================================================

func patchGitLab(root *yaml.Node, base, opt *core.Pipeline) {
	if opt.Trigger.ConcurrencyGroup == "interruptible" && base.Trigger.ConcurrencyGroup != "interruptible" {
		def := mapGet(root, "default")
		if def == nil {
			def = mapNode()
			mapSet(root, "default", def)
		}
		mapSet(def, "interruptible", boolNode(true))
	}

	// Keys that do not resolve to a job in both models are reserved
	// words or hidden templates; they pass through untouched.
	for i := 0; i+1 < len(root.Content); i += 2 {
		bj, oj := base.Job(root.Content[i].Value), opt.Job(root.Content[i].Value)
		if bj == nil || oj == nil {
			continue
		}
		patchGitLabJob(root.Content[i+1], bj, oj)
	}
}

func patchGitLabJob(jobNode *yaml.Node, bj, oj *core.Job) {
	if !equalStrings(bj.Needs, oj.Needs) {
		// The needs list becomes explicit even when it emptied out:
		// deleting the key would bring the stage-implied edges back.
		mapSet(jobNode, "needs", gitlabNeedsNode(oj))
	}

	if depth := checkoutDepth(oj); depth != "" && depth != checkoutDepth(bj) {
		vars := mapGet(jobNode, "variables")
		if vars == nil {
			vars = mapNode()
			mapSet(jobNode, "variables", vars)
		}
		mapSet(vars, "GIT_DEPTH", intNode(depth))
	}

	if restore := insertedCacheStep(bj, oj); restore != nil {
		paths := []string{".cache/"}
		if v := restore.With["paths"]; v != "" {
			paths = strings.Split(v, "\n")
		}
		cache := mapNode()
		put(cache, "paths", strSeq(paths...))
		mapSet(jobNode, "cache", cache)
	}

	if len(oj.MatrixInclude) > 0 && len(bj.MatrixInclude) == 0 {
		mapSet(jobNode, "parallel", gitlabParallel(oj))
	}
}

func checkoutDepth(j *core.Job) string {
	for _, s := range j.Steps {
		if s.Kind == core.StepCheckout {
			return s.With["depth"]
		}
	}
	return ""
}

// insertedCacheStep returns the cache-restore step the optimizer added,
// nil when the job already restored a cache before optimization.
func insertedCacheStep(bj, oj *core.Job) *core.Step {
	for _, s := range bj.Steps {
		if s.Kind == core.StepCacheRestore {
			return nil
		}
	}
	for _, s := range oj.Steps {
		if s.Kind == core.StepCacheRestore {
			return s
		}
	}
	return nil
}

// =============================================================================
// Node and slice helpers
// =============================================================================

func sameStep(a, b *core.Step) bool {
	return a.Kind == b.Kind && a.Name == b.Name && a.Uses == b.Uses && a.Run == b.Run
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v}
}

func mapGet(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// mapSet replaces the value under key, appending the pair when absent.
func mapSet(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	put(m, key, value)
}

func mapDelete(m *yaml.Node, key string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return
		}
	}
}
