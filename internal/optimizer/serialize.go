package optimizer

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/pipelens-dev/pipelens/pkg/core"
	"gopkg.in/yaml.v3"
)

// Serialize renders the pipeline back into its provider's
// configuration syntax. Pipelines parsed from a file keep their
// original text: the optimizer's changes are patched into the source
// node tree, so keys the normalized model does not carry (env blocks,
// job conditions, timeouts, images, services, comments) pass through
// untouched. Pipelines built in code are rendered from the model.
func Serialize(p *core.Pipeline) ([]byte, error) {
	var root *yaml.Node
	switch {
	case p.Provider != core.ProviderGitHubActions && p.Provider != core.ProviderGitLabCI:
		return nil, &core.UnsupportedProviderError{Path: p.SourcePath}
	case len(p.Source) > 0:
		doc, err := patchSource(p)
		if err != nil {
			return nil, err
		}
		root = doc
	case p.Provider == core.ProviderGitHubActions:
		root = githubDoc(p)
	default:
		root = gitlabDoc(p)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// yaml.Node constructors. Mapping content is key/value pairs appended
// in order, which is the whole point of emitting through nodes: jobs
// and steps keep their declaration order.

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolNode(b bool) *yaml.Node {
	v := "false"
	if b {
		v = "true"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: ""}
}

func mapNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func seqNode(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func strSeq(values ...string) *yaml.Node {
	items := make([]*yaml.Node, len(values))
	for i, v := range values {
		items[i] = strNode(v)
	}
	return seqNode(items...)
}

func put(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, strNode(key), value)
}

func withNode(with map[string]string) *yaml.Node {
	keys := make([]string, 0, len(with))
	for k := range with {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m := mapNode()
	for _, k := range keys {
		m.Content = append(m.Content, strNode(k), strNode(with[k]))
	}
	return m
}

// =============================================================================
// GitHub Actions
// =============================================================================

func githubDoc(p *core.Pipeline) *yaml.Node {
	root := mapNode()
	if p.Name != "" && p.Name != p.SourcePath {
		put(root, "name", strNode(p.Name))
	}
	put(root, "on", githubTriggers(p.Trigger))
	if p.Trigger.ConcurrencyGroup != "" {
		c := mapNode()
		put(c, "group", strNode(p.Trigger.ConcurrencyGroup))
		put(c, "cancel-in-progress", boolNode(p.Trigger.CancelInProgress))
		put(root, "concurrency", c)
	}

	jobs := mapNode()
	for _, j := range p.Jobs {
		put(jobs, j.Name, githubJob(j))
	}
	put(root, "jobs", jobs)
	return root
}

func githubTriggers(t core.Trigger) *yaml.Node {
	events := t.Events
	if len(events) == 0 {
		events = []string{"push"}
	}
	if len(t.PathFilters) == 0 && len(t.PathIgnoreFilters) == 0 {
		if len(events) == 1 {
			return strNode(events[0])
		}
		return strSeq(events...)
	}

	m := mapNode()
	for _, event := range events {
		switch event {
		case "push", "pull_request":
			em := mapNode()
			if len(t.PathFilters) > 0 {
				put(em, "paths", strSeq(t.PathFilters...))
			}
			// Ignore filters keep their own key: folding them into
			// paths would invert the trigger.
			if len(t.PathIgnoreFilters) > 0 {
				put(em, "paths-ignore", strSeq(t.PathIgnoreFilters...))
			}
			put(m, event, em)
		default:
			put(m, event, nullNode())
		}
	}
	return m
}

func githubJob(j *core.Job) *yaml.Node {
	m := mapNode()

	runsOn := j.RunsOn
	if runsOn == "" {
		runsOn = "ubuntu-latest"
	}
	put(m, "runs-on", strNode(runsOn))

	if len(j.Needs) == 1 {
		put(m, "needs", strNode(j.Needs[0]))
	} else if len(j.Needs) > 1 {
		put(m, "needs", strSeq(j.Needs...))
	}

	if matrix := matrixNode(j); matrix != nil {
		strategy := mapNode()
		put(strategy, "matrix", matrix)
		put(m, "strategy", strategy)
	}

	steps := seqNode()
	for _, s := range j.Steps {
		steps.Content = append(steps.Content, githubStepNode(s))
	}
	put(m, "steps", steps)
	return m
}

func githubStepNode(s *core.Step) *yaml.Node {
	sm := mapNode()
	if s.Name != "" {
		put(sm, "name", strNode(s.Name))
	}
	if s.Uses != "" {
		put(sm, "uses", strNode(s.Uses))
	} else if s.Run != "" {
		put(sm, "run", strNode(s.Run))
	}
	if s.Uses != "" && len(s.With) > 0 {
		put(sm, "with", withNode(s.With))
	}
	return sm
}

func matrixNode(j *core.Job) *yaml.Node {
	if len(j.MatrixInclude) > 0 {
		include := seqNode()
		for _, combo := range j.MatrixInclude {
			include.Content = append(include.Content, withNode(combo))
		}
		m := mapNode()
		put(m, "include", include)
		return m
	}
	if len(j.Matrix) == 0 {
		return nil
	}
	dims := make([]string, 0, len(j.Matrix))
	for dim := range j.Matrix {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	m := mapNode()
	for _, dim := range dims {
		put(m, dim, strSeq(j.Matrix[dim]...))
	}
	return m
}

// =============================================================================
// GitLab CI
// =============================================================================

func gitlabDoc(p *core.Pipeline) *yaml.Node {
	root := mapNode()
	if len(p.Stages) > 0 {
		put(root, "stages", strSeq(p.Stages...))
	}
	if len(p.Trigger.PathFilters) > 0 {
		rule := mapNode()
		put(rule, "changes", strSeq(p.Trigger.PathFilters...))
		workflow := mapNode()
		put(workflow, "rules", seqNode(rule))
		put(root, "workflow", workflow)
	}
	for _, j := range p.Jobs {
		put(root, j.Name, gitlabJob(p, j))
	}
	return root
}

func gitlabJob(p *core.Pipeline, j *core.Job) *yaml.Node {
	m := mapNode()
	if j.Stage != "" {
		put(m, "stage", strNode(j.Stage))
	}
	if j.RunsOn != "" {
		put(m, "tags", strSeq(j.RunsOn))
	}

	// The checkout and cache-restore steps are synthetic on GitLab;
	// they fold back into variables and the cache block.
	var script []string
	var cachePaths []string
	depth := ""
	hasCache := false
	for _, s := range j.Steps {
		switch s.Kind {
		case core.StepCheckout:
			depth = s.With["depth"]
		case core.StepCacheRestore, core.StepCacheSave:
			hasCache = true
			if v := s.With["paths"]; v != "" {
				cachePaths = strings.Split(v, "\n")
			}
		default:
			if s.Run != "" {
				script = append(script, s.Run)
			}
		}
	}

	if depth != "" {
		vars := mapNode()
		put(vars, "GIT_DEPTH", strNode(depth))
		put(m, "variables", vars)
	}
	if hasCache {
		cache := mapNode()
		if len(cachePaths) == 0 {
			cachePaths = []string{".cache/"}
		}
		put(cache, "paths", strSeq(cachePaths...))
		put(m, "cache", cache)
	}
	if len(script) > 0 {
		put(m, "script", strSeq(script...))
	}

	if len(j.Needs) > 0 {
		put(m, "needs", gitlabNeedsNode(j))
	}

	if len(j.Produces) > 0 {
		paths := j.ArtifactPaths
		if len(paths) == 0 {
			paths = []string{"dist/"}
		}
		artifacts := mapNode()
		put(artifacts, "paths", strSeq(paths...))
		put(m, "artifacts", artifacts)
	}

	if node := gitlabParallel(j); node != nil {
		put(m, "parallel", node)
	}

	if p.Trigger.ConcurrencyGroup == "interruptible" {
		put(m, "interruptible", boolNode(true))
	}
	return m
}

// gitlabNeedsNode renders the needs list; edges without artifact
// coupling stay cheap through artifacts: false.
func gitlabNeedsNode(j *core.Job) *yaml.Node {
	consumes := make(map[string]bool, len(j.Consumes))
	for _, c := range j.Consumes {
		consumes[c] = true
	}
	needs := seqNode()
	for _, need := range j.Needs {
		if consumes[need] {
			needs.Content = append(needs.Content, strNode(need))
			continue
		}
		entry := mapNode()
		put(entry, "job", strNode(need))
		put(entry, "artifacts", boolNode(false))
		needs.Content = append(needs.Content, entry)
	}
	return needs
}

func gitlabParallel(j *core.Job) *yaml.Node {
	if len(j.MatrixInclude) > 0 {
		matrix := seqNode()
		for _, combo := range j.MatrixInclude {
			matrix.Content = append(matrix.Content, withNode(combo))
		}
		m := mapNode()
		put(m, "matrix", matrix)
		return m
	}
	if len(j.Matrix) == 0 {
		return nil
	}
	// `parallel: N` round-trips through a single synthetic dimension.
	if shards, ok := j.Matrix["parallel"]; ok && len(j.Matrix) == 1 {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(len(shards))}
	}
	m := mapNode()
	put(m, "matrix", seqNode(matrixNode(j)))
	return m
}
