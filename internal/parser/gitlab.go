package parser

import (
	"fmt"
	"strings"

	"github.com/pipelens-dev/pipelens/pkg/core"
	"gopkg.in/yaml.v3"
)

// Top-level GitLab CI keys that do not declare jobs.
var gitlabReservedKeys = map[string]bool{
	"stages": true, "variables": true, "workflow": true, "default": true,
	"include": true, "image": true, "services": true, "before_script": true,
	"after_script": true, "cache": true,
}

type glJob struct {
	Stage         string               `yaml:"stage"`
	Script        stringOrList         `yaml:"script"`
	BeforeScript  stringOrList         `yaml:"before_script"`
	Needs         []glNeed             `yaml:"needs"`
	Dependencies  []string             `yaml:"dependencies"`
	Artifacts     *glArtifacts         `yaml:"artifacts"`
	Cache         yaml.Node            `yaml:"cache"`
	Tags          []string             `yaml:"tags"`
	Image         yaml.Node            `yaml:"image"`
	Interruptible *bool                `yaml:"interruptible"`
	Parallel      yaml.Node            `yaml:"parallel"`
	Variables     map[string]yaml.Node `yaml:"variables"`
}

type glArtifacts struct {
	Paths []string `yaml:"paths"`
}

// glNeed accepts both `needs: [job]` and `needs: [{job: x, artifacts: true}]`.
type glNeed struct {
	Job       string
	Artifacts bool
}

func (n *glNeed) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		n.Job = node.Value
		n.Artifacts = true // GitLab downloads needs artifacts by default
		return nil
	case yaml.MappingNode:
		var v struct {
			Job       string `yaml:"job"`
			Artifacts *bool  `yaml:"artifacts"`
		}
		if err := node.Decode(&v); err != nil {
			return err
		}
		n.Job = v.Job
		n.Artifacts = v.Artifacts == nil || *v.Artifacts
		return nil
	default:
		return fmt.Errorf("line %d: unsupported needs entry", node.Line)
	}
}

func parseGitLab(path string, data []byte) (*core.Pipeline, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &core.ConfigParseError{Path: path, Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &core.ConfigParseError{Path: path, Err: fmt.Errorf("expected a top-level mapping")}
	}
	root := doc.Content[0]

	p := &core.Pipeline{
		Name:       path,
		Provider:   core.ProviderGitLabCI,
		SourcePath: path,
		JobIndex:   make(map[string]int),
	}

	globalDepth := ""
	defaultInterruptible := false

	type pendingJob struct {
		name string
		spec *glJob
		line int
	}
	var pending []pendingJob

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]
		switch key {
		case "stages":
			if err := val.Decode(&p.Stages); err != nil {
				return nil, &core.ConfigParseError{Path: path, Line: val.Line, Err: err}
			}
		case "variables":
			globalDepth = mappingValue(val, "GIT_DEPTH")
		case "workflow":
			decodeWorkflowRules(val, &p.Trigger)
		case "default":
			var def struct {
				Interruptible bool `yaml:"interruptible"`
			}
			_ = val.Decode(&def)
			defaultInterruptible = def.Interruptible
		default:
			if gitlabReservedKeys[key] || strings.HasPrefix(key, ".") {
				continue // hidden job templates and other reserved keys
			}
			var gj glJob
			if err := val.Decode(&gj); err != nil {
				return nil, &core.ConfigParseError{Path: path, Line: root.Content[i].Line, Err: err}
			}
			pending = append(pending, pendingJob{name: key, spec: &gj, line: root.Content[i].Line})
		}
	}

	if len(pending) == 0 {
		return nil, &core.ConfigParseError{Path: path, Err: fmt.Errorf("configuration declares no jobs")}
	}

	interruptible := defaultInterruptible
	for _, pj := range pending {
		job := buildGitLabJob(pj.name, pj.spec, globalDepth)
		if pj.spec.Interruptible != nil && *pj.spec.Interruptible {
			interruptible = true
		}
		p.JobIndex[job.Name] = len(p.Jobs)
		p.Jobs = append(p.Jobs, job)
	}

	// GitLab auto-cancels redundant pipelines through interruptible
	// jobs; model that as a cancellation group on the trigger.
	if interruptible {
		p.Trigger.ConcurrencyGroup = "interruptible"
		p.Trigger.CancelInProgress = true
	}

	applyStageOrdering(p)
	return p, nil
}

func buildGitLabJob(name string, gj *glJob, globalDepth string) *core.Job {
	job := &core.Job{Name: name, Stage: gj.Stage}
	if job.Stage == "" {
		job.Stage = "test" // GitLab's default stage
	}
	if len(gj.Tags) > 0 {
		job.RunsOn = gj.Tags[0]
	}

	// GitLab checks the repository out implicitly before the script
	// runs; surface that as a step so clone-depth analysis applies.
	depth := globalDepth
	if v := nodeMapValue(gj.Variables, "GIT_DEPTH"); v != "" {
		depth = v
	}
	checkout := newStep("checkout", "", "git fetch", nil)
	checkout.Kind = core.StepCheckout
	checkout.EstimatedDuration = DefaultDuration(core.StepCheckout)
	if depth != "" {
		checkout.With = map[string]string{"depth": depth}
	}
	job.Steps = append(job.Steps, checkout)

	// A declared cache restores before the script, in step order.
	if gj.Cache.Kind != 0 {
		var c struct {
			Paths []string `yaml:"paths"`
		}
		_ = gj.Cache.Decode(&c)
		restore := newStep("cache", "", "", nil)
		restore.Kind = core.StepCacheRestore
		restore.EstimatedDuration = DefaultDuration(core.StepCacheRestore)
		if len(c.Paths) > 0 {
			restore.With = map[string]string{"paths": strings.Join(c.Paths, "\n")}
		}
		job.Steps = append(job.Steps, restore)
	}

	for _, line := range gj.BeforeScript {
		job.Steps = append(job.Steps, newStep("", "", line, nil))
	}
	for _, line := range gj.Script {
		job.Steps = append(job.Steps, newStep("", "", line, nil))
	}

	for _, need := range gj.Needs {
		job.Needs = append(job.Needs, need.Job)
		if need.Artifacts {
			job.Consumes = append(job.Consumes, need.Job)
		}
	}
	// dependencies: restricts artifact downloads to the listed jobs.
	job.Consumes = append(job.Consumes, gj.Dependencies...)

	// GitLab artifacts are addressed by producing job name.
	if gj.Artifacts != nil && len(gj.Artifacts.Paths) > 0 {
		job.Produces = append(job.Produces, name)
		job.ArtifactPaths = append([]string(nil), gj.Artifacts.Paths...)
	}

	decodeParallel(&gj.Parallel, job)
	return job
}

// applyStageOrdering adds the implicit edges of GitLab's stage model:
// a job without explicit needs depends on every job of the nearest
// earlier stage that has jobs.
func applyStageOrdering(p *core.Pipeline) {
	if len(p.Stages) == 0 {
		return
	}
	stagePos := make(map[string]int, len(p.Stages))
	for i, s := range p.Stages {
		stagePos[s] = i
	}
	jobsByStage := make(map[int][]string)
	for _, j := range p.Jobs {
		if pos, ok := stagePos[j.Stage]; ok {
			jobsByStage[pos] = append(jobsByStage[pos], j.Name)
		}
	}

	for _, j := range p.Jobs {
		if len(j.Needs) > 0 {
			continue
		}
		pos, ok := stagePos[j.Stage]
		if !ok {
			continue
		}
		for prev := pos - 1; prev >= 0; prev-- {
			names := jobsByStage[prev]
			if len(names) == 0 {
				continue
			}
			j.Needs = append(j.Needs, names...)
			// Without an explicit needs list GitLab downloads the
			// artifacts of every earlier stage, so implicit edges to
			// producing jobs are load-bearing.
			for _, name := range names {
				if producer := p.Job(name); producer != nil && len(producer.Produces) > 0 {
					j.Consumes = append(j.Consumes, name)
				}
			}
			break
		}
	}
}

func decodeParallel(n *yaml.Node, job *core.Job) {
	switch n.Kind {
	case yaml.ScalarNode:
		var count int
		if err := n.Decode(&count); err == nil && count > 1 {
			shards := make([]string, count)
			for i := range shards {
				shards[i] = fmt.Sprintf("%d", i+1)
			}
			job.Matrix = map[string][]string{"parallel": shards}
		}
	case yaml.MappingNode:
		var spec struct {
			Matrix []map[string]stringOrList `yaml:"matrix"`
		}
		if err := n.Decode(&spec); err != nil {
			return
		}
		matrix := make(map[string][]string)
		for _, dims := range spec.Matrix {
			for k, values := range dims {
				matrix[k] = append(matrix[k], values...)
			}
		}
		if len(matrix) > 0 {
			job.Matrix = matrix
		}
	}
}

func decodeWorkflowRules(n *yaml.Node, trigger *core.Trigger) {
	var wf struct {
		Rules []struct {
			Changes []string `yaml:"changes"`
		} `yaml:"rules"`
	}
	if err := n.Decode(&wf); err != nil {
		return
	}
	for _, rule := range wf.Rules {
		trigger.PathFilters = append(trigger.PathFilters, rule.Changes...)
	}
}

// mappingValue pulls a scalar value out of a mapping node by key.
func mappingValue(n *yaml.Node, key string) string {
	if n.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1].Value
		}
	}
	return ""
}

func nodeMapValue(m map[string]yaml.Node, key string) string {
	if n, ok := m[key]; ok {
		return n.Value
	}
	return ""
}
