package parser

import (
	"fmt"
	"strings"

	"github.com/pipelens-dev/pipelens/pkg/core"
	"gopkg.in/yaml.v3"
)

// ghWorkflow mirrors the GitHub Actions workflow document. Fields with
// several accepted shapes stay as yaml.Node and are normalized below.
type ghWorkflow struct {
	Name        string    `yaml:"name"`
	On          yaml.Node `yaml:"on"`
	Concurrency yaml.Node `yaml:"concurrency"`
	Jobs        yaml.Node `yaml:"jobs"`
}

type ghJob struct {
	Name     string            `yaml:"name"`
	RunsOn   stringOrList      `yaml:"runs-on"`
	Needs    stringOrList      `yaml:"needs"`
	Strategy *ghStrategy       `yaml:"strategy"`
	Steps    []ghStep          `yaml:"steps"`
	Env      map[string]string `yaml:"env"`
}

type ghStrategy struct {
	Matrix yaml.Node `yaml:"matrix"`
}

type ghStep struct {
	Name string               `yaml:"name"`
	Uses string               `yaml:"uses"`
	Run  string               `yaml:"run"`
	With map[string]yaml.Node `yaml:"with"`
}

// stringOrList accepts both `needs: build` and `needs: [a, b]`.
type stringOrList []string

func (s *stringOrList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v string
		if err := n.Decode(&v); err != nil {
			return err
		}
		*s = []string{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := n.Decode(&v); err != nil {
			return err
		}
		*s = v
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list", n.Line)
	}
}

func parseGitHub(path string, data []byte) (*core.Pipeline, error) {
	var wf ghWorkflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, &core.ConfigParseError{Path: path, Err: err}
	}
	if wf.Jobs.Kind != yaml.MappingNode || len(wf.Jobs.Content) == 0 {
		return nil, &core.ConfigParseError{Path: path, Err: fmt.Errorf("workflow declares no jobs")}
	}

	p := &core.Pipeline{
		Name:       wf.Name,
		Provider:   core.ProviderGitHubActions,
		SourcePath: path,
		JobIndex:   make(map[string]int),
	}
	if p.Name == "" {
		p.Name = path
	}

	if err := decodeTriggers(&wf.On, &p.Trigger); err != nil {
		return nil, &core.ConfigParseError{Path: path, Line: wf.On.Line, Err: err}
	}
	if err := decodeConcurrency(&wf.Concurrency, &p.Trigger); err != nil {
		return nil, &core.ConfigParseError{Path: path, Line: wf.Concurrency.Line, Err: err}
	}

	// Mapping nodes hold alternating key/value children; walking them
	// directly preserves source declaration order.
	for i := 0; i+1 < len(wf.Jobs.Content); i += 2 {
		id := wf.Jobs.Content[i].Value
		var gj ghJob
		if err := wf.Jobs.Content[i+1].Decode(&gj); err != nil {
			return nil, &core.ConfigParseError{Path: path, Line: wf.Jobs.Content[i].Line, Err: err}
		}
		job, err := buildGitHubJob(id, &gj)
		if err != nil {
			return nil, &core.ConfigParseError{Path: path, Line: wf.Jobs.Content[i].Line, Err: err}
		}
		p.JobIndex[job.Name] = len(p.Jobs)
		p.Jobs = append(p.Jobs, job)
	}
	return p, nil
}

func buildGitHubJob(id string, gj *ghJob) (*core.Job, error) {
	job := &core.Job{
		Name:  id,
		Needs: gj.Needs,
	}
	if len(gj.RunsOn) > 0 {
		job.RunsOn = gj.RunsOn[0]
	}

	if gj.Strategy != nil && gj.Strategy.Matrix.Kind == yaml.MappingNode {
		job.Matrix = decodeMatrix(&gj.Strategy.Matrix)
	}

	for _, gs := range gj.Steps {
		with := stringifyWith(gs.With)
		step := newStep(gs.Name, gs.Uses, gs.Run, with)
		job.Steps = append(job.Steps, step)

		ref := strings.ToLower(gs.Uses)
		switch {
		case strings.HasPrefix(ref, "actions/upload-artifact"):
			job.Produces = append(job.Produces, artifactName(with))
		case strings.HasPrefix(ref, "actions/download-artifact"):
			job.Consumes = append(job.Consumes, artifactName(with))
		}
	}
	return job, nil
}

// artifactName resolves the artifact name input; GitHub defaults the
// name to "artifact" when omitted.
func artifactName(with map[string]string) string {
	if n, ok := with["name"]; ok && n != "" {
		return n
	}
	return "artifact"
}

func stringifyWith(with map[string]yaml.Node) map[string]string {
	if len(with) == 0 {
		return nil
	}
	out := make(map[string]string, len(with))
	for k, n := range with {
		out[k] = n.Value
	}
	return out
}

// decodeMatrix flattens matrix dimensions to string values, skipping
// include/exclude refinements which do not change the dimension set.
func decodeMatrix(n *yaml.Node) map[string][]string {
	matrix := make(map[string][]string)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if key == "include" || key == "exclude" {
			continue
		}
		val := n.Content[i+1]
		if val.Kind != yaml.SequenceNode {
			continue
		}
		values := make([]string, 0, len(val.Content))
		for _, item := range val.Content {
			values = append(values, item.Value)
		}
		matrix[key] = values
	}
	if len(matrix) == 0 {
		return nil
	}
	return matrix
}

// decodeTriggers normalizes the three accepted shapes of `on`:
// a scalar event, a sequence of events, or a mapping of event to filter.
func decodeTriggers(n *yaml.Node, trigger *core.Trigger) error {
	switch n.Kind {
	case 0: // absent
		return nil
	case yaml.ScalarNode:
		trigger.Events = []string{n.Value}
		return nil
	case yaml.SequenceNode:
		return n.Decode(&trigger.Events)
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			event := n.Content[i].Value
			trigger.Events = append(trigger.Events, event)
			spec := n.Content[i+1]
			if spec.Kind != yaml.MappingNode {
				continue
			}
			var filters struct {
				Paths       []string `yaml:"paths"`
				PathsIgnore []string `yaml:"paths-ignore"`
			}
			if err := spec.Decode(&filters); err != nil {
				return err
			}
			trigger.PathFilters = append(trigger.PathFilters, filters.Paths...)
			trigger.PathIgnoreFilters = append(trigger.PathIgnoreFilters, filters.PathsIgnore...)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported trigger shape", n.Line)
	}
}

func decodeConcurrency(n *yaml.Node, trigger *core.Trigger) error {
	switch n.Kind {
	case 0:
		return nil
	case yaml.ScalarNode:
		trigger.ConcurrencyGroup = n.Value
		return nil
	case yaml.MappingNode:
		var c struct {
			Group            string `yaml:"group"`
			CancelInProgress bool   `yaml:"cancel-in-progress"`
		}
		if err := n.Decode(&c); err != nil {
			return err
		}
		trigger.ConcurrencyGroup = c.Group
		trigger.CancelInProgress = c.CancelInProgress
		return nil
	default:
		return fmt.Errorf("line %d: unsupported concurrency shape", n.Line)
	}
}
