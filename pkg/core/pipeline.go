package core

import (
	"encoding/json"
	"sort"
	"time"
)

// =============================================================================
// Provider
// =============================================================================

// Provider identifies a supported CI configuration dialect.
// Providers form a closed set: adding one means adding a constant here
// and a parse function in internal/parser, not subclassing.
type Provider string

// Supported providers.
const (
	ProviderGitHubActions Provider = "github-actions"
	ProviderGitLabCI      Provider = "gitlab-ci"
)

// String returns the provider tag as used in reports and JSON output.
func (p Provider) String() string { return string(p) }

// =============================================================================
// Step
// =============================================================================

// StepKind classifies what a step does. The kind drives default duration
// estimation and analyzer pattern matching.
type StepKind string

// Step kinds.
const (
	StepCheckout     StepKind = "checkout"
	StepInstall      StepKind = "install"
	StepCacheRestore StepKind = "cache-restore"
	StepCacheSave    StepKind = "cache-save"
	StepBuild        StepKind = "build"
	StepTest         StepKind = "test"
	StepDeploy       StepKind = "deploy"
	StepRun          StepKind = "run"
)

// Step is a single unit of work inside a job. A step belongs to exactly
// one job; jobs exclusively own their step slices.
type Step struct {
	Name string   `json:"name,omitempty"`
	Kind StepKind `json:"kind"`

	// Run holds the shell command for script steps; Uses holds the action
	// reference (e.g. "actions/checkout@v4") for action steps. At most one
	// of the two is set.
	Run  string `json:"run,omitempty"`
	Uses string `json:"uses,omitempty"`

	// With holds action inputs (GitHub) or step-level variables (GitLab).
	With map[string]string `json:"with,omitempty"`

	// EstimatedDuration comes from calibration history when available,
	// otherwise from the per-kind default table. It is serialized in
	// seconds, see MarshalJSON.
	EstimatedDuration time.Duration `json:"-"`
}

// stepJSON is the wire form of Step. Durations cross the boundary in
// seconds, not time.Duration's native nanoseconds.
type stepJSON struct {
	Name                  string            `json:"name,omitempty"`
	Kind                  StepKind          `json:"kind"`
	Run                   string            `json:"run,omitempty"`
	Uses                  string            `json:"uses,omitempty"`
	With                  map[string]string `json:"with,omitempty"`
	EstimatedDurationSecs float64           `json:"estimated_duration_secs"`
}

// MarshalJSON emits the duration in seconds under estimated_duration_secs.
func (s *Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(stepJSON{
		Name:                  s.Name,
		Kind:                  s.Kind,
		Run:                   s.Run,
		Uses:                  s.Uses,
		With:                  s.With,
		EstimatedDurationSecs: s.EstimatedDuration.Seconds(),
	})
}

// UnmarshalJSON accepts the form emitted by MarshalJSON.
func (s *Step) UnmarshalJSON(data []byte) error {
	var w stepJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Step{
		Name:              w.Name,
		Kind:              w.Kind,
		Run:               w.Run,
		Uses:              w.Uses,
		With:              w.With,
		EstimatedDuration: time.Duration(w.EstimatedDurationSecs * float64(time.Second)),
	}
	return nil
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	out := *s
	if s.With != nil {
		out.With = make(map[string]string, len(s.With))
		for k, v := range s.With {
			out.With[k] = v
		}
	}
	return &out
}

// =============================================================================
// Job
// =============================================================================

// Job is a node in the pipeline DAG.
type Job struct {
	Name  string  `json:"name"`
	Steps []*Step `json:"steps"`

	// Needs lists predecessor job names. Every entry must resolve to a
	// job in the same pipeline and the relation must be acyclic; the
	// parser rejects anything else.
	Needs []string `json:"needs,omitempty"`

	// RunsOn is the runner/executor label ("ubuntu-latest", "docker").
	RunsOn string `json:"runs_on,omitempty"`

	// Produces and Consumes are declared artifact names
	// (upload-artifact/download-artifact, or GitLab artifacts and
	// dependencies). They establish which needs edges are load-bearing.
	Produces []string `json:"produces,omitempty"`
	Consumes []string `json:"consumes,omitempty"`

	// ArtifactPaths holds the declared artifact file patterns, kept so
	// a rewritten configuration round-trips the artifacts block.
	ArtifactPaths []string `json:"artifact_paths,omitempty"`

	// Matrix maps dimension name to its values. The combination count is
	// the product of dimension sizes.
	Matrix map[string][]string `json:"matrix,omitempty"`

	// MatrixInclude lists explicit combinations instead of a cross
	// product. When set it takes precedence over Matrix; the matrix
	// sharding fix produces it.
	MatrixInclude []map[string]string `json:"matrix_include,omitempty"`

	// Stage is the GitLab stage name; empty for providers without stages.
	Stage string `json:"stage,omitempty"`
}

// EstimatedDuration is the sum of the job's step estimates.
func (j *Job) EstimatedDuration() time.Duration {
	var total time.Duration
	for _, s := range j.Steps {
		total += s.EstimatedDuration
	}
	return total
}

// MatrixSize returns the number of matrix combinations, or 1 when the
// job declares no matrix.
func (j *Job) MatrixSize() int {
	if len(j.MatrixInclude) > 0 {
		return len(j.MatrixInclude)
	}
	if len(j.Matrix) == 0 {
		return 1
	}
	size := 1
	for _, values := range j.Matrix {
		size *= len(values)
	}
	return size
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	out := &Job{
		Name:   j.Name,
		RunsOn: j.RunsOn,
		Stage:  j.Stage,
	}
	out.Steps = make([]*Step, len(j.Steps))
	for i, s := range j.Steps {
		out.Steps[i] = s.Clone()
	}
	out.Needs = append([]string(nil), j.Needs...)
	out.Produces = append([]string(nil), j.Produces...)
	out.Consumes = append([]string(nil), j.Consumes...)
	out.ArtifactPaths = append([]string(nil), j.ArtifactPaths...)
	if j.Matrix != nil {
		out.Matrix = make(map[string][]string, len(j.Matrix))
		for k, v := range j.Matrix {
			out.Matrix[k] = append([]string(nil), v...)
		}
	}
	if j.MatrixInclude != nil {
		out.MatrixInclude = make([]map[string]string, len(j.MatrixInclude))
		for i, combo := range j.MatrixInclude {
			c := make(map[string]string, len(combo))
			for k, v := range combo {
				c[k] = v
			}
			out.MatrixInclude[i] = c
		}
	}
	return out
}

// =============================================================================
// Pipeline
// =============================================================================

// Trigger holds the pipeline-level trigger and scheduling metadata the
// waste rules inspect.
type Trigger struct {
	// Events lists trigger event names ("push", "pull_request", ...).
	Events []string `json:"events,omitempty"`
	// PathFilters lists path patterns restricting when the pipeline
	// fires. Empty means the pipeline fires on every change.
	PathFilters []string `json:"path_filters,omitempty"`
	// PathIgnoreFilters lists path patterns that suppress the pipeline
	// (GitHub's paths-ignore). Kept apart from PathFilters: the two
	// have opposite polarity and must not be merged on output.
	PathIgnoreFilters []string `json:"path_ignore_filters,omitempty"`
	// ConcurrencyGroup is the declared concurrency/cancellation group;
	// empty when none is declared.
	ConcurrencyGroup string `json:"concurrency_group,omitempty"`
	// CancelInProgress reports whether re-runs cancel queued runs.
	CancelInProgress bool `json:"cancel_in_progress,omitempty"`
}

// Pipeline is the normalized DAG-shaped view of one CI configuration
// file. It is built once per analysis invocation and immutable
// thereafter; the optimizer derives new instances via Clone.
type Pipeline struct {
	Name       string   `json:"name"`
	Provider   Provider `json:"provider"`
	SourcePath string   `json:"source_path"`

	// Jobs preserves source declaration order. JobIndex maps name to
	// position in Jobs.
	Jobs     []*Job         `json:"jobs"`
	JobIndex map[string]int `json:"-"`

	Trigger Trigger `json:"trigger"`

	// Stages preserves GitLab stage declaration order; nil for GitHub.
	Stages []string `json:"stages,omitempty"`

	// Source holds the raw configuration bytes the pipeline was parsed
	// from. Re-serialization patches this text instead of rebuilding
	// it, so keys outside the normalized model survive a rewrite.
	// Empty for pipelines constructed in code.
	Source []byte `json:"-"`
}

// Job returns the named job, or nil when absent.
func (p *Pipeline) Job(name string) *Job {
	if i, ok := p.JobIndex[name]; ok {
		return p.Jobs[i]
	}
	return nil
}

// JobNames returns all job names sorted lexicographically.
func (p *Pipeline) JobNames() []string {
	names := make([]string, 0, len(p.Jobs))
	for _, j := range p.Jobs {
		names = append(names, j.Name)
	}
	sort.Strings(names)
	return names
}

// StepCount returns the total number of steps across all jobs.
func (p *Pipeline) StepCount() int {
	count := 0
	for _, j := range p.Jobs {
		count += len(j.Steps)
	}
	return count
}

// TotalEstimatedDuration is the sequential sum of all job estimates,
// i.e. the wall-clock time with zero parallelism.
func (p *Pipeline) TotalEstimatedDuration() time.Duration {
	var total time.Duration
	for _, j := range p.Jobs {
		total += j.EstimatedDuration()
	}
	return total
}

// Clone returns a deep copy of the pipeline, preserving job order.
func (p *Pipeline) Clone() *Pipeline {
	out := &Pipeline{
		Name:       p.Name,
		Provider:   p.Provider,
		SourcePath: p.SourcePath,
		Trigger:    p.Trigger,
	}
	out.Trigger.Events = append([]string(nil), p.Trigger.Events...)
	out.Trigger.PathFilters = append([]string(nil), p.Trigger.PathFilters...)
	out.Trigger.PathIgnoreFilters = append([]string(nil), p.Trigger.PathIgnoreFilters...)
	out.Stages = append([]string(nil), p.Stages...)
	out.Source = append([]byte(nil), p.Source...)
	out.Jobs = make([]*Job, len(p.Jobs))
	out.JobIndex = make(map[string]int, len(p.Jobs))
	for i, j := range p.Jobs {
		out.Jobs[i] = j.Clone()
		out.JobIndex[j.Name] = i
	}
	return out
}
