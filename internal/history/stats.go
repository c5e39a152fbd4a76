// Package history loads pre-fetched pipeline run statistics used to
// calibrate duration estimates. The core never talks to a CI provider
// API; the history fetcher is an external collaborator and this package
// only consumes its JSON output.
package history

import (
	"encoding/json"
	"fmt"
	"os"
)

// JobStats holds observed timing for one job across historical runs.
type JobStats struct {
	P50DurationSecs float64 `json:"p50_duration_secs"`
	P90DurationSecs float64 `json:"p90_duration_secs,omitempty"`
	SuccessRate     float64 `json:"success_rate"`
	Runs            int     `json:"runs"`
}

// Statistics is the calibration input produced by the external history
// fetcher.
type Statistics struct {
	Repo         string              `json:"repo,omitempty"`
	Workflow     string              `json:"workflow,omitempty"`
	RunsAnalyzed int                 `json:"runs_analyzed"`
	Jobs         map[string]JobStats `json:"jobs"`
}

// Load reads a statistics file written by the history fetcher.
func Load(path string) (*Statistics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	var stats Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("parsing history file %s: %w", path, err)
	}
	return &stats, nil
}

// Job returns the stats for a job name, if observed.
func (s *Statistics) Job(name string) (JobStats, bool) {
	if s == nil {
		return JobStats{}, false
	}
	js, ok := s.Jobs[name]
	return js, ok
}

// SuccessRate returns the run-weighted mean success rate across jobs,
// or 1.0 when no history is present. The health score uses this as its
// success-rate proxy.
func (s *Statistics) SuccessRate() float64 {
	if s == nil || len(s.Jobs) == 0 {
		return 1.0
	}
	var weighted, runs float64
	for _, js := range s.Jobs {
		n := float64(js.Runs)
		if n == 0 {
			n = 1
		}
		weighted += js.SuccessRate * n
		runs += n
	}
	if runs == 0 {
		return 1.0
	}
	return weighted / runs
}
