package report

import (
	"encoding/json"
	"testing"

	"github.com/pipelens-dev/pipelens/internal/parser"
	_ "github.com/pipelens-dev/pipelens/pkg/analyze/rules"
	"github.com/pipelens-dev/pipelens/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workflow = `
name: ci
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
        with:
          fetch-depth: 1
      - run: npm ci
      - run: npm run build
  test:
    runs-on: ubuntu-latest
    needs: build
    steps:
      - run: npm test
`

func buildReport(t *testing.T, source string) *core.AnalysisReport {
	t.Helper()
	p, err := parser.ParseAuto(".github/workflows/ci.yml", []byte(source), parser.Options{})
	require.NoError(t, err)
	r, err := NewBuilder(nil).Build(p, nil)
	require.NoError(t, err)
	return r
}

func TestBuild_Metrics(t *testing.T) {
	r := buildReport(t, workflow)

	assert.NotEmpty(t, r.ReportID)
	assert.Equal(t, "ci", r.PipelineName)
	assert.Equal(t, core.ProviderGitHubActions, r.Provider)
	assert.Equal(t, 2, r.JobCount)
	assert.Equal(t, 4, r.StepCount)
	assert.Equal(t, 1, r.MaxParallelism, "a linear pipeline runs one job at a time")
	assert.Equal(t, []string{"build", "test"}, r.CriticalPath)
	assert.Equal(t, r.CriticalPathDurationSecs, r.TotalEstimatedDurationSecs,
		"with a single chain the critical path is the whole pipeline")
	assert.LessOrEqual(t, r.OptimizedDurationSecs, r.TotalEstimatedDurationSecs)
	assert.NotNil(t, r.Findings)
	assert.Equal(t, core.Grade(r.HealthScore), r.HealthGrade)
}

func TestBuild_HealthScoreRespondsToFindings(t *testing.T) {
	messy := buildReport(t, workflow)

	clean := buildReport(t, `
name: ci
on:
  push:
    paths: ["src/**"]
concurrency:
  group: ci-${{ github.ref }}
  cancel-in-progress: true
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
        with:
          fetch-depth: 1
      - uses: actions/setup-node@v4
        with:
          cache: npm
      - run: npm ci
      - run: npm run build
`)

	assert.Greater(t, clean.HealthScore, messy.HealthScore)
	assert.GreaterOrEqual(t, clean.HealthScore, 90, "a tidy single-job pipeline grades an A")
}

func TestBuild_ScoreStaysInRange(t *testing.T) {
	r := buildReport(t, `
on: push
jobs:
  a:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: npm ci
      - run: pip install -r requirements.txt
      - run: cargo build
      - run: docker build .
  b:
    runs-on: ubuntu-latest
    needs: a
    strategy:
      matrix:
        os: [a, b, c, d]
        v: ["1", "2", "3", "4"]
    steps:
      - uses: actions/checkout@v4
      - run: npm test
`)
	assert.GreaterOrEqual(t, r.HealthScore, 0)
	assert.LessOrEqual(t, r.HealthScore, 100)
}

func TestBuild_JSONFieldNames(t *testing.T) {
	r := buildReport(t, workflow)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, field := range []string{
		"pipeline_name", "source_file", "provider", "job_count",
		"step_count", "max_parallelism", "critical_path",
		"critical_path_duration_secs", "total_estimated_duration_secs",
		"optimized_duration_secs", "findings", "health_score",
	} {
		assert.Contains(t, decoded, field)
	}
}
