package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	content := `{
  "repo": "acme/widgets",
  "runs_analyzed": 50,
  "jobs": {
    "build": {"p50_duration_secs": 95.5, "success_rate": 0.98, "runs": 50},
    "test": {"p50_duration_secs": 210, "p90_duration_secs": 340, "success_rate": 0.82, "runs": 50}
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	stats, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", stats.Repo)
	assert.Equal(t, 50, stats.RunsAnalyzed)

	build, ok := stats.Job("build")
	require.True(t, ok)
	assert.InDelta(t, 95.5, build.P50DurationSecs, 1e-9)

	_, ok = stats.Job("deploy")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSuccessRate(t *testing.T) {
	var nilStats *Statistics
	assert.Equal(t, 1.0, nilStats.SuccessRate())

	stats := &Statistics{Jobs: map[string]JobStats{
		"build": {SuccessRate: 1.0, Runs: 30},
		"test":  {SuccessRate: 0.5, Runs: 10},
	}}
	// Run-weighted: (1.0*30 + 0.5*10) / 40
	assert.InDelta(t, 0.875, stats.SuccessRate(), 1e-9)
}
