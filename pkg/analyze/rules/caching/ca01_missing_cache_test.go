package caching

import (
	"testing"
	"time"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, jobs ...*core.Job) *analyze.Context {
	t.Helper()
	p := &core.Pipeline{
		Name:     "test",
		Provider: core.ProviderGitHubActions,
		JobIndex: make(map[string]int),
	}
	for i, j := range jobs {
		p.Jobs = append(p.Jobs, j)
		p.JobIndex[j.Name] = i
	}
	g, err := dag.FromPipeline(p)
	require.NoError(t, err)
	return analyze.NewContext(p, g, nil, nil)
}

func step(kind core.StepKind, run, uses string) *core.Step {
	return &core.Step{Kind: kind, Run: run, Uses: uses, EstimatedDuration: 30 * time.Second}
}

func TestCA01_UncachedNpmInstall(t *testing.T) {
	ctx := newContext(t, &core.Job{
		Name:  "build",
		Steps: []*core.Step{step(core.StepInstall, "npm ci", "")},
	})

	findings := checkMissingCache(ctx)
	require.Len(t, findings, 1, "a lone npm ci must yield exactly one caching finding")

	f := findings[0]
	assert.Equal(t, core.CategoryCaching, f.Category)
	assert.Equal(t, []string{"build"}, f.AffectedJobs)
	assert.Equal(t, "add-cache:npm", f.FixID)
	assert.True(t, f.AutoFixable)
	assert.Equal(t, 150, f.EstimatedSavingsSecs)
	assert.InDelta(t, 0.6, f.Confidence, 0.001, "loose command match carries lower confidence")
}

func TestCA01_CacheRestoreBeforeInstall(t *testing.T) {
	ctx := newContext(t, &core.Job{
		Name: "build",
		Steps: []*core.Step{
			step(core.StepCacheRestore, "", "actions/cache@v4"),
			step(core.StepInstall, "npm ci", ""),
		},
	})

	assert.Empty(t, checkMissingCache(ctx), "a preceding cache restore silences the rule")
}

func TestCA01_CacheRestoreAfterInstallStillFires(t *testing.T) {
	ctx := newContext(t, &core.Job{
		Name: "build",
		Steps: []*core.Step{
			step(core.StepInstall, "npm ci", ""),
			step(core.StepCacheSave, "", "actions/cache/save@v4"),
		},
	})

	assert.Len(t, checkMissingCache(ctx), 1, "only restores before the install count")
}

func TestCA01_SetupActionBuiltinCache(t *testing.T) {
	setup := step(core.StepInstall, "", "actions/setup-node@v4")
	setup.With = map[string]string{"cache": "npm"}
	ctx := newContext(t, &core.Job{
		Name: "build",
		Steps: []*core.Step{
			setup,
			step(core.StepInstall, "npm ci", ""),
		},
	})

	assert.Empty(t, checkMissingCache(ctx), "setup-node with cache input serves npm installs")
}

func TestCA01_ExactActionMatchHighConfidence(t *testing.T) {
	ctx := newContext(t, &core.Job{
		Name:  "image",
		Steps: []*core.Step{step(core.StepBuild, "", "docker/build-push-action@v5")},
	})

	findings := checkMissingCache(ctx)
	require.Len(t, findings, 1)
	assert.InDelta(t, 0.9, findings[0].Confidence, 0.001)
	assert.Equal(t, "add-cache:docker", findings[0].FixID)
}

func TestCA01_OneFindingPerEcosystemPerJob(t *testing.T) {
	ctx := newContext(t, &core.Job{
		Name: "build",
		Steps: []*core.Step{
			step(core.StepInstall, "npm ci", ""),
			step(core.StepInstall, "npm install -g something", ""),
			step(core.StepInstall, "pip install -r requirements.txt", ""),
		},
	})

	findings := checkMissingCache(ctx)
	require.Len(t, findings, 2, "duplicate npm installs collapse into one finding")
}
