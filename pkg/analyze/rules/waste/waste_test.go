package waste

import (
	"testing"
	"time"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, p *core.Pipeline) *analyze.Context {
	t.Helper()
	if p.JobIndex == nil {
		p.JobIndex = make(map[string]int)
		for i, j := range p.Jobs {
			p.JobIndex[j.Name] = i
		}
	}
	g, err := dag.FromPipeline(p)
	require.NoError(t, err)
	return analyze.NewContext(p, g, nil, nil)
}

func runJob(name string) *core.Job {
	return &core.Job{Name: name, Steps: []*core.Step{{
		Kind: core.StepRun, Run: "make", EstimatedDuration: 60 * time.Second,
	}}}
}

func TestWA01_MissingPathFilters(t *testing.T) {
	p := &core.Pipeline{
		Jobs:    []*core.Job{runJob("build")},
		Trigger: core.Trigger{Events: []string{"push"}},
	}
	findings := checkMissingPathFilters(newContext(t, p))
	require.Len(t, findings, 1)
	assert.Equal(t, "WA01", findings[0].RuleID)
	assert.False(t, findings[0].AutoFixable, "filter choice needs repository knowledge")

	p.Trigger.PathFilters = []string{"src/**"}
	assert.Empty(t, checkMissingPathFilters(newContext(t, p)))

	p.Trigger.PathFilters = nil
	p.Trigger.PathIgnoreFilters = []string{"docs/**"}
	assert.Empty(t, checkMissingPathFilters(newContext(t, p)), "ignore filters also gate the trigger")
}

func TestWA02_DeepClone(t *testing.T) {
	checkout := &core.Step{Kind: core.StepCheckout, Uses: "actions/checkout@v4", EstimatedDuration: 10 * time.Second}
	p := &core.Pipeline{Jobs: []*core.Job{{Name: "build", Steps: []*core.Step{checkout}}}}

	findings := checkDeepClones(newContext(t, p))
	require.Len(t, findings, 1)
	assert.Equal(t, "shallow-clone:build", findings[0].FixID)

	checkout.With = map[string]string{"fetch-depth": "1"}
	assert.Empty(t, checkDeepClones(newContext(t, p)))

	// fetch-depth: 0 means full history and still counts as deep
	checkout.With = map[string]string{"fetch-depth": "0"}
	assert.Len(t, checkDeepClones(newContext(t, p)), 1)
}

func TestWA03_NoConcurrencyGroup(t *testing.T) {
	p := &core.Pipeline{Jobs: []*core.Job{runJob("build")}}

	findings := checkConcurrencyGroup(newContext(t, p))
	require.Len(t, findings, 1)
	assert.True(t, findings[0].AutoFixable)
	assert.Equal(t, 60, findings[0].EstimatedSavingsSecs,
		"a cancelled redundant run saves one critical path")

	p.Trigger.ConcurrencyGroup = "ci-main"
	assert.Empty(t, checkConcurrencyGroup(newContext(t, p)))
}

func TestWA04_MatrixExplosion(t *testing.T) {
	j := runJob("test")
	j.Matrix = map[string][]string{
		"os":   {"linux", "macos", "windows"},
		"node": {"16", "18", "20", "22", "23"},
	}
	p := &core.Pipeline{Jobs: []*core.Job{j}}

	findings := checkMatrixExplosion(newContext(t, p))
	require.Len(t, findings, 1, "15 combinations exceed the default threshold of 12")
	assert.Equal(t, "shard-matrix:test", findings[0].FixID)
	assert.Equal(t, (15-12)*60, findings[0].EstimatedSavingsSecs)

	j.Matrix = map[string][]string{"os": {"linux", "macos"}}
	assert.Empty(t, checkMatrixExplosion(newContext(t, p)))
}
