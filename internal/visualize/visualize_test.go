package visualize

import (
	"testing"
	"time"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) (*core.Pipeline, *dag.Graph) {
	t.Helper()
	p := &core.Pipeline{
		Name: "ci",
		Jobs: []*core.Job{
			{Name: "build", Steps: []*core.Step{{Kind: core.StepBuild, EstimatedDuration: 2 * time.Minute}}},
			{Name: "unit-test", Needs: []string{"build"}, Steps: []*core.Step{{Kind: core.StepTest, EstimatedDuration: 90 * time.Second}}},
			{Name: "lint", Steps: []*core.Step{{Kind: core.StepRun, EstimatedDuration: 30 * time.Second}}},
		},
		JobIndex: map[string]int{"build": 0, "unit-test": 1, "lint": 2},
	}
	g, err := dag.FromPipeline(p)
	require.NoError(t, err)
	return p, g
}

func TestRender_Mermaid(t *testing.T) {
	p, g := fixture(t)
	out, err := Render(p, g, FormatMermaid)
	require.NoError(t, err)

	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "build --> unit_test", "node IDs are sanitized")
	assert.Contains(t, out, `unit_test["unit-test`)
}

func TestRender_DOT(t *testing.T) {
	p, g := fixture(t)
	out, err := Render(p, g, FormatDOT)
	require.NoError(t, err)

	assert.Contains(t, out, `digraph "ci"`)
	assert.Contains(t, out, `"build" -> "unit-test";`)
	assert.Contains(t, out, "rankdir=LR")
}

func TestRender_ASCII(t *testing.T) {
	p, g := fixture(t)
	out, err := Render(p, g, FormatASCII)
	require.NoError(t, err)

	assert.Contains(t, out, "Level 0:")
	assert.Contains(t, out, "Level 1:")
	assert.Contains(t, out, "unit-test (1m30s)  <- build")
}

func TestRender_UnknownFormat(t *testing.T) {
	p, g := fixture(t)
	_, err := Render(p, g, Format("png"))
	assert.Error(t, err)
}
