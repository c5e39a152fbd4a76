package analyze

import (
	"time"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/internal/history"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// Context provides read-only access to the pipeline under analysis.
// Rules must not mutate anything reachable from it.
type Context struct {
	pipeline *core.Pipeline
	graph    *dag.Graph
	config   *Config
	stats    *history.Statistics

	finish map[string]time.Duration // lazily computed schedule
}

// NewContext builds an analysis context. The graph must have been built
// from the same pipeline.
func NewContext(p *core.Pipeline, g *dag.Graph, cfg *Config, stats *history.Statistics) *Context {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Context{pipeline: p, graph: g, config: cfg, stats: stats}
}

// Pipeline returns the pipeline under analysis.
func (c *Context) Pipeline() *core.Pipeline { return c.pipeline }

// Graph returns the dependency graph.
func (c *Context) Graph() *dag.Graph { return c.graph }

// Thresholds returns the rule thresholds in effect.
func (c *Context) Thresholds() Thresholds { return c.config.Thresholds }

// Stats returns calibration history, or nil when none was supplied.
func (c *Context) Stats() *history.Statistics { return c.stats }

// EarliestFinish returns the earliest-finish time of a job on the
// current schedule. The schedule is computed once and cached; a context
// always wraps an already-validated acyclic graph.
func (c *Context) EarliestFinish(job string) time.Duration {
	if c.finish == nil {
		finish, err := c.graph.EarliestFinishTimes()
		if err != nil {
			// Unreachable for parser-validated pipelines.
			panic("analyze: schedule on cyclic graph: " + err.Error())
		}
		c.finish = finish
	}
	return c.finish[job]
}
