// Package dag provides directed acyclic graph operations for job
// dependencies. It supports cycle detection, topological sorting,
// execution levels, and duration-weighted critical path computation.
//
// The graph is an arena: jobs are stored in insertion order and
// addressed by index, with the needs relation kept as index slices in
// both directions. Callers translate between names and indexes through
// the interned name table.
package dag

import (
	"fmt"
	"sort"
	"time"

	"github.com/pipelens-dev/pipelens/pkg/core"
)

// Graph represents the needs relation of a pipeline as a DAG over an
// arena of job indexes.
type Graph struct {
	names     []string
	index     map[string]int
	durations []time.Duration
	succ      [][]int // parent -> children (dependents)
	pred      [][]int // child -> parents (dependencies)
}

// New creates a new empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// FromPipeline builds a graph from a parsed pipeline. Unknown needs
// references and cycles are reported with the pipeline's error types;
// a pipeline that survived the parser never trips either.
func FromPipeline(p *core.Pipeline) (*Graph, error) {
	g := New()
	for _, j := range p.Jobs {
		g.AddNode(j.Name, j.EstimatedDuration())
	}
	for _, j := range p.Jobs {
		for _, need := range j.Needs {
			if _, ok := g.index[need]; !ok {
				return nil, &core.UnknownJobReferenceError{Job: j.Name, Ref: need, Path: p.SourcePath}
			}
			if err := g.AddEdge(need, j.Name); err != nil {
				return nil, err
			}
		}
	}
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &core.CyclicDependencyError{Cycle: cycle, Path: p.SourcePath}
	}
	return g, nil
}

// AddNode adds a node and returns its index. Adding an existing name
// updates its duration and returns the existing index.
func (g *Graph) AddNode(name string, duration time.Duration) int {
	if i, ok := g.index[name]; ok {
		g.durations[i] = duration
		return i
	}
	i := len(g.names)
	g.index[name] = i
	g.names = append(g.names, name)
	g.durations = append(g.durations, duration)
	g.succ = append(g.succ, nil)
	g.pred = append(g.pred, nil)
	return i
}

// AddEdge adds a directed edge from parent to child (child depends on
// parent). Duplicate edges are ignored.
func (g *Graph) AddEdge(parent, child string) error {
	pi, ok := g.index[parent]
	if !ok {
		return fmt.Errorf("parent node %q does not exist", parent)
	}
	ci, ok := g.index[child]
	if !ok {
		return fmt.Errorf("child node %q does not exist", child)
	}
	if pi == ci {
		return fmt.Errorf("self-loop detected: %s", parent)
	}
	for _, c := range g.succ[pi] {
		if c == ci {
			return nil
		}
	}
	g.succ[pi] = append(g.succ[pi], ci)
	g.pred[ci] = append(g.pred[ci], pi)
	return nil
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.names) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.succ {
		count += len(children)
	}
	return count
}

// Name returns the job name at the given index.
func (g *Graph) Name(i int) string { return g.names[i] }

// Index returns the index of the named job.
func (g *Graph) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Duration returns the estimated duration of the job at index i.
func (g *Graph) Duration(i int) time.Duration { return g.durations[i] }

// Durations returns a copy of the per-index duration table, suitable as
// a starting point for sampled-duration critical path queries.
func (g *Graph) Durations() []time.Duration {
	return append([]time.Duration(nil), g.durations...)
}

// Parents returns the dependency names of a node, sorted.
func (g *Graph) Parents(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.sortedNames(g.pred[i])
}

// Children returns the dependent names of a node, sorted.
func (g *Graph) Children(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.sortedNames(g.succ[i])
}

// Roots returns nodes with no dependencies, sorted.
func (g *Graph) Roots() []string {
	var roots []string
	for i, parents := range g.pred {
		if len(parents) == 0 {
			roots = append(roots, g.names[i])
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns nodes with no dependents, sorted.
func (g *Graph) Leaves() []string {
	var leaves []string
	for i, children := range g.succ {
		if len(children) == 0 {
			leaves = append(leaves, g.names[i])
		}
	}
	sort.Strings(leaves)
	return leaves
}

func (g *Graph) sortedNames(indexes []int) []string {
	names := make([]string, len(indexes))
	for i, idx := range indexes {
		names[i] = g.names[idx]
	}
	sort.Strings(names)
	return names
}

// Tricolor DFS marks for cycle detection.
const (
	white = iota // unvisited
	gray         // in progress
	black        // done
)

// FindCycle returns the job-name sequence of a dependency cycle, or nil
// when the graph is acyclic. The traversal uses an explicit stack with
// white/gray/black coloring; a back-edge to a gray node is the cycle
// signal. Avoids recursion-depth issues on large graphs.
func (g *Graph) FindCycle() []string {
	colors := make([]int, len(g.names))

	type frame struct {
		node int
		next int // next child offset to visit
	}

	for start := range g.names {
		if colors[start] != white {
			continue
		}
		stack := []frame{{node: start}}
		colors[start] = gray

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(g.succ[f.node]) {
				child := g.succ[f.node][f.next]
				f.next++
				switch colors[child] {
				case white:
					colors[child] = gray
					stack = append(stack, frame{node: child})
				case gray:
					// Back-edge: the cycle is the stack segment from the
					// gray child up to the top, closed with the child.
					var cycle []string
					for i := range stack {
						if stack[i].node == child {
							for _, sf := range stack[i:] {
								cycle = append(cycle, g.names[sf.node])
							}
							break
						}
					}
					return append(cycle, g.names[child])
				}
			} else {
				colors[f.node] = black
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

// TopologicalOrder returns node indexes with dependencies before
// dependents. Among simultaneously-ready nodes the lexicographically
// smallest name goes first, so the order is reproducible. Returns an
// error if the graph contains a cycle.
func (g *Graph) TopologicalOrder() ([]int, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, fmt.Errorf("cycle detected: %v", cycle)
	}

	indegree := make([]int, len(g.names))
	for i, parents := range g.pred {
		indegree[i] = len(parents)
	}

	ready := make([]int, 0, len(g.names))
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.names))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool { return g.names[ready[a]] < g.names[ready[b]] })
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, child := range g.succ[n] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	return order, nil
}

// ExecutionLevels returns job names grouped by execution level. Jobs at
// level N can start in parallel once level N-1 completes; level 0 holds
// the roots. The widest level is the pipeline's maximum parallelism.
func (g *Graph) ExecutionLevels() ([][]string, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	level := make([]int, len(g.names))
	maxLevel := 0
	for _, n := range order {
		for _, parent := range g.pred[n] {
			if level[parent]+1 > level[n] {
				level[n] = level[parent] + 1
			}
		}
		if level[n] > maxLevel {
			maxLevel = level[n]
		}
	}

	levels := make([][]string, maxLevel+1)
	for i, l := range level {
		levels[l] = append(levels[l], g.names[i])
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// MaxParallelism returns the size of the widest execution level.
func (g *Graph) MaxParallelism() int {
	levels, err := g.ExecutionLevels()
	if err != nil {
		return 0
	}
	maxWidth := 0
	for _, l := range levels {
		if len(l) > maxWidth {
			maxWidth = len(l)
		}
	}
	return maxWidth
}
