package dag

import (
	"errors"
	"testing"
	"time"

	"github.com/pipelens-dev/pipelens/pkg/core"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := New()
	g.AddNode("a", time.Second)
	g.AddNode("b", time.Second)
	g.AddNode("c", time.Second)

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}

	if err := g.AddEdge("a", "b"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("b", "c"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	// Duplicate edges are ignored
	if err := g.AddEdge("a", "b"); err != nil {
		t.Errorf("duplicate edge should be a no-op: %v", err)
	}

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := New()
	g.AddNode("a", 0)

	if err := g.AddEdge("a", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent child node")
	}
	if err := g.AddEdge("nonexistent", "a"); err == nil {
		t.Error("expected error for nonexistent parent node")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := New()
	g.AddNode("a", 0)

	if err := g.AddEdge("a", "a"); err == nil {
		t.Error("expected error for self-loop")
	}
}

func TestGraph_FindCycle_NoCycle(t *testing.T) {
	g := New()
	g.AddNode("a", 0)
	g.AddNode("b", 0)
	g.AddNode("c", 0)
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	if cycle := g.FindCycle(); cycle != nil {
		t.Errorf("expected no cycle, but found: %v", cycle)
	}
}

func TestGraph_FindCycle_WithCycle(t *testing.T) {
	g := New()
	g.AddNode("a", 0)
	g.AddNode("b", 0)
	g.AddNode("c", 0)
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	cycle := g.FindCycle()
	if cycle == nil {
		t.Fatal("expected cycle to be detected")
	}
	// The cycle closes on itself
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle should start and end at the same job: %v", cycle)
	}
	if len(cycle) != 4 {
		t.Errorf("expected a 3-job cycle (4 entries), got %v", cycle)
	}
}

func TestGraph_TopologicalOrder(t *testing.T) {
	g := New()
	g.AddNode("build", time.Second)
	g.AddNode("test", time.Second)
	g.AddNode("deploy", time.Second)
	g.AddEdge("build", "test")
	g.AddEdge("test", "deploy")

	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int)
	for i, n := range order {
		pos[g.Name(n)] = i
	}
	if pos["build"] > pos["test"] || pos["test"] > pos["deploy"] {
		t.Errorf("order violates dependencies: %v", order)
	}
}

func TestGraph_TopologicalOrder_Deterministic(t *testing.T) {
	build := func() *Graph {
		g := New()
		g.AddNode("z", 0)
		g.AddNode("a", 0)
		g.AddNode("m", 0)
		return g
	}

	first, err := build().TopologicalOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := build()
	if g.Name(first[0]) != "a" || g.Name(first[1]) != "m" || g.Name(first[2]) != "z" {
		t.Errorf("expected lexicographic order among ready nodes, got %v", first)
	}
}

func TestGraph_ExecutionLevels(t *testing.T) {
	g := New()
	g.AddNode("a", 0)
	g.AddNode("b", 0)
	g.AddNode("c", 0)
	g.AddNode("d", 0)
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "d")
	g.AddEdge("c", "d")

	levels, err := g.ExecutionLevels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if len(levels[1]) != 2 {
		t.Errorf("expected b and c at level 1, got %v", levels[1])
	}
	if g.MaxParallelism() != 2 {
		t.Errorf("expected max parallelism 2, got %d", g.MaxParallelism())
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := New()
	g.AddNode("a", 0)
	g.AddNode("b", 0)
	g.AddNode("c", 0)
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")

	roots := g.Roots()
	if len(roots) != 1 || roots[0] != "a" {
		t.Errorf("expected roots [a], got %v", roots)
	}
	leaves := g.Leaves()
	if len(leaves) != 2 {
		t.Errorf("expected 2 leaves, got %v", leaves)
	}
}

func TestFromPipeline_UnknownReference(t *testing.T) {
	p := &core.Pipeline{
		SourcePath: "ci.yml",
		Jobs: []*core.Job{
			{Name: "build", Needs: []string{"missing"}},
		},
		JobIndex: map[string]int{"build": 0},
	}

	_, err := FromPipeline(p)
	var refErr *core.UnknownJobReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected UnknownJobReferenceError, got %v", err)
	}
	if refErr.Ref != "missing" {
		t.Errorf("expected offending ref %q, got %q", "missing", refErr.Ref)
	}
}

func TestFromPipeline_Cycle(t *testing.T) {
	p := &core.Pipeline{
		SourcePath: "ci.yml",
		Jobs: []*core.Job{
			{Name: "a", Needs: []string{"b"}},
			{Name: "b", Needs: []string{"a"}},
		},
		JobIndex: map[string]int{"a": 0, "b": 1},
	}

	_, err := FromPipeline(p)
	var cycErr *core.CyclicDependencyError
	if !errors.As(err, &cycErr) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
	if len(cycErr.Cycle) == 0 {
		t.Error("expected cycle path to be non-empty")
	}
}
