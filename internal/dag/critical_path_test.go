package dag

import (
	"math/rand"
	"testing"
	"time"
)

func TestCriticalPath_Linear(t *testing.T) {
	g := New()
	g.AddNode("A", 60*time.Second)
	g.AddNode("B", 120*time.Second)
	g.AddNode("C", 90*time.Second)
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	path, err := g.CriticalPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path.Duration != 270*time.Second {
		t.Errorf("expected 270s, got %v", path.Duration)
	}
	want := []string{"A", "B", "C"}
	if len(path.Jobs) != 3 {
		t.Fatalf("expected path %v, got %v", want, path.Jobs)
	}
	for i, name := range want {
		if path.Jobs[i] != name {
			t.Errorf("expected path %v, got %v", want, path.Jobs)
			break
		}
	}
}

func TestCriticalPath_Diamond(t *testing.T) {
	g := New()
	g.AddNode("setup", 10*time.Second)
	g.AddNode("lint", 30*time.Second)
	g.AddNode("test", 90*time.Second)
	g.AddNode("deploy", 20*time.Second)
	g.AddEdge("setup", "lint")
	g.AddEdge("setup", "test")
	g.AddEdge("lint", "deploy")
	g.AddEdge("test", "deploy")

	path, err := g.CriticalPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path.Duration != 120*time.Second {
		t.Errorf("expected 120s through test branch, got %v", path.Duration)
	}
	if path.Jobs[1] != "test" {
		t.Errorf("expected path through test, got %v", path.Jobs)
	}
}

func TestCriticalPath_TieBreaksLexicographically(t *testing.T) {
	g := New()
	g.AddNode("root", 5*time.Second)
	g.AddNode("zeta", 50*time.Second)
	g.AddNode("alpha", 50*time.Second)
	g.AddNode("final", 10*time.Second)
	g.AddEdge("root", "zeta")
	g.AddEdge("root", "alpha")
	g.AddEdge("zeta", "final")
	g.AddEdge("alpha", "final")

	path, err := g.CriticalPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path.Jobs[1] != "alpha" {
		t.Errorf("tied predecessors should prefer the smaller name, got %v", path.Jobs)
	}
}

// maxPathByEnumeration walks every root-to-sink path and returns the
// maximum total duration. Exponential, only for small synthetic graphs.
func maxPathByEnumeration(g *Graph) time.Duration {
	var best time.Duration
	var walk func(n int, acc time.Duration)
	walk = func(n int, acc time.Duration) {
		acc += g.durations[n]
		if len(g.succ[n]) == 0 {
			if acc > best {
				best = acc
			}
			return
		}
		for _, c := range g.succ[n] {
			walk(c, acc)
		}
	}
	for i := range g.names {
		if len(g.pred[i]) == 0 {
			walk(i, 0)
		}
	}
	return best
}

func TestCriticalPath_MatchesExhaustiveEnumeration(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 2 + rng.Intn(9) // up to 10 jobs
		g := New()
		names := make([]string, n)
		for i := 0; i < n; i++ {
			names[i] = string(rune('a' + i))
			g.AddNode(names[i], time.Duration(1+rng.Intn(300))*time.Second)
		}
		// Only forward edges, so the graph stays acyclic.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rng.Intn(3) == 0 {
					g.AddEdge(names[i], names[j])
				}
			}
		}

		path, err := g.CriticalPath()
		if err != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, err)
		}
		want := maxPathByEnumeration(g)
		if path.Duration != want {
			t.Fatalf("trial %d: critical path %v != enumerated max %v", trial, path.Duration, want)
		}
	}
}

func TestCriticalPathWith_SampledDurations(t *testing.T) {
	g := New()
	g.AddNode("a", 10*time.Second)
	g.AddNode("b", 10*time.Second)
	g.AddEdge("a", "b")

	sampled := []time.Duration{25 * time.Second, 35 * time.Second}
	path, err := g.CriticalPathWith(sampled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path.Duration != 60*time.Second {
		t.Errorf("expected 60s with sampled durations, got %v", path.Duration)
	}
	// Stored durations stay untouched
	if g.Duration(0) != 10*time.Second {
		t.Error("CriticalPathWith must not mutate stored durations")
	}
}
