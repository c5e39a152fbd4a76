package dag

import "time"

// Path is a duration-weighted job sequence through the graph.
type Path struct {
	Jobs     []string
	Duration time.Duration
}

// EarliestFinishTimes returns each job's earliest-finish time under the
// stored durations, keyed by name. The parallel finder uses this to
// price the wait a single predecessor imposes on a dependent.
func (g *Graph) EarliestFinishTimes() (map[string]time.Duration, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	finish := make([]time.Duration, len(g.names))
	for _, n := range order {
		var maxFinish time.Duration
		for _, p := range g.pred[n] {
			if finish[p] > maxFinish {
				maxFinish = finish[p]
			}
		}
		finish[n] = g.durations[n] + maxFinish
	}
	out := make(map[string]time.Duration, len(g.names))
	for i, name := range g.names {
		out[name] = finish[i]
	}
	return out, nil
}

// CriticalPath computes the longest duration-weighted path through the
// graph using the stored job durations. This is the theoretical minimum
// pipeline wall-clock time with unlimited runners.
func (g *Graph) CriticalPath() (Path, error) {
	return g.CriticalPathWith(g.durations)
}

// CriticalPathWith computes the critical path under an alternate
// duration table indexed the same as the arena. The simulator feeds
// sampled durations through here, one table per trial.
//
// finish(j) = durations[j] + max(finish(p) for p in pred(j)), with
// max() = 0 for roots. When several predecessors tie for the maximum,
// the lexicographically smaller name wins, so repeated runs reconstruct
// the same path.
func (g *Graph) CriticalPathWith(durations []time.Duration) (Path, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return Path{}, err
	}
	if len(order) == 0 {
		return Path{}, nil
	}

	finish := make([]time.Duration, len(g.names))
	bestPred := make([]int, len(g.names))

	for _, n := range order {
		bestPred[n] = -1
		for _, p := range g.pred[n] {
			if bestPred[n] < 0 || finish[p] > finish[bestPred[n]] ||
				(finish[p] == finish[bestPred[n]] && g.names[p] < g.names[bestPred[n]]) {
				bestPred[n] = p
			}
		}
		var maxFinish time.Duration
		if bestPred[n] >= 0 {
			maxFinish = finish[bestPred[n]]
		}
		finish[n] = durations[n] + maxFinish
	}

	// The path ends at the sink with the maximum finish time; name order
	// breaks ties for determinism.
	end := -1
	for i := range g.names {
		if len(g.succ[i]) > 0 {
			continue
		}
		if end < 0 || finish[i] > finish[end] ||
			(finish[i] == finish[end] && g.names[i] < g.names[end]) {
			end = i
		}
	}

	var jobs []string
	for n := end; n >= 0; n = bestPred[n] {
		jobs = append([]string{g.names[n]}, jobs...)
	}
	return Path{Jobs: jobs, Duration: finish[end]}, nil
}
