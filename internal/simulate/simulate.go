// Package simulate estimates a pipeline's timing distribution by
// Monte Carlo sampling. Trials are embarrassingly parallel; each
// trial's random stream is a pure function of the base seed and the
// trial index, so results are bit-identical regardless of how trials
// are scheduled across workers.
package simulate

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Params configures a simulation. Unset values fall back to defaults.
type Params struct {
	// Trials defaults to 1000.
	Trials int
	// Variance is the relative half-width of each job's duration
	// distribution, clamped to [0, 0.9]. Nil selects the default 0.2;
	// an explicit zero collapses every trial onto the estimate.
	Variance *float64
	// Seed is the base PRNG seed; defaults to 1.
	Seed int64
	// Workers caps trial concurrency; defaults to GOMAXPROCS.
	Workers int
}

func (p Params) withDefaults() Params {
	if p.Trials <= 0 {
		p.Trials = 1000
	}
	v := 0.2
	if p.Variance != nil {
		v = *p.Variance
	}
	if v < 0 {
		v = 0
	}
	if v > 0.9 {
		v = 0.9
	}
	p.Variance = &v
	if p.Seed == 0 {
		p.Seed = 1
	}
	if p.Workers <= 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	return p
}

// Bucket is one histogram bin.
type Bucket struct {
	LowSecs  float64 `json:"low_secs"`
	HighSecs float64 `json:"high_secs"`
	Count    int     `json:"count"`
}

// Result aggregates all trials.
type Result struct {
	Trials   int     `json:"trials"`
	Variance float64 `json:"variance"`
	Seed     int64   `json:"seed"`

	MeanSecs   float64 `json:"mean_secs"`
	StdDevSecs float64 `json:"stddev_secs"`
	MinSecs    float64 `json:"min_secs"`
	MaxSecs    float64 `json:"max_secs"`
	P50Secs    float64 `json:"p50_secs"`
	P90Secs    float64 `json:"p90_secs"`
	P99Secs    float64 `json:"p99_secs"`

	Histogram []Bucket `json:"histogram"`

	// CriticalPathPct maps job name to the percentage of trials in
	// which the job sat on the critical path.
	CriticalPathPct map[string]float64 `json:"critical_path_pct"`
}

// trialSeed derives a trial's seed from the base seed and index only.
// Mixing runs in uint64 space: the multiplier is the 64-bit golden
// ratio constant, which does not fit in int64.
func trialSeed(base int64, trial int) int64 {
	const mult = 0x9E3779B97F4A7C15
	return int64(uint64(base) ^ (uint64(trial)+1)*mult)
}

// sampleTriangular draws from a triangular distribution on
// [(1-v)d, (1+v)d] with mode d, by inverse CDF. The mode sits at the
// midpoint, so the split point is 1/2.
func sampleTriangular(rng *rand.Rand, d time.Duration, v float64) time.Duration {
	if v == 0 || d == 0 {
		return d
	}
	low := float64(d) * (1 - v)
	high := float64(d) * (1 + v)
	width := high - low
	u := rng.Float64()
	var sample float64
	if u < 0.5 {
		sample = low + math.Sqrt(u*width*(float64(d)-low))
	} else {
		sample = high - math.Sqrt((1-u)*width*(high-float64(d)))
	}
	return time.Duration(sample)
}

type trial struct {
	duration time.Duration
	path     []string
}

// Run executes the simulation. The input pipeline is read-only.
func Run(ctx context.Context, p *core.Pipeline, params Params) (*Result, error) {
	params = params.withDefaults()

	g, err := dag.FromPipeline(p)
	if err != nil {
		return nil, err
	}
	base := g.Durations()

	// Pre-sized by trial index: aggregation order is independent of
	// worker scheduling.
	trials := make([]trial, params.Trials)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(params.Workers)
	for i := range trials {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(trialSeed(params.Seed, i)))
			sampled := make([]time.Duration, len(base))
			for j, d := range base {
				sampled[j] = sampleTriangular(rng, d, *params.Variance)
			}
			path, err := g.CriticalPathWith(sampled)
			if err != nil {
				return err
			}
			trials[i] = trial{duration: path.Duration, path: path.Jobs}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return aggregate(trials, params), nil
}

func aggregate(trials []trial, params Params) *Result {
	n := len(trials)
	durations := make([]float64, n)
	onPath := make(map[string]int)
	for i, t := range trials {
		durations[i] = t.duration.Seconds()
		for _, job := range t.path {
			onPath[job]++
		}
	}
	sort.Float64s(durations)

	var sum float64
	for _, d := range durations {
		sum += d
	}
	mean := sum / float64(n)

	var variance float64
	for _, d := range durations {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(n)

	pct := make(map[string]float64, len(onPath))
	for job, count := range onPath {
		pct[job] = 100 * float64(count) / float64(n)
	}

	return &Result{
		Trials:          n,
		Variance:        *params.Variance,
		Seed:            params.Seed,
		MeanSecs:        mean,
		StdDevSecs:      math.Sqrt(variance),
		MinSecs:         durations[0],
		MaxSecs:         durations[n-1],
		P50Secs:         percentile(durations, 0.50),
		P90Secs:         percentile(durations, 0.90),
		P99Secs:         percentile(durations, 0.99),
		Histogram:       histogram(durations, 10),
		CriticalPathPct: pct,
	}
}

// percentile is nearest-rank on an already sorted slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// histogram bins the sorted durations into equal-width buckets.
func histogram(sorted []float64, buckets int) []Bucket {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []Bucket{{LowSecs: lo, HighSecs: hi, Count: len(sorted)}}
	}
	width := (hi - lo) / float64(buckets)
	out := make([]Bucket, buckets)
	for i := range out {
		out[i].LowSecs = lo + float64(i)*width
		out[i].HighSecs = lo + float64(i+1)*width
	}
	for _, d := range sorted {
		idx := int((d - lo) / width)
		if idx >= buckets {
			idx = buckets - 1 // the maximum lands in the last bucket
		}
		out[idx].Count++
	}
	return out
}
