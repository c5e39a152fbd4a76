// Package costs converts pipeline durations into monthly dollar
// figures. Providers bill per started minute, so the ceil rounding is
// part of the contract rather than a presentation choice.
package costs

import (
	"time"

	"github.com/pipelens-dev/pipelens/pkg/core"
)

// defaultRates is the per-minute compute rate table (USD, Linux
// runners at published list prices).
var defaultRates = map[core.Provider]float64{
	core.ProviderGitHubActions: 0.008,
	core.ProviderGitLabCI:      0.005,
}

// Params drives an estimate. Zero values fall back to defaults.
type Params struct {
	// RunsPerMonth defaults to 200 when zero.
	RunsPerMonth int

	// RatePerMinute overrides the provider rate table when positive.
	RatePerMinute float64

	// TeamSize and HourlyRate, when both positive, add a developer
	// wait-cost figure on top of the compute cost.
	TeamSize   int
	HourlyRate float64
}

// Estimate prices one duration.
type Estimate struct {
	DurationSecs   int     `json:"duration_secs"`
	BilledMinutes  int     `json:"billed_minutes"`
	ComputeCostUSD float64 `json:"compute_cost_usd"`
	WaitCostUSD    float64 `json:"wait_cost_usd,omitempty"`
}

// Breakdown compares the current pipeline against its optimized
// projection in dollars per month.
type Breakdown struct {
	Provider      core.Provider `json:"provider"`
	RatePerMinute float64       `json:"rate_per_minute"`
	RunsPerMonth  int           `json:"runs_per_month"`
	Current       Estimate      `json:"current"`
	Optimized     Estimate      `json:"optimized"`
	SavingsUSD    float64       `json:"savings_usd"`
}

// RateFor returns the per-minute rate for a provider. Unknown providers
// price like GitHub, the more expensive of the two.
func RateFor(provider core.Provider) float64 {
	if rate, ok := defaultRates[provider]; ok {
		return rate
	}
	return defaultRates[core.ProviderGitHubActions]
}

// BilledMinutes rounds a duration up to whole minutes, matching
// provider billing granularity.
func BilledMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

// Cost prices a single duration: billed minutes times rate times runs.
func Cost(d time.Duration, runsPerMonth int, ratePerMinute float64) float64 {
	return float64(BilledMinutes(d)) * ratePerMinute * float64(runsPerMonth)
}

// Estimate builds the full monthly breakdown for a pipeline's current
// and optimized durations.
func (p Params) Estimate(provider core.Provider, current, optimized time.Duration) Breakdown {
	runs := p.RunsPerMonth
	if runs <= 0 {
		runs = 200
	}
	rate := p.RatePerMinute
	if rate <= 0 {
		rate = RateFor(provider)
	}

	b := Breakdown{
		Provider:      provider,
		RatePerMinute: rate,
		RunsPerMonth:  runs,
		Current:       p.estimate(current, runs, rate),
		Optimized:     p.estimate(optimized, runs, rate),
	}
	b.SavingsUSD = (b.Current.ComputeCostUSD + b.Current.WaitCostUSD) -
		(b.Optimized.ComputeCostUSD + b.Optimized.WaitCostUSD)
	return b
}

func (p Params) estimate(d time.Duration, runs int, rate float64) Estimate {
	e := Estimate{
		DurationSecs:   int(d.Seconds()),
		BilledMinutes:  BilledMinutes(d),
		ComputeCostUSD: Cost(d, runs, rate),
	}
	// Developer time lost to waiting: every run blocks the team for
	// the pipeline's wall-clock duration.
	if p.TeamSize > 0 && p.HourlyRate > 0 {
		e.WaitCostUSD = d.Hours() * float64(runs) * p.HourlyRate * float64(p.TeamSize)
	}
	return e
}
