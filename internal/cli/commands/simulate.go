package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipelens-dev/pipelens/internal/cli/output"
	"github.com/pipelens-dev/pipelens/internal/simulate"
)

// simulateOptions holds flags for the simulate command.
type simulateOptions struct {
	trials   int
	variance float64
	seed     int64
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand() *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate <config-file>",
		Short: "Monte Carlo simulation of pipeline duration",
		Long: `Run a Monte Carlo simulation of the pipeline's wall-clock duration.

Each trial draws every job's duration from a triangular distribution
around its estimate and recomputes the critical path. The aggregate
shows how duration spreads under variance, which percentiles to plan
around, and how often each job sits on the critical path.

The same seed always yields the same result.`,
		Example: `  # 1000 trials at 20% variance
  pipelens simulate ci.yml

  # A wider spread, reproducible across machines
  pipelens simulate ci.yml --trials 5000 --variance 0.4 --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.trials, "trials", 0, "Trial count (default 1000)")
	cmd.Flags().Float64Var(&opts.variance, "variance", 0.2, "Relative duration spread, 0 to 0.9")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "PRNG seed (default 1)")

	return cmd
}

func runSimulate(cmd *cobra.Command, path string, opts *simulateOptions) error {
	cmdCtx := NewCommandContext(cmd)

	p, _, err := loadPipeline(cmdCtx, path)
	if err != nil {
		return err
	}

	res, err := simulate.Run(cmd.Context(), p, simulate.Params{
		Trials:   opts.trials,
		Variance: &opts.variance,
		Seed:     opts.seed,
	})
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(res)
	case output.ModeMarkdown:
		renderSimulateMarkdown(r, res)
	default:
		renderSimulateText(r, res)
	}
	return nil
}

func secsDuration(secs float64) string {
	return formatDuration(time.Duration(secs * float64(time.Second)))
}

// criticalJobs returns job names sorted by critical-path frequency,
// most frequent first, names breaking ties.
func criticalJobs(res *simulate.Result) []string {
	names := make([]string, 0, len(res.CriticalPathPct))
	for name := range res.CriticalPathPct {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := res.CriticalPathPct[names[i]], res.CriticalPathPct[names[j]]
		if pi != pj {
			return pi > pj
		}
		return names[i] < names[j]
	})
	return names
}

func renderSimulateText(r *output.Renderer, res *simulate.Result) {
	styles := r.Styles()

	r.Header(1, "Duration Simulation")

	r.Printf("  %s %d trials, variance %.0f%%, seed %d\n",
		styles.Muted.Render("Setup:"), res.Trials, res.Variance*100, res.Seed)
	r.Printf("  %s %s ± %s\n",
		styles.Muted.Render("Mean:"),
		styles.Bold.Render(secsDuration(res.MeanSecs)), secsDuration(res.StdDevSecs))
	r.Printf("  %s %s min, %s p50, %s p90, %s p99, %s max\n",
		styles.Muted.Render("Spread:"),
		secsDuration(res.MinSecs), secsDuration(res.P50Secs),
		secsDuration(res.P90Secs), secsDuration(res.P99Secs), secsDuration(res.MaxSecs))

	r.Header(2, "Distribution")
	maxCount := 0
	for _, b := range res.Histogram {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	for _, b := range res.Histogram {
		width := 0
		if maxCount > 0 {
			width = b.Count * 40 / maxCount
		}
		r.Printf("  %8s - %8s %s %d\n",
			secsDuration(b.LowSecs), secsDuration(b.HighSecs),
			styles.Info.Render(strings.Repeat("█", width)), b.Count)
	}

	r.Header(2, "Critical Path Frequency")
	for _, name := range criticalJobs(res) {
		pct := res.CriticalPathPct[name]
		label := fmt.Sprintf("%5.1f%%", pct)
		if pct >= 99.5 {
			label = styles.Error.Render(label)
		} else if pct > 0 {
			label = styles.Warning.Render(label)
		} else {
			label = styles.Muted.Render(label)
		}
		r.Printf("  %s %s\n", label, styles.JobName.Render(name))
	}
}

func renderSimulateMarkdown(r *output.Renderer, res *simulate.Result) {
	r.Println(output.FormatHeader(1, "Duration Simulation"))
	r.Println("")
	r.Println(output.FormatKeyValue("Trials", fmt.Sprintf("%d", res.Trials)))
	r.Println(output.FormatKeyValue("Variance", fmt.Sprintf("%.0f%%", res.Variance*100)))
	r.Println(output.FormatKeyValue("Seed", fmt.Sprintf("%d", res.Seed)))
	r.Println(output.FormatKeyValue("Mean", fmt.Sprintf("%s ± %s", secsDuration(res.MeanSecs), secsDuration(res.StdDevSecs))))
	r.Println(output.FormatKeyValue("P50", secsDuration(res.P50Secs)))
	r.Println(output.FormatKeyValue("P90", secsDuration(res.P90Secs)))
	r.Println(output.FormatKeyValue("P99", secsDuration(res.P99Secs)))
	r.Println(output.FormatKeyValue("Range", fmt.Sprintf("%s - %s", secsDuration(res.MinSecs), secsDuration(res.MaxSecs))))
	r.Println("")
	r.Println(output.FormatHeader(2, "Critical Path Frequency"))
	r.Println("")
	r.Println("| Job | Frequency |")
	r.Println("|-----|-----------|")
	for _, name := range criticalJobs(res) {
		r.Printf("| %s | %.1f%% |\n", name, res.CriticalPathPct[name])
	}
}
