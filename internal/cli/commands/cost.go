package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipelens-dev/pipelens/internal/cli/config"
	"github.com/pipelens-dev/pipelens/internal/cli/output"
	"github.com/pipelens-dev/pipelens/internal/costs"
	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/internal/optimizer"
	"github.com/pipelens-dev/pipelens/pkg/analyze"
)

// costOptions holds flags for the cost command.
type costOptions struct {
	runsPerMonth  int
	ratePerMinute float64
	teamSize      int
	hourlyRate    float64
}

// NewCostCommand creates the cost command.
func NewCostCommand() *cobra.Command {
	opts := &costOptions{}

	cmd := &cobra.Command{
		Use:   "cost <config-file>",
		Short: "Estimate monthly pipeline cost",
		Long: `Estimate monthly compute cost from the pipeline's critical path and
compare it against the optimized projection.

Providers bill per started minute, so durations round up. Supplying
--team-size and --hourly-rate adds a developer wait-cost figure: the
wall-clock time the team spends blocked on the pipeline each month.`,
		Example: `  # Cost at the default 200 runs per month
  pipelens cost .github/workflows/ci.yml

  # A busy repo with a priced team
  pipelens cost ci.yml --runs-per-month 900 --team-size 6 --hourly-rate 95`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCost(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.runsPerMonth, "runs-per-month", 0, "Pipeline runs per month (default 200)")
	cmd.Flags().Float64Var(&opts.ratePerMinute, "rate-per-minute", 0, "Override the provider's per-minute rate (USD)")
	cmd.Flags().IntVar(&opts.teamSize, "team-size", 0, "Developers waiting on the pipeline")
	cmd.Flags().Float64Var(&opts.hourlyRate, "hourly-rate", 0, "Loaded hourly rate per developer (USD)")

	return cmd
}

// costParams merges command flags over the configured cost section.
// Flags win when set.
func costParams(cfg *config.Config, opts *costOptions) costs.Params {
	p := costs.Params{
		RunsPerMonth:  cfg.Cost.RunsPerMonth,
		RatePerMinute: cfg.Cost.RatePerMinute,
		TeamSize:      cfg.Cost.TeamSize,
		HourlyRate:    cfg.Cost.HourlyRate,
	}
	if opts.runsPerMonth > 0 {
		p.RunsPerMonth = opts.runsPerMonth
	}
	if opts.ratePerMinute > 0 {
		p.RatePerMinute = opts.ratePerMinute
	}
	if opts.teamSize > 0 {
		p.TeamSize = opts.teamSize
	}
	if opts.hourlyRate > 0 {
		p.HourlyRate = opts.hourlyRate
	}
	return p
}

func runCost(cmd *cobra.Command, path string, opts *costOptions) error {
	cmdCtx := NewCommandContext(cmd)

	p, stats, err := loadPipeline(cmdCtx, path)
	if err != nil {
		return err
	}

	cfg := cmdCtx.Cfg.AnalyzerConfig()
	g, err := dag.FromPipeline(p)
	if err != nil {
		return err
	}
	ctx := analyze.NewContext(p, g, cfg, stats)
	findings := analyze.NewAnalyzer(cfg).Analyze(ctx)

	res, err := optimizer.New(cfg).Optimize(p, findings)
	if err != nil {
		return err
	}

	params := costParams(cmdCtx.Cfg, opts)
	breakdown := params.Estimate(p.Provider, res.OriginalDuration, res.OptimizedDuration)

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(breakdown)
	case output.ModeMarkdown:
		renderCostMarkdown(r, breakdown)
	default:
		renderCostText(r, breakdown)
	}
	return nil
}

func renderCostText(r *output.Renderer, b costs.Breakdown) {
	styles := r.Styles()

	r.Header(1, "Monthly Cost Estimate")

	r.Printf("  %s %s at $%.3f/min, %d runs/month\n",
		styles.Muted.Render("Pricing:"), string(b.Provider), b.RatePerMinute, b.RunsPerMonth)
	r.Printf("  %s %s (%d billed min/run) = %s\n",
		styles.Muted.Render("Current:"),
		formatDuration(time.Duration(b.Current.DurationSecs)*time.Second),
		b.Current.BilledMinutes,
		styles.Bold.Render(fmt.Sprintf("$%.2f/month", b.Current.ComputeCostUSD)))
	r.Printf("  %s %s (%d billed min/run) = %s\n",
		styles.Muted.Render("Optimized:"),
		formatDuration(time.Duration(b.Optimized.DurationSecs)*time.Second),
		b.Optimized.BilledMinutes,
		styles.Bold.Render(fmt.Sprintf("$%.2f/month", b.Optimized.ComputeCostUSD)))

	if b.Current.WaitCostUSD > 0 {
		r.Printf("  %s $%.2f current, $%.2f optimized\n",
			styles.Muted.Render("Developer wait:"),
			b.Current.WaitCostUSD, b.Optimized.WaitCostUSD)
	}

	r.Println("")
	r.Success(fmt.Sprintf("Estimated savings: $%.2f/month", b.SavingsUSD))
}

func renderCostMarkdown(r *output.Renderer, b costs.Breakdown) {
	r.Println(output.FormatHeader(1, "Monthly Cost Estimate"))
	r.Println("")
	r.Println(output.FormatKeyValue("Provider", string(b.Provider)))
	r.Println(output.FormatKeyValue("Rate", fmt.Sprintf("$%.3f/min", b.RatePerMinute)))
	r.Println(output.FormatKeyValue("Runs per month", fmt.Sprintf("%d", b.RunsPerMonth)))
	r.Println(output.FormatKeyValue("Current compute", fmt.Sprintf("$%.2f (%d billed min/run)",
		b.Current.ComputeCostUSD, b.Current.BilledMinutes)))
	r.Println(output.FormatKeyValue("Optimized compute", fmt.Sprintf("$%.2f (%d billed min/run)",
		b.Optimized.ComputeCostUSD, b.Optimized.BilledMinutes)))
	if b.Current.WaitCostUSD > 0 {
		r.Println(output.FormatKeyValue("Current wait cost", fmt.Sprintf("$%.2f", b.Current.WaitCostUSD)))
		r.Println(output.FormatKeyValue("Optimized wait cost", fmt.Sprintf("$%.2f", b.Optimized.WaitCostUSD)))
	}
	r.Println(output.FormatKeyValue("Savings", fmt.Sprintf("$%.2f/month", b.SavingsUSD)))
}
