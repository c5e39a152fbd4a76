package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipelens-dev/pipelens/internal/cli/output"
	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/internal/optimizer"
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// optimizeOptions holds flags for the optimize command.
type optimizeOptions struct {
	outFile  string
	diffOnly bool
	write    bool
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand() *cobra.Command {
	opts := &optimizeOptions{}

	cmd := &cobra.Command{
		Use:   "optimize <config-file>",
		Short: "Rewrite a pipeline with safe optimizations applied",
		Long: `Apply every auto-fixable finding to the configuration and emit the
rewritten YAML.

Fixes are applied in a fixed order (caching, then parallelization, then
waste) so repeated runs produce identical output. The rewritten pipeline
is guaranteed to stay acyclic, to contain no jobs absent from the input,
and to never be slower than running the original jobs sequentially.`,
		Example: `  # Print the optimized config with a summary of applied fixes
  pipelens optimize .github/workflows/ci.yml

  # Write the optimized config to a file
  pipelens optimize ci.yml --out ci.optimized.yml

  # Rewrite the file in place
  pipelens optimize ci.yml --write

  # Show only the unified diff
  pipelens optimize ci.yml --diff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.outFile, "out", "", "Write the optimized config to this path")
	cmd.Flags().BoolVar(&opts.diffOnly, "diff", false, "Print a unified diff instead of the full config")
	cmd.Flags().BoolVar(&opts.write, "write", false, "Rewrite the input file in place")

	return cmd
}

func runOptimize(cmd *cobra.Command, path string, opts *optimizeOptions) error {
	cmdCtx := NewCommandContext(cmd)

	original, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

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

	optimized, err := optimizer.Serialize(res.Pipeline)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer

	if opts.diffOnly {
		diff, err := optimizer.UnifiedDiff(path, original, optimized)
		if err != nil {
			return err
		}
		if diff == "" {
			r.Success("Nothing to optimize")
			return nil
		}
		r.Printf("%s", diff)
		return nil
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			Applied         []core.Finding `json:"applied"`
			Skipped         []core.Finding `json:"skipped"`
			OriginalSecs    int            `json:"original_duration_secs"`
			OptimizedSecs   int            `json:"optimized_duration_secs"`
			OptimizedConfig string         `json:"optimized_config"`
		}{
			Applied:         res.Applied,
			Skipped:         res.Skipped,
			OriginalSecs:    int(res.OriginalDuration.Seconds()),
			OptimizedSecs:   int(res.OptimizedDuration.Seconds()),
			OptimizedConfig: string(optimized),
		})
	}

	target := opts.outFile
	if opts.write {
		target = path
	}
	if target != "" {
		if err := os.WriteFile(target, optimized, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}
	} else {
		r.Printf("%s", string(optimized))
	}

	renderOptimizeSummary(r, res, target)
	return nil
}

func renderOptimizeSummary(r *output.Renderer, res *optimizer.Result, target string) {
	styles := r.Styles()

	summary := func(format string, args ...any) {
		// The summary goes to stderr when the config itself went to
		// stdout, so the output stays pipeable.
		if target == "" {
			r.Errorf(format, args...)
			return
		}
		r.Printf(format, args...)
	}

	if len(res.Applied) == 0 {
		summary("No auto-fixable findings.\n")
		return
	}

	summary("Applied %d fixes:\n", len(res.Applied))
	for _, f := range res.Applied {
		savings := ""
		if f.EstimatedSavingsSecs > 0 {
			savings = fmt.Sprintf(" (saves ~%s)", formatDuration(time.Duration(f.EstimatedSavingsSecs)*time.Second))
		}
		summary("  %s %s%s\n", styles.Bold.Render(f.RuleID), f.Title, savings)
	}
	for _, f := range res.Skipped {
		summary("  %s %s (skipped, already covered)\n", styles.Muted.Render(f.RuleID), f.Title)
	}
	summary("Estimated wall clock: %s → %s\n",
		formatDuration(res.OriginalDuration),
		formatDuration(res.OptimizedDuration))
	if target != "" {
		r.Success(fmt.Sprintf("Wrote %s", target))
	}
}
