package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pipelens-dev/pipelens/internal/cli/output"
	"github.com/pipelens-dev/pipelens/internal/report"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// analyzeOptions holds flags for the analyze command.
type analyzeOptions struct {
	severity string
	failOn   string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <config-file>",
		Short: "Analyze a pipeline configuration",
		Long: `Analyze a CI/CD configuration file for performance problems.

The pipeline is parsed into a dependency graph and checked against the
built-in rule suite: missing dependency caches, false dependencies that
serialize independent work, missing path filters, redundant full clones,
oversized matrices, and flaky jobs (when run history is supplied via
--stats).

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Analyze a GitHub Actions workflow
  pipelens analyze .github/workflows/ci.yml

  # Analyze with run history for duration calibration
  pipelens analyze .gitlab-ci.yml --stats history.json

  # Only show high-severity findings, as JSON
  pipelens analyze ci.yml --severity high --output json

  # Fail the invocation when critical findings exist (for CI gates)
  pipelens analyze ci.yml --fail-on critical`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.severity, "severity", "", "Minimum severity to report (critical|high|medium|low|info)")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "", "Exit non-zero when a finding at or above this severity exists")

	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts *analyzeOptions) error {
	cmdCtx := NewCommandContext(cmd)

	p, stats, err := loadPipeline(cmdCtx, path)
	if err != nil {
		return err
	}

	builder := report.NewBuilder(cmdCtx.Cfg.AnalyzerConfig())
	rep, err := builder.Build(p, stats)
	if err != nil {
		return err
	}

	if opts.severity != "" {
		min, ok := core.ParseSeverity(opts.severity)
		if !ok {
			return fmt.Errorf("unknown severity %q", opts.severity)
		}
		rep.Findings = filterFindings(rep.Findings, min)
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(rep); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderReportMarkdown(r, rep)
	default:
		renderReportText(r, rep)
	}

	if opts.failOn != "" {
		gate, ok := core.ParseSeverity(opts.failOn)
		if !ok {
			return fmt.Errorf("unknown severity %q", opts.failOn)
		}
		for _, f := range rep.Findings {
			if f.Severity <= gate {
				return fmt.Errorf("finding %s at severity %s meets the --fail-on gate", f.RuleID, f.Severity)
			}
		}
	}

	return nil
}

// filterFindings keeps findings at or above the minimum severity.
// Severity values sort with the most severe first.
func filterFindings(findings []core.Finding, min core.Severity) []core.Finding {
	kept := make([]core.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity <= min {
			kept = append(kept, f)
		}
	}
	return kept
}

func severityStyle(r *output.Renderer, sev core.Severity) string {
	styles := r.Styles()
	label := strings.ToUpper(sev.String())
	switch sev {
	case core.SeverityCritical, core.SeverityHigh:
		return styles.Error.Render(label)
	case core.SeverityMedium:
		return styles.Warning.Render(label)
	default:
		return styles.Muted.Render(label)
	}
}

// renderReportText outputs the report in styled text format.
func renderReportText(r *output.Renderer, rep *core.AnalysisReport) {
	styles := r.Styles()

	r.Header(1, fmt.Sprintf("Pipeline Analysis: %s", rep.PipelineName))

	r.Printf("  %s %s\n", styles.Muted.Render("Provider:"), string(rep.Provider))
	r.Printf("  %s %d jobs, %d steps\n", styles.Muted.Render("Size:"), rep.JobCount, rep.StepCount)
	r.Printf("  %s %s\n", styles.Muted.Render("Critical path:"),
		styles.JobName.Render(strings.Join(rep.CriticalPath, " → ")))
	r.Printf("  %s %s of %s total work (max parallelism %d)\n",
		styles.Muted.Render("Wall clock:"),
		styles.Bold.Render(formatDuration(time.Duration(rep.CriticalPathDurationSecs)*time.Second)),
		formatDuration(time.Duration(rep.TotalEstimatedDurationSecs)*time.Second),
		rep.MaxParallelism)
	r.Printf("  %s %s (from %s)\n",
		styles.Muted.Render("Optimized:"),
		styles.Success.Render(formatDuration(time.Duration(rep.OptimizedDurationSecs)*time.Second)),
		formatDuration(time.Duration(rep.CriticalPathDurationSecs)*time.Second))

	gradeStyle := styles.Success
	if rep.HealthScore < 70 {
		gradeStyle = styles.Error
	} else if rep.HealthScore < 90 {
		gradeStyle = styles.Warning
	}
	r.Printf("  %s %s\n", styles.Muted.Render("Health:"),
		gradeStyle.Render(fmt.Sprintf("%d/100 (%s)", rep.HealthScore, rep.HealthGrade)))

	if len(rep.Findings) == 0 {
		r.Println("")
		r.Success("No findings")
		return
	}

	r.Header(2, fmt.Sprintf("Findings (%d)", len(rep.Findings)))

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rule", "Severity", "Title", "Jobs", "Savings"})
	for _, f := range rep.Findings {
		savings := ""
		if f.EstimatedSavingsSecs > 0 {
			savings = formatDuration(time.Duration(f.EstimatedSavingsSecs) * time.Second)
		}
		t.AppendRow(table.Row{
			f.RuleID,
			severityStyle(r, f.Severity),
			f.Title,
			strings.Join(f.AffectedJobs, ", "),
			savings,
		})
	}
	t.Render()

	r.Println("")
	for _, f := range rep.Findings {
		r.Printf("%s %s\n", styles.Bold.Render(f.RuleID+":"), f.Description)
		r.Printf("  %s %s\n", styles.Muted.Render("fix:"), f.Recommendation)
	}
}

// renderReportMarkdown outputs the report in markdown format.
func renderReportMarkdown(r *output.Renderer, rep *core.AnalysisReport) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Pipeline Analysis: %s", rep.PipelineName)))
	r.Println("")
	r.Println(output.FormatKeyValue("Provider", string(rep.Provider)))
	r.Println(output.FormatKeyValue("Jobs", fmt.Sprintf("%d (%d steps)", rep.JobCount, rep.StepCount)))
	r.Println(output.FormatKeyValue("Critical path", strings.Join(rep.CriticalPath, " → ")))
	r.Println(output.FormatKeyValue("Wall clock",
		formatDuration(time.Duration(rep.CriticalPathDurationSecs)*time.Second)))
	r.Println(output.FormatKeyValue("Total work",
		formatDuration(time.Duration(rep.TotalEstimatedDurationSecs)*time.Second)))
	r.Println(output.FormatKeyValue("Optimized",
		formatDuration(time.Duration(rep.OptimizedDurationSecs)*time.Second)))
	r.Println(output.FormatKeyValue("Max parallelism", fmt.Sprintf("%d", rep.MaxParallelism)))
	r.Println(output.FormatKeyValue("Health", fmt.Sprintf("%d/100 (%s)", rep.HealthScore, rep.HealthGrade)))
	r.Println("")

	if len(rep.Findings) == 0 {
		r.Println("No findings.")
		return
	}

	r.Println(output.FormatHeader(2, fmt.Sprintf("Findings (%d)", len(rep.Findings))))
	r.Println("")
	r.Println("| Rule | Severity | Title | Jobs | Savings |")
	r.Println("|------|----------|-------|------|---------|")
	for _, f := range rep.Findings {
		savings := ""
		if f.EstimatedSavingsSecs > 0 {
			savings = formatDuration(time.Duration(f.EstimatedSavingsSecs) * time.Second)
		}
		r.Printf("| %s | %s | %s | %s | %s |\n",
			f.RuleID, f.Severity, f.Title, strings.Join(f.AffectedJobs, ", "), savings)
	}
	r.Println("")
	for _, f := range rep.Findings {
		r.Printf("- **%s:** %s\n", f.RuleID, f.Description)
		r.Printf("  - fix: %s\n", f.Recommendation)
	}
}
