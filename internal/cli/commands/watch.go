package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pipelens-dev/pipelens/internal/cli/output"
	"github.com/pipelens-dev/pipelens/internal/report"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 250 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <config-file>",
		Short: "Re-analyze the pipeline on every change",
		Long: `Watch a configuration file and re-run the analysis whenever it changes.

Useful while editing a pipeline: save the file and the findings refresh.
Exit with Ctrl-C.`,
		Example: `  pipelens watch .github/workflows/ci.yml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0])
		},
	}
}

func runWatch(cmd *cobra.Command, path string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors replace files by
	// rename, which drops a direct file watch.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watchAnalyze(cmdCtx, r, path)
	r.Errorf("Watching %s (Ctrl-C to stop)\n", path)

	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || abs != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			watchAnalyze(cmdCtx, r, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.Errorf("watch error: %v\n", err)
		}
	}
}

// watchAnalyze runs one analysis pass and renders it. Failures are
// reported but never end the watch: a half-saved file parses again on
// the next write.
func watchAnalyze(cmdCtx *CommandContext, r *output.Renderer, path string) {
	p, stats, err := loadPipeline(cmdCtx, path)
	if err != nil {
		r.Errorf("%s: %v\n", time.Now().Format("15:04:05"), err)
		return
	}

	rep, err := report.NewBuilder(cmdCtx.Cfg.AnalyzerConfig()).Build(p, stats)
	if err != nil {
		r.Errorf("%s: %v\n", time.Now().Format("15:04:05"), err)
		return
	}

	r.Errorf("%s: re-analyzed %s\n", time.Now().Format("15:04:05"), path)
	switch r.EffectiveMode() {
	case output.ModeJSON:
		_ = r.JSON(rep)
	case output.ModeMarkdown:
		renderReportMarkdown(r, rep)
	default:
		renderReportText(r, rep)
	}
}
