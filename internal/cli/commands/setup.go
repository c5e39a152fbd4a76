// Package commands implements the PipeLens subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipelens-dev/pipelens/internal/cli/config"
	"github.com/pipelens-dev/pipelens/internal/cli/output"
	"github.com/pipelens-dev/pipelens/internal/history"
	"github.com/pipelens-dev/pipelens/internal/parser"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's
// environment.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back
// to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	outputFormat := getEnvOrDefault("PIPELENS_OUTPUT", config.DefaultOutput)
	verbose := os.Getenv("PIPELENS_VERBOSE") == "true"
	statsPath := os.Getenv("PIPELENS_STATS")

	return &config.Config{
		OutputFormat: outputFormat,
		Verbose:      verbose,
		StatsPath:    statsPath,
		Cost:         config.CostConfig{RunsPerMonth: config.DefaultRunsPerMonth},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadStats loads run history when a stats file is configured.
func loadStats(ctx *CommandContext) (*history.Statistics, error) {
	if ctx.Cfg.StatsPath == "" {
		return nil, nil
	}
	stats, err := history.Load(ctx.Cfg.StatsPath)
	if err != nil {
		return nil, err
	}
	ctx.Logger.Debug("loaded run history",
		"path", ctx.Cfg.StatsPath,
		"runs", stats.RunsAnalyzed,
		"jobs", len(stats.Jobs))
	return stats, nil
}

// loadPipeline reads and parses a CI configuration file, calibrating
// job durations from run history when available. The stats are
// returned alongside the pipeline for commands that score against
// history.
func loadPipeline(ctx *CommandContext, path string) (*core.Pipeline, *history.Statistics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	stats, err := loadStats(ctx)
	if err != nil {
		return nil, nil, err
	}

	p, err := parser.ParseAuto(path, data, parser.Options{Stats: stats})
	if err != nil {
		return nil, nil, err
	}

	ctx.Logger.Debug("parsed pipeline",
		"provider", p.Provider,
		"jobs", len(p.Jobs))
	return p, stats, nil
}

// formatDuration renders a duration for humans, dropping the zero
// seconds Go appends to whole minutes.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	s := d.String()
	if d >= time.Minute && d%time.Minute == 0 {
		s = s[:len(s)-2]
	}
	return s
}
