package config

import (
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// Defaults for configuration values.
const (
	DefaultOutput       = "auto"
	DefaultRunsPerMonth = 200
)

// Config is the resolved CLI configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
type Config struct {
	// OutputFormat is one of auto, text, markdown, json.
	OutputFormat string `koanf:"output"`

	// Verbose enables debug logging on stderr.
	Verbose bool `koanf:"verbose"`

	// StatsPath points to a pre-fetched run-history JSON file used to
	// calibrate duration estimates.
	StatsPath string `koanf:"stats"`

	Cost    CostConfig    `koanf:"cost"`
	Analyze AnalyzeConfig `koanf:"analyze"`
}

// CostConfig drives the cost estimator.
type CostConfig struct {
	RunsPerMonth  int     `koanf:"runs_per_month"`
	RatePerMinute float64 `koanf:"rate_per_minute"`
	TeamSize      int     `koanf:"team_size"`
	HourlyRate    float64 `koanf:"hourly_rate"`
}

// AnalyzeConfig holds analyzer rule configuration.
type AnalyzeConfig struct {
	// Disabled lists rule IDs to skip.
	Disabled []string `koanf:"disabled"`

	// Severity maps rule ID to an override severity name.
	Severity map[string]string `koanf:"severity"`

	Thresholds ThresholdConfig `koanf:"thresholds"`
}

// ThresholdConfig overrides analyzer thresholds. Zero values keep the
// built-in defaults.
type ThresholdConfig struct {
	MatrixSize       int            `koanf:"matrix_size"`
	FlakySuccessRate float64        `koanf:"flaky_success_rate"`
	CacheSavingsSecs map[string]int `koanf:"cache_savings_secs"`
}

// AnalyzerConfig converts the CLI configuration into the analyzer's
// runtime configuration.
func (c *Config) AnalyzerConfig() *analyze.Config {
	cfg := analyze.NewConfig()
	for _, id := range c.Analyze.Disabled {
		cfg.Disable(id)
	}
	for id, name := range c.Analyze.Severity {
		if sev, ok := core.ParseSeverity(name); ok {
			cfg.SetSeverity(id, sev)
		}
	}
	if t := c.Analyze.Thresholds; t.MatrixSize > 0 {
		cfg.Thresholds.MatrixSize = t.MatrixSize
	}
	if t := c.Analyze.Thresholds; t.FlakySuccessRate > 0 {
		cfg.Thresholds.FlakySuccessRate = t.FlakySuccessRate
	}
	for eco, secs := range c.Analyze.Thresholds.CacheSavingsSecs {
		cfg.Thresholds.CacheSavingsSecs[eco] = secs
	}
	return cfg
}
