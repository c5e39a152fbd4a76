package analyze

import "github.com/pipelens-dev/pipelens/pkg/core"

// Thresholds holds configurable limits for analyzer rules. The savings
// figures are calibrated defaults, directionally correct rather than
// contractual.
type Thresholds struct {
	// MatrixSize is the combination count above which WA04 fires.
	MatrixSize int `koanf:"matrix_size"`
	// FlakySuccessRate is the success-rate floor below which FL01 fires.
	FlakySuccessRate float64 `koanf:"flaky_success_rate"`
	// CacheSavingsSecs maps ecosystem name to the estimated seconds a
	// warm cache saves per run.
	CacheSavingsSecs map[string]int `koanf:"cache_savings_secs"`
}

// DefaultThresholds returns the calibrated default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MatrixSize:       12,
		FlakySuccessRate: 0.90,
		CacheSavingsSecs: map[string]int{
			"npm":    150,
			"pip":    120,
			"cargo":  180,
			"gradle": 210,
			"docker": 240,
		},
	}
}

// Config holds configuration for the analyzer runner.
type Config struct {
	// DisabledRules contains rule IDs to skip.
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules.
	SeverityOverrides map[string]core.Severity

	// Thresholds contains rule limits and savings tables.
	Thresholds Thresholds
}

// NewConfig creates a default configuration.
func NewConfig() *Config {
	return &Config{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]core.Severity),
		Thresholds:        DefaultThresholds(),
	}
}

// Disable disables a rule by ID.
func (c *Config) Disable(ruleID string) {
	c.DisabledRules[ruleID] = true
}

// SetSeverity overrides the default severity of a rule.
func (c *Config) SetSeverity(ruleID string, sev core.Severity) {
	c.SeverityOverrides[ruleID] = sev
}
