package analyze

import (
	"sort"

	"github.com/pipelens-dev/pipelens/pkg/core"
)

// Analyzer runs registered rules against an analysis context.
type Analyzer struct {
	config *Config
}

// NewAnalyzer creates an analyzer with optional configuration.
func NewAnalyzer(config *Config) *Analyzer {
	if config == nil {
		config = NewConfig()
	}
	return &Analyzer{config: config}
}

// Analyze runs all registered rules, in rule-ID order, and returns the
// merged findings sorted by severity then estimated savings. Analyzer
// passes cannot fail on a valid DAG; no findings is a healthy pipeline.
func (a *Analyzer) Analyze(ctx *Context) []core.Finding {
	if ctx == nil {
		return nil
	}

	var findings []core.Finding
	for _, rule := range All() {
		if a.config.DisabledRules[rule.ID] {
			continue
		}
		out := rule.Check(ctx)
		for i := range out {
			if sev, ok := a.config.SeverityOverrides[rule.ID]; ok {
				out[i].Severity = sev
			}
		}
		findings = append(findings, out...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity < findings[j].Severity
		}
		return findings[i].EstimatedSavingsSecs > findings[j].EstimatedSavingsSecs
	})
	return findings
}
