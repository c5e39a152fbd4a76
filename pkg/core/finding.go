package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Severity
// =============================================================================

// Severity indicates the importance of a finding. Lower values are more
// severe, so threshold filtering is `severity <= threshold`.
type Severity int

// Severity levels for findings.
const (
	SeverityCritical Severity = iota
	SeverityHigh
	SeverityMedium
	SeverityLow
	SeverityInfo
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalJSON emits the severity as its string form, which is what the
// dashboard consumer expects.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts the string form emitted by MarshalJSON.
func (s *Severity) UnmarshalJSON(data []byte) error {
	sev, ok := ParseSeverity(strings.Trim(string(data), `"`))
	if !ok {
		return fmt.Errorf("unknown severity %s", data)
	}
	*s = sev
	return nil
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityMedium and false
// if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "critical":
		return SeverityCritical, true
	case "high":
		return SeverityHigh, true
	case "medium":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityMedium, false
	}
}

// =============================================================================
// Category
// =============================================================================

// Category groups findings by the kind of inefficiency they describe.
type Category string

// Finding categories.
const (
	CategoryCaching         Category = "caching"
	CategoryParallelization Category = "parallelization"
	CategoryWaste           Category = "waste"
	CategoryCost            Category = "cost"
	CategoryFlakiness       Category = "flakiness"
)

// =============================================================================
// Finding
// =============================================================================

// Finding is a single detected inefficiency. Findings are created by
// exactly one analyzer rule, are immutable once emitted, and are
// consumed only by the report builder and the optimizer.
type Finding struct {
	RuleID         string   `json:"rule_id"`
	Severity       Severity `json:"severity"`
	Category       Category `json:"category"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	AffectedJobs   []string `json:"affected_jobs"`
	Recommendation string   `json:"recommendation"`

	// FixID names the machine-applicable fix, empty when none exists.
	FixID string `json:"fix_command,omitempty"`

	// FixArgs carries the fix's arguments keyed by role ("producer",
	// "consumer", "job", "ecosystem"). Job names pass through verbatim,
	// so names containing separator characters stay intact.
	FixArgs map[string]string `json:"fix_args,omitempty"`

	// EstimatedSavingsSecs is directionally-correct, not contractual;
	// the per-ecosystem tables behind it are configurable.
	EstimatedSavingsSecs int `json:"estimated_savings_secs,omitempty"`

	// Confidence is in [0,1]. Exact action-name matches score higher
	// than loose command-text matches.
	Confidence float64 `json:"confidence"`

	AutoFixable bool `json:"auto_fixable"`
}
