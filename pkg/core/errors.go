package core

import (
	"fmt"
	"strings"
)

// The parser error taxonomy. All four are fatal: the command aborts
// before any analysis and emits no partial report.

// ConfigParseError reports malformed pipeline source.
type ConfigParseError struct {
	Path string
	Line int // 0 when not derivable
	Err  error
}

func (e *ConfigParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: invalid pipeline configuration: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: invalid pipeline configuration: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// UnknownJobReferenceError reports a needs entry that resolves to no job.
type UnknownJobReferenceError struct {
	Job  string // the job declaring the reference
	Ref  string // the unresolved needs entry
	Path string
}

func (e *UnknownJobReferenceError) Error() string {
	return fmt.Sprintf("%s: job %q needs %q, which is not defined", e.Path, e.Job, e.Ref)
}

// CyclicDependencyError reports a cycle in the needs relation, carrying
// the offending job sequence.
type CyclicDependencyError struct {
	Cycle []string
	Path  string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%s: cyclic job dependency: %s", e.Path, strings.Join(e.Cycle, " -> "))
}

// UnsupportedProviderError reports an unrecognized pipeline dialect.
type UnsupportedProviderError struct {
	Path string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("%s: unrecognized pipeline dialect (supported: github-actions, gitlab-ci)", e.Path)
}
