// Package analyze provides the analyzer rule framework: a global
// registry of data-driven rule definitions, a read-only analysis
// context over the pipeline and its dependency graph, and the runner
// that produces findings.
//
// Rules register themselves from init() functions in the subpackages of
// pkg/analyze/rules; commands import those packages for side effects.
// A rule can never fail once given a valid DAG - its only outputs are
// zero or more findings.
package analyze
