// Package core contains the shared data model for pipeline analysis:
// the normalized Pipeline/Job/Step types produced by the provider
// parsers, the Finding and AnalysisReport types produced by the
// analyzers, and the structural error taxonomy.
//
// Types in this package are DTOs - they carry data without behavior.
// Everything downstream of the parser treats a Pipeline as read-only;
// the optimizer derives new instances via Clone rather than mutating.
package core
