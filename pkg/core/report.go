package core

// =============================================================================
// AnalysisReport
// =============================================================================

// AnalysisReport is the aggregate result of one analyze invocation.
// Field names are stable: the dashboard collaborator consumes this JSON.
type AnalysisReport struct {
	ReportID                   string    `json:"report_id"`
	PipelineName               string    `json:"pipeline_name"`
	SourceFile                 string    `json:"source_file"`
	Provider                   Provider  `json:"provider"`
	JobCount                   int       `json:"job_count"`
	StepCount                  int       `json:"step_count"`
	MaxParallelism             int       `json:"max_parallelism"`
	CriticalPath               []string  `json:"critical_path"`
	CriticalPathDurationSecs   int       `json:"critical_path_duration_secs"`
	TotalEstimatedDurationSecs int       `json:"total_estimated_duration_secs"`
	OptimizedDurationSecs      int       `json:"optimized_duration_secs"`
	Findings                   []Finding `json:"findings"`
	HealthScore                int       `json:"health_score"`
	HealthGrade                string    `json:"health_grade"`
}

// Grade maps a 0-100 health score to a letter grade.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
