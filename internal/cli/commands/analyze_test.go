package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pipelens-dev/pipelens/pkg/core"
)

func runAnalyzeJSON(t *testing.T, args ...string) *core.AnalysisReport {
	t.Helper()
	t.Setenv("PIPELENS_OUTPUT", "json")

	cmd := NewAnalyzeCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var rep core.AnalysisReport
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	return &rep
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	path := writeWorkflow(t)
	rep := runAnalyzeJSON(t, path)

	if rep.JobCount != 2 {
		t.Errorf("JobCount = %d, want 2", rep.JobCount)
	}
	if rep.Provider != core.ProviderGitHubActions {
		t.Errorf("Provider = %q, want %q", rep.Provider, core.ProviderGitHubActions)
	}
	if len(rep.Findings) == 0 {
		t.Error("expected findings for an uncached, serialized workflow")
	}
	if rep.HealthScore < 0 || rep.HealthScore > 100 {
		t.Errorf("HealthScore = %d, want 0..100", rep.HealthScore)
	}
	if len(rep.CriticalPath) == 0 {
		t.Error("expected a non-empty critical path")
	}

	// The uncached npm installs must surface as CA01.
	found := false
	for _, f := range rep.Findings {
		if f.RuleID == "CA01" {
			found = true
		}
	}
	if !found {
		t.Error("expected a CA01 finding")
	}
}

func TestAnalyzeCommand_SeverityFilter(t *testing.T) {
	path := writeWorkflow(t)

	all := runAnalyzeJSON(t, path)
	high := runAnalyzeJSON(t, path, "--severity", "high")

	if len(high.Findings) > len(all.Findings) {
		t.Errorf("filter grew the findings list: %d > %d", len(high.Findings), len(all.Findings))
	}
	for _, f := range high.Findings {
		if f.Severity > core.SeverityHigh {
			t.Errorf("finding %s has severity %s below the filter", f.RuleID, f.Severity)
		}
	}
}

func TestAnalyzeCommand_FailOn(t *testing.T) {
	path := writeWorkflow(t)
	t.Setenv("PIPELENS_OUTPUT", "json")

	cmd := NewAnalyzeCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path, "--fail-on", "info"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected --fail-on info to fail for a workflow with findings")
	}
}

func TestAnalyzeCommand_Markdown(t *testing.T) {
	path := writeWorkflow(t)
	t.Setenv("PIPELENS_OUTPUT", "markdown")

	cmd := NewAnalyzeCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "# Pipeline Analysis") {
		t.Errorf("markdown output should contain the report header, got: %s", output)
	}
	if !strings.Contains(output, "| Rule |") {
		t.Errorf("markdown output should contain the findings table, got: %s", output)
	}
}

func TestAnalyzeCommand_MissingFile(t *testing.T) {
	cmd := NewAnalyzeCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"does-not-exist.yml"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for a missing file")
	}
}
