package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pipelens-dev/pipelens/internal/costs"
)

func TestCostCommand_JSON(t *testing.T) {
	path := writeWorkflow(t)
	t.Setenv("PIPELENS_OUTPUT", "json")

	cmd := NewCostCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path, "--runs-per-month", "300"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var b costs.Breakdown
	if err := json.Unmarshal(buf.Bytes(), &b); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if b.RunsPerMonth != 300 {
		t.Errorf("RunsPerMonth = %d, want 300", b.RunsPerMonth)
	}
	if b.Current.ComputeCostUSD <= 0 {
		t.Errorf("Current.ComputeCostUSD = %f, want > 0", b.Current.ComputeCostUSD)
	}
	if b.Optimized.ComputeCostUSD > b.Current.ComputeCostUSD {
		t.Errorf("optimized cost %f exceeds current %f", b.Optimized.ComputeCostUSD, b.Current.ComputeCostUSD)
	}
	if b.Current.WaitCostUSD != 0 {
		t.Errorf("WaitCostUSD = %f without a team, want 0", b.Current.WaitCostUSD)
	}
}

func TestCostCommand_WaitCost(t *testing.T) {
	path := writeWorkflow(t)
	t.Setenv("PIPELENS_OUTPUT", "json")

	cmd := NewCostCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path, "--team-size", "4", "--hourly-rate", "80"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var b costs.Breakdown
	if err := json.Unmarshal(buf.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if b.Current.WaitCostUSD <= 0 {
		t.Errorf("WaitCostUSD = %f with a priced team, want > 0", b.Current.WaitCostUSD)
	}
}

func TestCostCommand_Markdown(t *testing.T) {
	path := writeWorkflow(t)
	t.Setenv("PIPELENS_OUTPUT", "markdown")

	cmd := NewCostCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(buf.String(), "# Monthly Cost Estimate") {
		t.Errorf("markdown output should contain the header, got: %s", buf.String())
	}
}
