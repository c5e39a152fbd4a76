package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pipelens-dev/pipelens/internal/simulate"
)

func runSimulateJSON(t *testing.T, args ...string) *simulate.Result {
	t.Helper()
	t.Setenv("PIPELENS_OUTPUT", "json")

	cmd := NewSimulateCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var res simulate.Result
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	return &res
}

func TestSimulateCommand_Deterministic(t *testing.T) {
	path := writeWorkflow(t)

	a := runSimulateJSON(t, path, "--trials", "200", "--seed", "7")
	b := runSimulateJSON(t, path, "--trials", "200", "--seed", "7")

	if a.MeanSecs != b.MeanSecs || a.P99Secs != b.P99Secs {
		t.Errorf("same seed should give identical results: %+v vs %+v", a, b)
	}
	if a.Trials != 200 {
		t.Errorf("Trials = %d, want 200", a.Trials)
	}
}

func TestSimulateCommand_ZeroVariance(t *testing.T) {
	path := writeWorkflow(t)

	res := runSimulateJSON(t, path, "--trials", "100", "--variance", "0")

	if res.Variance != 0 {
		t.Errorf("Variance = %v, want the requested 0, not the default", res.Variance)
	}
	if res.StdDevSecs != 0 || res.MinSecs != res.MaxSecs {
		t.Errorf("zero variance should collapse every trial: %+v", res)
	}
}

func TestSimulateCommand_Percentiles(t *testing.T) {
	path := writeWorkflow(t)

	res := runSimulateJSON(t, path, "--trials", "500", "--variance", "0.3")

	if res.MinSecs > res.P50Secs || res.P50Secs > res.P90Secs ||
		res.P90Secs > res.P99Secs || res.P99Secs > res.MaxSecs {
		t.Errorf("percentiles out of order: %+v", res)
	}
	if len(res.CriticalPathPct) == 0 {
		t.Error("expected per-job critical-path frequencies")
	}
}
