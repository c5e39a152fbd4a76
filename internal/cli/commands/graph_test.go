package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGraphCommand_Mermaid(t *testing.T) {
	path := writeWorkflow(t)
	t.Setenv("PIPELENS_OUTPUT", "markdown")

	cmd := NewGraphCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "graph TD") {
		t.Errorf("default format should be mermaid, got: %s", output)
	}
	if !strings.Contains(output, "build") || !strings.Contains(output, "test") {
		t.Errorf("graph should contain both jobs, got: %s", output)
	}
}

func TestGraphCommand_DotToFile(t *testing.T) {
	path := writeWorkflow(t)
	target := filepath.Join(t.TempDir(), "pipeline.dot")
	t.Setenv("PIPELENS_OUTPUT", "markdown")

	cmd := NewGraphCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path, "--format", "dot", "--out", target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("graph not written: %v", err)
	}
	if !strings.Contains(string(data), "digraph") {
		t.Errorf("dot output should be a digraph, got: %s", data)
	}
}

func TestGraphCommand_UnknownFormat(t *testing.T) {
	path := writeWorkflow(t)

	cmd := NewGraphCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path, "--format", "png"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}
