package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRulesCommand_ListJSON(t *testing.T) {
	t.Setenv("PIPELENS_OUTPUT", "json")

	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var rules []struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Severity string `json:"severity"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rules); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if len(rules) == 0 {
		t.Fatal("expected registered rules")
	}
	ids := make(map[string]bool)
	for _, r := range rules {
		ids[r.ID] = true
	}
	for _, want := range []string{"CA01", "PA01", "WA03"} {
		if !ids[want] {
			t.Errorf("rule list missing %s", want)
		}
	}
}

func TestRulesCommand_CategoryFilter(t *testing.T) {
	t.Setenv("PIPELENS_OUTPUT", "json")

	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--category", "caching"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var rules []struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rules); err != nil {
		t.Fatal(err)
	}
	for _, r := range rules {
		if r.Category != "caching" {
			t.Errorf("filter leaked category %q", r.Category)
		}
	}
}

func TestRulesCommand_ShowRule(t *testing.T) {
	t.Setenv("PIPELENS_OUTPUT", "markdown")

	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"ca01"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(buf.String(), "CA01") {
		t.Errorf("show output should contain the rule ID, got: %s", buf.String())
	}
}

func TestRulesCommand_UnknownRule(t *testing.T) {
	cmd := NewRulesCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"ZZ99"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for an unknown rule")
	}
}
