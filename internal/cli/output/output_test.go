package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRenderer_InvalidModeFallsBackToAuto(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, Mode("bogus"))
	// A plain buffer is not a terminal, so auto resolves to markdown.
	if got := r.EffectiveMode(); got != ModeMarkdown {
		t.Errorf("EffectiveMode() = %q, want %q", got, ModeMarkdown)
	}
}

func TestRenderer_ExplicitModes(t *testing.T) {
	for _, mode := range []Mode{ModeText, ModeMarkdown, ModeJSON} {
		var buf bytes.Buffer
		r := NewRenderer(&buf, &buf, mode)
		if got := r.EffectiveMode(); got != mode {
			t.Errorf("EffectiveMode() = %q, want %q", got, mode)
		}
	}
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	if err := r.JSON(map[string]int{"jobs": 3}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"jobs": 3`) {
		t.Errorf("JSON output missing field: %s", buf.String())
	}
}

func TestRenderer_SuccessOutsideTextModeIsPlain(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeMarkdown)
	r.Success("done")
	if strings.Contains(buf.String(), "✓") {
		t.Errorf("markdown mode should not use glyphs: %s", buf.String())
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatHeader(2, "Findings"); got != "## Findings" {
		t.Errorf("FormatHeader = %q", got)
	}
	if got := FormatKeyValue("Provider", "github-actions"); got != "- **Provider:** github-actions" {
		t.Errorf("FormatKeyValue = %q", got)
	}
}
