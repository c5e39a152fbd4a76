// Package output renders command results. A renderer resolves one of
// three effective modes: styled text for interactive terminals,
// markdown for pipes and scripts, and JSON for machine consumers.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects the output rendering mode.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Styles holds the lipgloss styles used in text mode. Outside text
// mode every style is a no-op, so callers can render unconditionally.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	JobName lipgloss.Style
}

func newStyles(colored bool) *Styles {
	if !colored {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header1: plain, Header2: plain, Bold: plain, Muted: plain,
			Error: plain, Warning: plain, Info: plain, Success: plain,
			JobName: plain,
		}
	}
	return &Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		JobName: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
	}
}

// Renderer writes command output in one effective mode.
type Renderer struct {
	out       io.Writer
	errOut    io.Writer
	mode      Mode
	effective Mode
	styles    *Styles
}

// NewRenderer creates a renderer. ModeAuto resolves to text on a color
// terminal and to markdown everywhere else.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
	default:
		mode = ModeAuto
	}

	effective := mode
	if mode == ModeAuto {
		effective = ModeMarkdown
		if f, ok := out.(*os.File); ok && termenv.NewOutput(f).ColorProfile() != termenv.Ascii {
			effective = ModeText
		}
	}

	return &Renderer{
		out:       out,
		errOut:    errOut,
		mode:      mode,
		effective: effective,
		styles:    newStyles(effective == ModeText),
	}
}

// EffectiveMode returns the resolved mode after auto-detection.
func (r *Renderer) EffectiveMode() Mode { return r.effective }

// Writer returns the destination for primary output.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the active style set.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to the primary output.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Errorf writes formatted output to the error stream.
func (r *Renderer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.errOut, format, args...)
}

// Success reports a positive outcome.
func (r *Renderer) Success(msg string) {
	if r.effective == ModeText {
		r.Println(r.styles.Success.Render("✓ " + msg))
		return
	}
	r.Println(msg)
}

// Header writes a section header appropriate to the mode.
func (r *Renderer) Header(level int, text string) {
	switch r.effective {
	case ModeText:
		style := r.styles.Header1
		if level > 1 {
			style = r.styles.Header2
		}
		r.Println("")
		r.Println(style.Render(text))
		r.Println("")
	default:
		r.Println(FormatHeader(level, text))
		r.Println("")
	}
}

// JSON encodes v to the primary output with indentation.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatHeader renders a markdown header line.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue renders a markdown key/value bullet.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}
