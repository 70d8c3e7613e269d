// Package render implements the cooked-terminal byte-stream producer that
// feeds internal/framebuffer (SPEC_FULL.md §4.7): it lays out an agent's
// scrollback and input line with a small set of SGR
// styles built through github.com/charmbracelet/lipgloss (the teacher's
// own styling dependency), then hands the resulting byte stream to
// framebuffer.Serialize to produce the wire-format JSON a terminal backend
// renders. This pairs a teacher rendering dependency with the core's own
// parser without reintroducing bubbletea's Model/Update/View runtime.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ikigai/ikigai/internal/agentcore"
	"github.com/ikigai/ikigai/internal/eventloop"
	"github.com/ikigai/ikigai/internal/framebuffer"
)

// Styles names the small, fixed palette the framebuffer serializer
// recognizes (SPEC_FULL.md §4.7: bold, dim, reverse, 256-color foreground).
type Styles struct {
	Assistant lipgloss.Style
	Tool      lipgloss.Style
	Error     lipgloss.Style
	Spinner   lipgloss.Style
	Input     lipgloss.Style
}

// DefaultStyles mirrors the teacher's interactive_tui.go palette choices
// (bold spinner, dim tool text, reversed error lines, a colored prompt)
// translated onto the
// SGR subset the serializer understands.
func DefaultStyles() Styles {
	return Styles{
		Assistant: lipgloss.NewStyle(),
		Tool:      lipgloss.NewStyle().Faint(true),
		Error:     lipgloss.NewStyle().Reverse(true),
		Spinner:   lipgloss.NewStyle().Bold(true),
		Input:     lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Renderer implements eventloop.Renderer: it lays out the current agent's
// frame as a cooked-terminal byte stream and serializes it to framebuffer
// JSON, written to Out.
type Renderer struct {
	Rows, Cols int
	Styles     Styles
	Out        func(frameJSON string)

	spinnerFrame int
}

var _ eventloop.Renderer = (*Renderer)(nil)

// New constructs a Renderer with the given geometry and output sink.
func New(rows, cols int, out func(string)) *Renderer {
	return &Renderer{Rows: rows, Cols: cols, Styles: DefaultStyles(), Out: out}
}

// Render lays out current's scrollback tail and input buffer into Rows
// rows, serializes it, and hands the JSON to Out. A streaming line that has
// not yet been flushed to scrollback is not shown.
func (r *Renderer) Render(current *agentcore.Agent) {
	if current == nil || r.Out == nil {
		return
	}

	body := r.layout(current)
	frame, err := framebuffer.Serialize([]byte(body), r.Rows, r.Cols, framebuffer.Cursor{
		Row:     r.Rows - 1,
		Col:     len(current.InputBuf.String()),
		Visible: current.State() == agentcore.Idle,
	})
	if err != nil {
		return
	}
	r.Out(frame)
}

// layout builds the cooked-terminal byte stream: scrollback lines from the
// bottom up filling Rows-1 rows, an input line on the last row, and a
// trailing spinner while the agent is waiting on a response or tool.
func (r *Renderer) layout(a *agentcore.Agent) string {
	contentRows := r.Rows - 1
	if contentRows < 0 {
		contentRows = 0
	}

	lines := a.Scrollback.Lines()
	start := len(lines) - contentRows
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, line := range lines[start:] {
		b.WriteString(r.styleFor(line.Text).Render(line.Text))
		b.WriteString("\r\n")
	}
	for i := len(lines[start:]); i < contentRows; i++ {
		b.WriteString("\r\n")
	}

	b.WriteString(r.inputLine(a))
	return b.String()
}

func (r *Renderer) inputLine(a *agentcore.Agent) string {
	prompt := r.Styles.Input.Render("> ")
	text := a.InputBuf.String()

	switch a.State() {
	case agentcore.WaitingForLLM, agentcore.ExecutingTool:
		r.spinnerFrame = (r.spinnerFrame + 1) % len(spinnerFrames)
		spinner := r.Styles.Spinner.Render(spinnerFrames[r.spinnerFrame])
		return fmt.Sprintf("%s%s %s", prompt, text, spinner)
	default:
		return prompt + text
	}
}

// styleFor picks a style for one scrollback line by a small set of textual
// conventions (debug-pipe prefixes are bracketed, interrupt/error lines are
// reported verbatim by agentcore) rather than carrying per-line style
// metadata through Scrollback, matching the original's line-is-just-text
// model (SPEC_FULL.md §3 "Scrollback").
func (r *Renderer) styleFor(text string) lipgloss.Style {
	switch {
	case strings.HasPrefix(text, "["):
		return r.Styles.Tool
	case text == "Interrupted":
		return r.Styles.Error
	default:
		return r.Styles.Assistant
	}
}
