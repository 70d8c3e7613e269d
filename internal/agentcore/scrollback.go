package agentcore

// Line is one logical scrollback line: raw text plus a wrap-layout cache
// keyed by the column width it was last computed for (SPEC_FULL.md §3
// "Scrollback").
type Line struct {
	Text string

	wrapWidth int
	wrapped   []string
}

// Scrollback is the append-only, fixed-capacity ring of logical lines shown
// above the input area. Eviction is FIFO once capacity is reached.
type Scrollback struct {
	capacity int
	lines    []Line
}

// NewScrollback constructs a scrollback bounded to capacity lines. A
// non-positive capacity is clamped to 1 so the invariant "line count never
// exceeds capacity" (SPEC_FULL.md §8) always has a caller to violate.
func NewScrollback(capacity int) *Scrollback {
	if capacity <= 0 {
		capacity = 1
	}
	return &Scrollback{capacity: capacity}
}

// Append adds one logical line, evicting the oldest line if at capacity.
func (s *Scrollback) Append(text string) {
	s.lines = append(s.lines, Line{Text: text})
	if len(s.lines) > s.capacity {
		s.lines = s.lines[len(s.lines)-s.capacity:]
	}
}

// Len reports the number of retained lines.
func (s *Scrollback) Len() int { return len(s.lines) }

// Lines returns the retained lines oldest-first. Callers must not mutate
// the returned slice's backing array.
func (s *Scrollback) Lines() []Line { return s.lines }

// WrapAt returns the wrapped rows of line i for the given column
// width, computing and caching the layout on first use for that width.
func (s *Scrollback) WrapAt(i int, width int) []string {
	if i < 0 || i >= len(s.lines) {
		return nil
	}
	line := &s.lines[i]
	if width <= 0 {
		return []string{line.Text}
	}
	if line.wrapWidth == width && line.wrapped != nil {
		return line.wrapped
	}
	line.wrapped = wrapText(line.Text, width)
	line.wrapWidth = width
	return line.wrapped
}

// wrapText breaks text into rows of at most width runes, cutting every
// width runes without regard to word boundaries. Newlines get no special
// treatment; lines are already newline-free by construction of the agent's
// flush rule.
func wrapText(text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	runes := []rune(text)
	var rows []string
	for len(runes) > width {
		rows = append(rows, string(runes[:width]))
		runes = runes[width:]
	}
	rows = append(rows, string(runes))
	return rows
}
