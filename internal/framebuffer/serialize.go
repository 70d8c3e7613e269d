// Package framebuffer implements SPEC_FULL.md §4.7's Framebuffer
// Serializer: parsing a cooked-terminal redraw (UTF-8 text, a subset of SGR
// escapes, \r\n line breaks) into the renderer's JSON wire format.
package framebuffer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Style is the SGR attribute set a span was drawn with.
type Style struct {
	FG      int
	HasFG   bool
	Bold    bool
	Dim     bool
	Reverse bool
}

// Span is one run of text sharing a single Style.
type Span struct {
	Text  string
	Style Style
}

// Line is one output row and its spans.
type Line struct {
	Row   int
	Spans []Span
}

// Cursor describes the terminal cursor position passed in by the caller;
// cursor state is not derived from the byte stream (SPEC_FULL.md §4.7).
type Cursor struct {
	Row     int
	Col     int
	Visible bool
}

type parseState struct {
	lines            []Line
	currentRow       int
	currentStyle     Style
	currentSpanText  strings.Builder
	currentSpanStyle Style
}

// Serialize parses fb (rows lines worth of cooked-terminal output) and
// returns the framebuffer JSON document described in SPEC_FULL.md §4.7.
func Serialize(fb []byte, rows, cols int, cursor Cursor) (string, error) {
	if fb == nil {
		return "", errors.New("framebuffer is nil")
	}
	if rows < 0 {
		return "", errors.New("rows must be non-negative")
	}

	st := &parseState{lines: make([]Line, rows)}
	for r := 0; r < rows; r++ {
		st.lines[r].Row = r
	}

	st.parse(fb, rows)
	st.ensureEmptyRows(rows)

	return buildJSON(st.lines, rows, cols, cursor), nil
}

func (st *parseState) flushSpan() {
	if st.currentSpanText.Len() == 0 {
		return
	}
	if st.currentRow < 0 || st.currentRow >= len(st.lines) {
		st.currentSpanText.Reset()
		return
	}
	line := &st.lines[st.currentRow]
	line.Spans = append(line.Spans, Span{Text: st.currentSpanText.String(), Style: st.currentSpanStyle})
	st.currentSpanText.Reset()
}

func (st *parseState) addChar(c byte) {
	st.currentSpanText.WriteByte(c)
}

// parse walks the byte stream per ik_serialize_parse_framebuffer.
func (st *parseState) parse(fb []byte, rows int) {
	i := 0
	n := len(fb)
	for i < n {
		if i+6 <= n && string(fb[i:i+6]) == "\x1b[?25l" {
			i += 6
			continue
		}
		if i+3 <= n && string(fb[i:i+3]) == "\x1b[H" {
			i += 3
			continue
		}
		if fb[i] == '\x1b' && i+1 < n && fb[i+1] == '[' {
			i = st.handleEscapeSequence(fb, i, n)
			continue
		}
		if fb[i] == '\r' && i+1 < n && fb[i+1] == '\n' {
			st.flushSpan()
			st.currentRow++
			i += 2
			continue
		}
		st.addChar(fb[i])
		i++
	}

	if st.currentSpanText.Len() > 0 && st.currentRow < rows {
		st.flushSpan()
	}
}

// handleEscapeSequence consumes one CSI sequence starting at fb[i] == ESC,
// fb[i+1] == '['. Recognizes the SGR subset in SPEC_FULL.md §4.7; anything
// else is consumed up to its final byte (0x40..0x7E) and dropped.
func (st *parseState) handleEscapeSequence(fb []byte, i, n int) int {
	i += 2

	if newI, matched := st.handleFgColor(fb, i, n); matched {
		return newI
	}

	if i < n {
		switch fb[i] {
		case '0':
			if i+1 < n && fb[i+1] == 'm' {
				return st.handleReset(i)
			}
		case '1':
			if i+1 < n && fb[i+1] == 'm' {
				return st.handleBold(i)
			}
		case '2':
			if i+1 < n && fb[i+1] == 'm' {
				return st.handleDim(i)
			}
		case '7':
			if i+1 < n && fb[i+1] == 'm' {
				return st.handleReverse(i)
			}
		}
	}

	for i < n && (fb[i] < 0x40 || fb[i] > 0x7E) {
		i++
	}
	if i < n {
		i++
	}
	return i
}

// handleFgColor matches "38;5;Nm" (256-color foreground). Returns the
// advanced index and whether it matched and fully consumed the sequence.
func (st *parseState) handleFgColor(fb []byte, i, n int) (int, bool) {
	if i+4 >= n {
		return i, false
	}
	if fb[i] != '3' || fb[i+1] != '8' || fb[i+2] != ';' || fb[i+3] != '5' || fb[i+4] != ';' {
		return i, false
	}
	i += 5
	color := 0
	for i < n && fb[i] >= '0' && fb[i] <= '9' {
		color = color*10 + int(fb[i]-'0')
		i++
	}
	if i < n && fb[i] == 'm' {
		i++
		st.flushSpan()
		st.currentStyle.FG = color
		st.currentStyle.HasFG = true
		st.currentSpanStyle = st.currentStyle
		return i, true
	}
	return i, false
}

func (st *parseState) handleReset(i int) int {
	i += 2
	st.flushSpan()
	st.currentStyle = Style{}
	st.currentSpanStyle = st.currentStyle
	return i
}

func (st *parseState) handleBold(i int) int {
	i += 2
	st.flushSpan()
	st.currentStyle.Bold = true
	st.currentSpanStyle = st.currentStyle
	return i
}

func (st *parseState) handleDim(i int) int {
	i += 2
	st.flushSpan()
	st.currentStyle.Dim = true
	st.currentSpanStyle = st.currentStyle
	return i
}

func (st *parseState) handleReverse(i int) int {
	i += 2
	st.flushSpan()
	st.currentStyle.Reverse = true
	st.currentSpanStyle = st.currentStyle
	return i
}

// ensureEmptyRows gives every row with no spans a single empty span so row
// indices stay dense (SPEC_FULL.md §4.7).
func (st *parseState) ensureEmptyRows(rows int) {
	for r := 0; r < rows; r++ {
		if len(st.lines[r].Spans) == 0 {
			st.lines[r].Spans = []Span{{Text: ""}}
		}
	}
}

func buildJSON(lines []Line, rows, cols int, cursor Cursor) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"type":"framebuffer","rows":%d,"cols":%d,"cursor":{"row":%d,"col":%d,"visible":%s},"lines":[`,
		rows, cols, cursor.Row, cursor.Col, strconv.FormatBool(cursor.Visible))

	for r, line := range lines {
		if r > 0 {
			b.WriteByte(',')
		}
		writeLineJSON(&b, line)
	}
	b.WriteString("]}")
	return b.String()
}

func writeLineJSON(b *strings.Builder, line Line) {
	fmt.Fprintf(b, `{"row":%d,"spans":[`, line.Row)
	for s, span := range line.Spans {
		if s > 0 {
			b.WriteByte(',')
		}
		writeSpanJSON(b, span)
	}
	b.WriteString("]}")
}

func writeSpanJSON(b *strings.Builder, span Span) {
	b.WriteString(`{"text":"`)
	escapeTextInto(b, span.Text)
	b.WriteString(`","style":{`)
	writeStyleJSON(b, span.Style)
	b.WriteString("}}")
}

func writeStyleJSON(b *strings.Builder, style Style) {
	first := true
	sep := func() {
		if !first {
			b.WriteByte(',')
		}
		first = false
	}
	if style.HasFG {
		sep()
		fmt.Fprintf(b, `"fg":%d`, style.FG)
	}
	if style.Bold {
		sep()
		b.WriteString(`"bold":true`)
	}
	if style.Dim {
		sep()
		b.WriteString(`"dim":true`)
	}
	if style.Reverse {
		sep()
		b.WriteString(`"reverse":true`)
	}
}

// escapeTextInto escapes '"' and '\' per JSON string rules, matching
// ik_serialize_escape_text.
func escapeTextInto(b *strings.Builder, text string) {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
}
