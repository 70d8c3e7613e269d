package framebuffer

import (
	"testing"

	"github.com/ikigai/ikigai/internal/testutil"
)

func TestSerializeNilFramebufferErrors(t *testing.T) {
	_, err := Serialize(nil, 2, 80, Cursor{})
	testutil.RequireTrue(t, err != nil, "nil framebuffer rejected")
}

func TestSerializeEmptyFramebuffer(t *testing.T) {
	json, err := Serialize([]byte(""), 0, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize empty")
	testutil.RequireStringContains(t, json, `"type":"framebuffer"`, "type tag present")
}

func TestSerializePlainText(t *testing.T) {
	json, err := Serialize([]byte("Hello\r\nWorld\r\n"), 3, 80, Cursor{})
	testutil.RequireNoError(t, err, "serialize plain text")
	testutil.RequireStringContains(t, json, "Hello", "first line present")
	testutil.RequireStringContains(t, json, "World", "second line present")
}

func TestSerializeBoldStyle(t *testing.T) {
	json, err := Serialize([]byte("\x1b[1mBold\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize bold")
	testutil.RequireStringContains(t, json, "Bold", "text present")
	testutil.RequireStringContains(t, json, `"bold":true`, "bold attribute present")
}

func TestSerializeDimStyle(t *testing.T) {
	json, err := Serialize([]byte("\x1b[2mDim\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize dim")
	testutil.RequireStringContains(t, json, `"dim":true`, "dim attribute present")
}

func TestSerializeReverseStyle(t *testing.T) {
	json, err := Serialize([]byte("\x1b[7mReversed\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize reverse")
	testutil.RequireStringContains(t, json, `"reverse":true`, "reverse attribute present")
}

func TestSerializeFgColor(t *testing.T) {
	json, err := Serialize([]byte("\x1b[38;5;42mColored\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize fg color")
	testutil.RequireStringContains(t, json, `"fg":42`, "fg attribute present")
}

func TestSerializeResetStyle(t *testing.T) {
	json, err := Serialize([]byte("\x1b[1mBold\x1b[0mNormal\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize reset")
	testutil.RequireStringContains(t, json, "Bold", "bold text present")
	testutil.RequireStringContains(t, json, "Normal", "normal text present")
}

func TestSerializeSpanCapacityGrowth(t *testing.T) {
	text := "A\x1b[1mB\x1b[0mC\x1b[2mD\x1b[0mE\x1b[7mF\r\n"
	json, err := Serialize([]byte(text), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize many spans")
	testutil.RequireStringContains(t, json, "A", "first span present")
	testutil.RequireStringContains(t, json, "F", "last span present")
}

func TestSerializeTextWithBackslashAndQuote(t *testing.T) {
	json, err := Serialize([]byte("He said \"hello\"\\\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize escaped text")
	testutil.RequireStringContains(t, json, `\"`, "escaped quote present")
	testutil.RequireStringContains(t, json, `\\`, "escaped backslash present")
}

func TestSerializeBoldPlusDimComma(t *testing.T) {
	json, err := Serialize([]byte("\x1b[1m\x1b[2mBothStyles\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize bold+dim")
	testutil.RequireStringContains(t, json, `"bold":true`, "bold present")
	testutil.RequireStringContains(t, json, `"dim":true`, "dim present")
}

func TestSerializeAllStylesCombined(t *testing.T) {
	text := "\x1b[38;5;10m\x1b[1m\x1b[2m\x1b[7mAll\r\n"
	json, err := Serialize([]byte(text), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize all styles")
	testutil.RequireStringContains(t, json, `"fg":10`, "fg present")
	testutil.RequireStringContains(t, json, `"bold":true`, "bold present")
	testutil.RequireStringContains(t, json, `"dim":true`, "dim present")
	testutil.RequireStringContains(t, json, `"reverse":true`, "reverse present")
}

func TestSerializeHideCursorSequenceIgnored(t *testing.T) {
	json, err := Serialize([]byte("\x1b[?25lHello\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize hide cursor")
	testutil.RequireStringContains(t, json, "Hello", "text after hide-cursor sequence survives")
}

func TestSerializeHomeSequenceIgnored(t *testing.T) {
	json, err := Serialize([]byte("\x1b[HHello\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize home sequence")
	testutil.RequireStringContains(t, json, "Hello", "text after home sequence survives")
}

func TestSerializeUnknownEscapeSkipped(t *testing.T) {
	json, err := Serialize([]byte("\x1b[?1049hHi\r\n"), 2, 80, Cursor{Visible: true})
	testutil.RequireNoError(t, err, "serialize unknown escape")
	testutil.RequireStringContains(t, json, "Hi", "text after unknown escape survives")
}

func TestSerializeEmptyRowsGetDenseSpans(t *testing.T) {
	json, err := Serialize([]byte("Line1\r\n"), 3, 80, Cursor{})
	testutil.RequireNoError(t, err, "serialize with trailing empty rows")
	testutil.RequireStringContains(t, json, `"row":2`, "third row present even though empty")
}

func TestSerializeCursorFieldsRoundTrip(t *testing.T) {
	json, err := Serialize([]byte("x\r\n"), 1, 10, Cursor{Row: 4, Col: 7, Visible: true})
	testutil.RequireNoError(t, err, "serialize cursor")
	testutil.RequireStringContains(t, json, `"row":4,"col":7,"visible":true`, "cursor fields present")
}
