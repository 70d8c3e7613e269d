package inputdecoder

import (
	"testing"

	"github.com/ikigai/ikigai/internal/testutil"
)

func feedString(t *testing.T, d *Decoder, s string) []Action {
	t.Helper()
	var actions []Action
	for i := 0; i < len(s); i++ {
		if action, ok := d.Feed(s[i]); ok {
			actions = append(actions, action)
		}
	}
	return actions
}

func TestDecodesPlainASCII(t *testing.T) {
	d := New()
	actions := feedString(t, d, "a")
	testutil.RequireEqual(t, len(actions), 1, "should decode one rune action")
	testutil.RequireEqual(t, actions[0], Action{Kind: ActionRune, Rune: 'a'}, "should decode the 'a' rune")
}

func TestDecodesMultiByteUTF8(t *testing.T) {
	d := New()
	actions := feedString(t, d, "é")
	testutil.RequireEqual(t, len(actions), 1, "should decode one rune action")
	testutil.RequireEqual(t, actions[0].Kind, ActionRune, "should decode a rune")
	testutil.RequireEqual(t, actions[0].Rune, 'é', "should decode the full codepoint")
}

func TestDecodesArrowKeys(t *testing.T) {
	cases := map[string]ActionKind{
		"\x1b[A": ActionArrowUp,
		"\x1b[B": ActionArrowDown,
		"\x1b[C": ActionArrowRight,
		"\x1b[D": ActionArrowLeft,
	}
	for seq, want := range cases {
		d := New()
		actions := feedString(t, d, seq)
		testutil.RequireEqual(t, len(actions), 1, "should decode exactly one action for "+seq)
		testutil.RequireEqual(t, actions[0].Kind, want, "wrong action for "+seq)
	}
}

func TestDecodesCtrlArrowViaCSIu(t *testing.T) {
	d := New()
	// xterm modifyOtherKeys-style ctrl-right: ESC [ 1 ; 5 C (mod=5 -> bits=4 -> ctrl).
	actions := feedString(t, d, "\x1b[1;5C")
	testutil.RequireEqual(t, len(actions), 1, "should decode one action")
	testutil.RequireEqual(t, actions[0].Kind, ActionCtrlArrowRight, "modifier 5 should resolve to ctrl+right")
}

func TestDecodesPageKeys(t *testing.T) {
	d := New()
	actions := feedString(t, d, "\x1b[5~\x1b[6~")
	testutil.RequireEqual(t, len(actions), 2, "should decode two actions")
	testutil.RequireEqual(t, actions[0].Kind, ActionPageUp, "first should be page up")
	testutil.RequireEqual(t, actions[1].Kind, ActionPageDown, "second should be page down")
}

func TestStandaloneEscape(t *testing.T) {
	d := New()
	action, ok := d.Feed(0x1b)
	testutil.RequireTrue(t, !ok, "a lone ESC byte should be buffered")
	action, ok = d.Feed('x')
	testutil.RequireTrue(t, ok, "ESC followed by a non-bracket byte should resolve")
	testutil.RequireEqual(t, action.Kind, ActionEscape, "should resolve to a standalone Escape action")
}

func TestUnknownCSIIsUnknownNotError(t *testing.T) {
	d := New()
	actions := feedString(t, d, "\x1b[99z")
	testutil.RequireEqual(t, len(actions), 1, "should still decode exactly one action")
	testutil.RequireEqual(t, actions[0].Kind, ActionUnknown, "unrecognized CSI sequences decode as Unknown")
}

func TestCtrlChords(t *testing.T) {
	d := New()
	actions := feedString(t, d, string([]byte{0x01, 0x03, 0x05, 0x0b, 0x0e, 0x10, 0x15, 0x17}))
	want := []ActionKind{ActionCtrlA, ActionCtrlC, ActionCtrlE, ActionKillToEnd, ActionCtrlN, ActionCtrlP, ActionCtrlU, ActionCtrlW}
	testutil.RequireEqual(t, len(actions), len(want), "should decode one action per ctrl chord byte")
	for i, kind := range want {
		testutil.RequireEqual(t, actions[i].Kind, kind, "chord mismatch at index")
	}
}

func TestEnterVsInsertNewline(t *testing.T) {
	d := New()
	actions := feedString(t, d, "\r\n")
	testutil.RequireEqual(t, len(actions), 2, "should decode two actions")
	testutil.RequireEqual(t, actions[0].Kind, ActionEnter, "carriage return should be Enter")
	testutil.RequireEqual(t, actions[1].Kind, ActionInsertNewline, "bare LF should be Ctrl-J insert-newline")
}
