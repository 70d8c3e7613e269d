// Package terminal wraps golang.org/x/term for raw-mode toggling and
// winsize polling (SPEC_FULL.md §6 "Terminal input"), replacing the
// teacher's bubbletea-managed TTY with the event loop's own direct control
// since bubbletea owns its own program loop and cannot share the core's
// single select-driven goroutine.
package terminal

import (
	"errors"
	"os"

	"golang.org/x/term"
)

// Size is a terminal's row/column dimensions.
type Size struct {
	Rows int
	Cols int
}

// Terminal owns the raw-mode lifecycle for stdin/stdout.
type Terminal struct {
	fd       int
	oldState *term.State
}

// New constructs a Terminal bound to stdin, verifying both stdin and
// stdout are real TTYs (grounded on the teacher's term.IsTerminal checks in
// its interactive entrypoint).
func New() (*Terminal, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil, errors.New("terminal: stdin/stdout must be a TTY")
	}
	return &Terminal{fd: int(os.Stdin.Fd())}, nil
}

// EnterRaw puts the terminal into raw mode and records the previous state
// for Restore. It returns only an error.
func (t *Terminal) EnterRaw() error {
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return err
	}
	t.oldState = state
	return nil
}

// Restore returns the terminal to its original (cooked) mode. Safe to call
// more than once or without a prior EnterRaw.
func (t *Terminal) Restore() error {
	if t.oldState == nil {
		return nil
	}
	err := term.Restore(t.fd, t.oldState)
	t.oldState = nil
	return err
}

// Size polls the current terminal dimensions.
func (t *Terminal) Size() (Size, error) {
	cols, rows, err := term.GetSize(t.fd)
	if err != nil {
		return Size{}, err
	}
	return Size{Rows: rows, Cols: cols}, nil
}

// FD returns the underlying file descriptor, for callers that need to
// register it directly in the event loop's terminal-bytes reader.
func (t *Terminal) FD() int { return t.fd }
