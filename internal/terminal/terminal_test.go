package terminal

import "testing"

// TestNewRejectsNonTTY exercises the TTY guard. Test binaries run with
// stdin/stdout redirected, so this is the one behavior of Terminal
// reliably exercisable without a real pty.
func TestNewRejectsNonTTY(t *testing.T) {
	if _, err := New(); err == nil {
		t.Skip("test process has a real TTY attached; guard not exercised")
	}
}
