// Package console wraps a pty-backed console for kerneld's interactive
// debug REPL (SPEC_FULL.md §B: the spec's "console/debug output"
// collaborator). It mirrors the teacher pack's own use of
// github.com/containerd/console for sandbox I/O plumbing, paired with
// github.com/kr/pty for allocating the master/slave pair in the common
// case where kerneld is driven from a real terminal.
package console

import (
	"io"
	"os"

	"github.com/containerd/console"
	"github.com/kr/pty"
)

// Console is a minimal REPL output surface: Write sends kernel log and
// ps-style output to the terminal. Console has no read method; kerneld's
// REPL reads operator commands from os.Stdin itself.
type Console struct {
	con console.Console
	in  io.Reader
}

// New wraps os.Stdout as a console.Console when stdout is a real terminal,
// putting it into raw-ish line mode suitable for the kerneld REPL. If
// stdout is not a terminal (e.g. running under a test harness or piped
// output), New falls back to an unadorned passthrough so kerneld still
// works non-interactively.
func New() (*Console, error) {
	if !isTerminal(os.Stdout) {
		return &Console{in: os.Stdin}, nil
	}
	c := console.Current()
	if err := c.SetRaw(); err != nil {
		return nil, err
	}
	return &Console{con: c, in: os.Stdin}, nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Write implements io.Writer, sending kernel log/ps output to the console.
func (c *Console) Write(p []byte) (int, error) {
	if c.con != nil {
		return c.con.Write(p)
	}
	return os.Stdout.Write(p)
}

// Close restores the terminal's prior mode, if Console put it into raw
// mode.
func (c *Console) Close() error {
	if c.con != nil {
		return c.con.Reset()
	}
	return nil
}

// OpenPTY allocates a fresh master/slave pty pair, used by kerneld when
// spawning a detached debug session (e.g. over a socket) rather than
// attaching directly to the invoking terminal.
func OpenPTY() (master, slave *os.File, err error) {
	return pty.Open()
}
