package render

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal writes frames to an output stream and keeps the line-count
// bookkeeping needed to overwrite the previous frame in place. After each
// frame the cursor is moved back to the frame's first line, so the next
// frame replaces it. On a non-TTY stream (pipe, file) cursor movement is
// suppressed and frames simply append.
type Terminal struct {
	w         io.Writer
	tty       bool
	lastLines int
}

// NewTerminal wraps an output stream. TTY detection only applies when the
// stream is an *os.File; any other writer is treated as non-interactive.
func NewTerminal(w io.Writer) *Terminal {
	t := &Terminal{w: w}
	if f, ok := w.(*os.File); ok {
		t.tty = term.IsTerminal(int(f.Fd()))
	}
	return t
}

// IsTTY reports whether the output stream is an interactive terminal.
func (t *Terminal) IsTTY() bool { return t.tty }

// ShowFrame prints a frame and repositions the cursor to its first line so
// the next frame overwrites it. lines must be the frame's line count.
func (t *Terminal) ShowFrame(frame string, lines int) {
	_, _ = io.WriteString(t.w, frame)
	if t.tty && lines > 0 {
		_, _ = fmt.Fprintf(t.w, "\x1b[%dA", lines)
	}
	t.lastLines = lines
}

// Advance moves the cursor past the last frame by printing blank lines, so
// the final dashboard stays visible after the program stops drawing.
// Safe to call more than once; only the first call after a frame moves.
func (t *Terminal) Advance() {
	if !t.tty {
		t.lastLines = 0
		return
	}
	for i := 0; i < t.lastLines; i++ {
		_, _ = fmt.Fprintln(t.w)
	}
	t.lastLines = 0
}
