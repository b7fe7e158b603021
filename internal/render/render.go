// Package render formats pairkit state for the terminal.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joss/pairkit/internal/domain"
)

// Writer wraps an io.Writer with line-oriented helpers.
type Writer struct {
	out io.Writer
}

// NewWriter creates a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// Stdout returns a Writer on os.Stdout.
func Stdout() *Writer {
	return NewWriter(os.Stdout)
}

// Stderr returns a Writer on os.Stderr.
func Stderr() *Writer {
	return NewWriter(os.Stderr)
}

func (w *Writer) Println(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Write emits s verbatim.
func (w *Writer) Write(s string) {
	io.WriteString(w.out, s)
}

// Line writes a blank line.
func (w *Writer) Line() {
	fmt.Fprintln(w.out)
}

// Header writes an upper-cased title followed by a blank line.
func (w *Writer) Header(title string, args ...any) {
	if len(args) > 0 {
		title = fmt.Sprintf(title, args...)
	}
	fmt.Fprintln(w.out, strings.ToUpper(title))
	fmt.Fprintln(w.out)
}

// Item writes an indented line.
func (w *Writer) Item(format string, args ...any) {
	fmt.Fprintf(w.out, "  "+format+"\n", args...)
}

// Nested writes an item with a tree connector.
func (w *Writer) Nested(format string, args ...any) {
	fmt.Fprintf(w.out, "    └─ "+format+"\n", args...)
}

// StatusIcon returns the icon for a tool status.
func StatusIcon(s domain.ToolStatus) string {
	switch s {
	case domain.ToolStatusCompleted:
		return "✓"
	case domain.ToolStatusError:
		return "✗"
	case domain.ToolStatusCancelled:
		return "⊘"
	case domain.ToolStatusRunning:
		return "…"
	default:
		return "•"
	}
}

// BoolIcon returns ✓ or ✗.
func BoolIcon(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}

// Truncate shortens s to at most max bytes, marking the cut with "...".
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
