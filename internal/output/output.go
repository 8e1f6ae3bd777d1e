// Package output provides consistent CLI output formatting. Styling is
// applied only when the destination is a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	useColor bool
}

// New creates a Writer. Color is enabled when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return &Writer{out: out, useColor: IsTerminal(out) && os.Getenv("NO_COLOR") == ""}
}

// NewPlain creates a Writer that never styles its output.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Color reports whether the writer styles its output.
func (w *Writer) Color() bool { return w.useColor }

// Out returns the underlying writer.
func (w *Writer) Out() io.Writer { return w.out }

func (w *Writer) render(s lipgloss.Style, text string) string {
	if !w.useColor {
		return text
	}
	return s.Render(text)
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.render(successStyle, "✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.render(warningStyle, "!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.render(errorStyle, "✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Header prints a bold section title.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintln(w.out, w.render(headerStyle, title))
}

// KeyValue prints an indented "key: value" line with keys padded to width.
func (w *Writer) KeyValue(key string, value any, width int) {
	label := fmt.Sprintf("%-*s", width, key+":")
	_, _ = fmt.Fprintf(w.out, "  %s %v\n", w.render(keyStyle, label), value)
}

// Muted prints a de-emphasised line.
func (w *Writer) Muted(msg string) {
	_, _ = fmt.Fprintln(w.out, w.render(mutedStyle, msg))
}

// Table prints rows as left-aligned columns under a bold header row.
// Columns are separated by two spaces; the last column is not padded.
func (w *Writer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := lipgloss.Width(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		var b strings.Builder
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i < len(widths)-1 {
				cell += strings.Repeat(" ", widths[i]-lipgloss.Width(cell)) + "  "
			}
			b.WriteString(cell)
		}
		s := strings.TrimRight(b.String(), " ")
		if style != nil {
			s = w.render(*style, s)
		}
		return s
	}

	_, _ = fmt.Fprintln(w.out, line(headers, &headerStyle))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w.out, line(row, nil))
	}
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
