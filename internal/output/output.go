// Package output writes CLI status messages: short marked lines for
// success, warnings and errors, plus indented detail lines.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Line markers.
const (
	MarkSuccess = "ok"
	MarkWarning = "!!"
	MarkError   = "xx"
	MarkInfo    = "--"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out     io.Writer
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
}

// New creates a Writer. Markers are colored unless noColor is set.
func New(out io.Writer, noColor bool) *Writer {
	plain := lipgloss.NewStyle()
	w := &Writer{out: out, success: plain, warning: plain, failure: plain, dim: plain}
	if !noColor {
		w.success = lipgloss.NewStyle().Foreground(lipgloss.Color("154"))
		w.warning = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
		w.failure = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
		w.dim = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
	return w
}

// Status prints msg after a marker, or indented under the previous line
// when mark is empty. Write errors are ignored for console output.
func (w *Writer) Status(mark, msg string) {
	if mark == "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", mark, msg)
}

// Statusf prints a formatted status message.
func (w *Writer) Statusf(mark, format string, args ...any) {
	w.Status(mark, fmt.Sprintf(format, args...))
}

// Info prints a neutral message.
func (w *Writer) Info(msg string) {
	w.Status(w.dim.Render(MarkInfo), msg)
}

// Infof prints a formatted neutral message.
func (w *Writer) Infof(format string, args ...any) {
	w.Info(fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.success.Render(MarkSuccess), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.warning.Render(MarkWarning), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.failure.Render(MarkError), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Detail prints an indented line under the previous message.
func (w *Writer) Detail(msg string) {
	w.Status("", msg)
}

// Detailf prints a formatted indented line.
func (w *Writer) Detailf(format string, args ...any) {
	w.Detail(fmt.Sprintf(format, args...))
}

// Code prints a block with every line indented by two spaces, surrounded
// by blank lines.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
