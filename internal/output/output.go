// Package output provides formatted output utilities for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dpinedaj/loom/internal/engine"
)

// Writer handles CLI output formatting.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
	quiet bool
}

// New creates a new Writer with default settings.
func New() *Writer {
	return &Writer{
		out:   os.Stdout,
		err:   os.Stderr,
		color: isTerminal(),
	}
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{
		out:   out,
		err:   err,
		color: color,
	}
}

// SetQuiet enables or disables quiet mode.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// SetColor enables or disables colored output.
func (w *Writer) SetColor(color bool) {
	w.color = color
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Info prints an info message (skipped in quiet mode).
func (w *Writer) Info(format string, args ...interface{}) {
	if w.quiet {
		return
	}
	w.Println(format, args...)
}

// Warning prints a warning message.
func (w *Writer) Warning(format string, args ...interface{}) {
	if w.color {
		w.Errorln(yellow+"warning: "+format+reset, args...)
	} else {
		w.Errorln("warning: "+format, args...)
	}
}

// ErrorPrefix prints an error message with a prefix.
func (w *Writer) ErrorPrefix(format string, args ...interface{}) {
	if w.color {
		w.Errorln(red+"error: "+reset+format, args...)
	} else {
		w.Errorln("error: "+format, args...)
	}
}

// NodeResult prints a single node's terminal status line.
func (w *Writer) NodeResult(nr engine.NodeResult) {
	switch nr.Status {
	case engine.StatusError:
		if w.color {
			w.Errorln("%s[error]%s %s: %s", red, reset, nr.NodeID, nr.Message)
		} else {
			w.Errorln("[error] %s: %s", nr.NodeID, nr.Message)
		}
	case engine.StatusSkipped:
		if w.quiet {
			return
		}
		if w.color {
			w.Println("%s[skip]%s  %s", dim, reset, nr.NodeID)
		} else {
			w.Println("[skip]  %s", nr.NodeID)
		}
	default:
		if w.quiet {
			return
		}
		if w.color {
			w.Println("%s[ok]%s    %s  (%s)", green, reset, nr.NodeID, formatElapsed(nr.Elapsed))
		} else {
			w.Println("[ok]    %s  (%s)", nr.NodeID, formatElapsed(nr.Elapsed))
		}
	}
}

// RunSummary prints the outcome of one task invocation: per-node status
// lines, any textual output, and a final tally.
func (w *Writer) RunSummary(res *engine.RunResult, success bool) {
	for _, nr := range res.Results {
		w.NodeResult(nr)
	}
	for _, line := range res.Output {
		w.Println("%s", line)
	}

	if w.quiet && success {
		return
	}

	tally := countStatuses(res)
	summary := fmt.Sprintf("%s: %d ok, %d failed, %d skipped in %s",
		res.Command, tally[engine.StatusSuccess], tally[engine.StatusError],
		tally[engine.StatusSkipped], formatElapsed(res.Elapsed))

	switch {
	case success && w.color:
		w.Println("%s%s%s", green, summary, reset)
	case success:
		w.Println("%s", summary)
	case w.color:
		w.Errorln("%s%s%s", red, summary, reset)
	default:
		w.Errorln("%s", summary)
	}
}

func countStatuses(res *engine.RunResult) map[engine.Status]int {
	out := make(map[engine.Status]int)
	for _, nr := range res.Results {
		out[nr.Status]++
	}
	return out
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// Table prints a simple table.
func (w *Writer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var headerParts []string
	for i, h := range headers {
		headerParts = append(headerParts, fmt.Sprintf("%-*s", widths[i], h))
	}
	w.Println("%s", strings.Join(headerParts, "  "))

	var sepParts []string
	for _, width := range widths {
		sepParts = append(sepParts, strings.Repeat("-", width))
	}
	w.Println("%s", strings.Join(sepParts, "  "))

	for _, row := range rows {
		var rowParts []string
		for i, cell := range row {
			if i < len(widths) {
				rowParts = append(rowParts, fmt.Sprintf("%-*s", widths[i], cell))
			}
		}
		w.Println("%s", strings.Join(rowParts, "  "))
	}
}

// isTerminal returns true if stdout is a terminal.
func isTerminal() bool {
	if fi, _ := os.Stdout.Stat(); fi != nil {
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// HelpTitle formats the main help title line.
func (w *Writer) HelpTitle(title string) {
	if w.color {
		w.Println("%s%s%s", bold+cyan, title, reset)
	} else {
		w.Println("%s", title)
	}
	w.Println("")
}

// HelpSection formats a help section header.
func (w *Writer) HelpSection(title string) {
	if w.color {
		w.Println("%s%s%s", bold+yellow, title, reset)
	} else {
		w.Println("%s", title)
	}
}

// HelpCommand formats a command entry in help output.
func (w *Writer) HelpCommand(name, description string, width int) {
	if w.color {
		w.Println("  %s%-*s%s %s%s%s", bold+cyan, width, name, reset, dim, description, reset)
	} else {
		w.Println("  %-*s %s", width, name, description)
	}
}

// HelpFlag formats a flag entry in help output.
func (w *Writer) HelpFlag(name, description string, width int) {
	if w.color {
		w.Println("  %s%-*s%s %s%s%s", yellow, width, name, reset, dim, description, reset)
	} else {
		w.Println("  %-*s %s", width, name, description)
	}
}

// HelpUsage formats a usage line.
func (w *Writer) HelpUsage(usage string) {
	w.Println("usage: %s", usage)
	w.Println("")
}
