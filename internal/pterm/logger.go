package pterm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Logger provides structured logging with PTerm
type Logger struct {
	out          io.Writer
	debugEnabled bool
	disabled     bool
}

// NewLogger creates a new logger writing to out. Debug output is shown when
// debug is set or TIMELINE_DEBUG=true. A disabled logger writes plain
// [LEVEL] lines instead of styled prefixes.
func NewLogger(out io.Writer, disabled, debug bool) *Logger {
	if out == nil {
		out = os.Stderr
	}
	l := &Logger{
		out:          out,
		debugEnabled: debug || os.Getenv("TIMELINE_DEBUG") == "true",
		disabled:     disabled,
	}
	if l.debugEnabled && !disabled {
		pterm.EnableDebugMessages()
	}
	return l
}

// Debug logs a debug message (only when debug is enabled)
func (l *Logger) Debug(message string, args ...interface{}) {
	if !l.debugEnabled {
		return
	}
	l.print(pterm.Debug, "[DEBUG]", formatMessage(message, args...))
}

// Info logs an informational message
func (l *Logger) Info(message string, args ...interface{}) {
	l.print(pterm.Info, "[INFO]", formatMessage(message, args...))
}

// Success logs a success message
func (l *Logger) Success(message string, args ...interface{}) {
	l.print(pterm.Success, "[SUCCESS] ✓", formatMessage(message, args...))
}

// Warning logs a warning message
func (l *Logger) Warning(message string, args ...interface{}) {
	l.print(pterm.Warning, "[WARNING] ⚠", formatMessage(message, args...))
}

// Error logs an error message
func (l *Logger) Error(message string, args ...interface{}) {
	l.print(pterm.Error, "[ERROR] ✗", formatMessage(message, args...))
}

// Debugf logs a formatted debug message (only when debug is enabled)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.debugEnabled {
		return
	}
	l.print(pterm.Debug, "[DEBUG]", fmt.Sprintf(format, args...))
}

// Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.print(pterm.Warning, "[WARNING] ⚠", fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.print(pterm.Error, "[ERROR] ✗", fmt.Sprintf(format, args...))
}

func (l *Logger) print(printer pterm.PrefixPrinter, plainPrefix, message string) {
	if l.disabled {
		fmt.Fprintf(l.out, "%s %s\n", plainPrefix, message)
		return
	}
	fmt.Fprint(l.out, printer.Sprintln(message))
}

// formatMessage formats a message with optional key-value pairs
func formatMessage(message string, args ...interface{}) string {
	if len(args) == 0 {
		return message
	}

	var pairs []string
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%v=%v", args[i], args[i+1]))
	}

	if len(pairs) > 0 {
		return fmt.Sprintf("%s (%s)", message, strings.Join(pairs, ", "))
	}

	return message
}

// IsDebugEnabled returns whether debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.debugEnabled
}
