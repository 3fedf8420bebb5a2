package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

var typeLabels = map[ErrorType]string{
	ErrorTypeValidation: "Validation Error",
	ErrorTypeInput:      "Input Error",
	ErrorTypeSession:    "Session Failed",
	ErrorTypeConfig:     "Configuration Error",
}

// lineLocator is implemented by errors that point at one line of an event log
type lineLocator interface {
	error
	LineNumber() int
}

// FormatError renders a CLIError for the terminal: a labelled message
// followed by the error's context, or a default hint for its type
func FormatError(err *CLIError) string {
	if err == nil {
		return ""
	}

	label, ok := typeLabels[err.Type]
	if !ok {
		label = "Error"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✗ %s: %v", label, err.Err)

	if hint := err.hint(); hint != "" {
		sb.WriteString("\n\n")
		sb.WriteString(hint)
	}

	return sb.String()
}

func (e *CLIError) hint() string {
	if e.Context != "" {
		return e.Context
	}

	switch e.Type {
	case ErrorTypeInput:
		var loc lineLocator
		if stderrors.As(e.Err, &loc) {
			return fmt.Sprintf("Fix line %d of the event log, or run `timeline validate` to list every undecodable line", loc.LineNumber())
		}
	case ErrorTypeSession:
		return "Replay with --verbose to see full tool inputs and results"
	}
	return ""
}

// FormatSimple formats any error, using FormatError for CLIErrors
func FormatSimple(err error) string {
	if err == nil {
		return ""
	}

	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return FormatError(cliErr)
	}

	return fmt.Sprintf("✗ Error: %v", err)
}
