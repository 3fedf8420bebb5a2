// Package streaming drives execution timelines: it filters incoming events,
// folds them through a timeline session and renders each update.
// It supports text and NDJSON output for terminals, CI logs and pipes.
package streaming

import (
	"io"
	"time"

	"github.com/kubiyabot/timeline/internal/timeline"
)

// MessageRenderer defines the interface for rendering timeline updates
type MessageRenderer interface {
	// RenderUpdate renders the messages appended or updated by one event
	RenderUpdate(update timeline.Update) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close cleans up resources and performs final writes
	Close() error
}

// StreamFormat represents the output format for streaming
type StreamFormat string

const (
	// StreamFormatAuto automatically selects format based on environment
	StreamFormatAuto StreamFormat = "auto"
	// StreamFormatText outputs formatted text with prefixes
	StreamFormatText StreamFormat = "text"
	// StreamFormatJSON outputs newline-delimited JSON
	StreamFormatJSON StreamFormat = "json"
)

// ResolveFormat determines the actual format to use.
// Auto picks text for terminals and JSON when piped.
func ResolveFormat(explicit string, interactive bool) StreamFormat {
	switch StreamFormat(explicit) {
	case StreamFormatText:
		return StreamFormatText
	case StreamFormatJSON:
		return StreamFormatJSON
	default:
		if interactive {
			return StreamFormatText
		}
		return StreamFormatJSON
	}
}

// NewRenderer creates the renderer for a resolved format
func NewRenderer(format StreamFormat, out io.Writer, verbose bool) MessageRenderer {
	switch format {
	case StreamFormatText:
		return NewTextRenderer(out, verbose)
	default:
		return NewJSONRenderer(out)
	}
}

// timeNow is a variable for testing - can be overridden in tests
var timeNow = time.Now
