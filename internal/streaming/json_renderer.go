package streaming

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/kubiyabot/timeline/internal/timeline"
)

// Operation names used in NDJSON output
const (
	OpAppend = "append"
	OpUpdate = "update"
)

// JSONOutputEvent is one NDJSON line: a message that was appended to the
// timeline or a tool_use message that received its result
type JSONOutputEvent struct {
	Op      string                  `json:"op"`
	Message timeline.DisplayMessage `json:"message"`
}

// JSONRenderer renders timeline updates as newline-delimited JSON (NDJSON)
type JSONRenderer struct {
	out io.Writer
	mu  sync.Mutex
}

// NewJSONRenderer creates a new JSONRenderer
func NewJSONRenderer(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// RenderUpdate writes one line per appended or updated message
func (r *JSONRenderer) RenderUpdate(update timeline.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range update.Appended {
		if err := r.write(OpAppend, msg); err != nil {
			return err
		}
	}
	for _, msg := range update.Updated {
		if err := r.write(OpUpdate, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *JSONRenderer) write(op string, msg timeline.DisplayMessage) error {
	data, err := json.Marshal(JSONOutputEvent{Op: op, Message: msg})
	if err != nil {
		return err
	}

	// Write as single line with newline
	_, err = r.out.Write(append(data, '\n'))
	return err
}

// Flush ensures all buffered output is written
func (r *JSONRenderer) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// If writer implements Flusher, flush it
	if flusher, ok := r.out.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close cleans up resources
func (r *JSONRenderer) Close() error {
	return r.Flush()
}
