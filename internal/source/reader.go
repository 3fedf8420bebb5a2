// Package source reads recorded execution event logs.
//
// A log holds one JSON event per line. Recorded SSE transcripts are accepted
// too: "data:" prefixes are stripped, "event:" names the type of the next
// data line when the payload has none, and "id:", "retry:" and ":" comment
// lines are ignored.
package source

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kubiyabot/timeline/internal/timeline"
)

// doneMarker ends an SSE transcript
const doneMarker = "[DONE]"

// LineError describes a line that could not be decoded into an event
type LineError struct {
	Line int
	Raw  string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// LineNumber returns the 1-based line of the log that failed to decode
func (e *LineError) LineNumber() int {
	return e.Line
}

// InvalidLineFunc receives lines that were skipped because they did not decode
type InvalidLineFunc func(*LineError)

// Reader decodes events from a line-oriented log
type Reader struct {
	r         *bufio.Reader
	line      int
	eventType string
	onInvalid InvalidLineFunc
	done      bool
}

// NewReader creates a Reader over r. onInvalid may be nil.
func NewReader(r io.Reader, onInvalid InvalidLineFunc) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		onInvalid: onInvalid,
	}
}

// Line returns the number of the last line read
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next decodable event. It returns io.EOF once the input
// is exhausted or an SSE [DONE] marker has been emitted.
func (r *Reader) Next() (timeline.Event, error) {
	for {
		if r.done {
			return nil, io.EOF
		}

		raw, err := r.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error reading line %d: %w", r.line+1, err)
		}
		atEOF := err != nil
		if atEOF && raw == "" {
			r.done = true
			return nil, io.EOF
		}
		if atEOF {
			r.done = true
		}
		r.line++

		event, ok := r.parseLine(strings.TrimRight(raw, "\r\n"))
		if ok {
			return event, nil
		}
	}
}

func (r *Reader) parseLine(line string) (timeline.Event, bool) {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		// Blank line ends an SSE event block
		r.eventType = ""
		return nil, false
	case strings.HasPrefix(trimmed, "#"), strings.HasPrefix(trimmed, ":"):
		return nil, false
	case strings.HasPrefix(trimmed, "id:"), strings.HasPrefix(trimmed, "retry:"):
		return nil, false
	case strings.HasPrefix(trimmed, "event:"):
		r.eventType = strings.TrimSpace(strings.TrimPrefix(trimmed, "event:"))
		return nil, false
	}

	data := trimmed
	if strings.HasPrefix(data, "data:") {
		data = strings.TrimSpace(strings.TrimPrefix(data, "data:"))
		if data == doneMarker {
			r.done = true
			return timeline.CompleteEvent{}, true
		}
	}

	event, err := decode([]byte(data), r.eventType)
	r.eventType = ""
	if err != nil {
		if r.onInvalid != nil {
			r.onInvalid(&LineError{Line: r.line, Raw: line, Err: err})
		}
		return nil, false
	}
	return event, true
}

// decode parses data, taking the type from an SSE event: field when the
// payload carries none
func decode(data []byte, eventType string) (timeline.Event, error) {
	if eventType == "" {
		return timeline.DecodeEvent(data)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid event JSON: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("invalid event JSON: not an object")
	}
	if _, ok := raw["type"]; !ok {
		raw["type"] = eventType
		patched, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		data = patched
	}
	return timeline.DecodeEvent(data)
}

// ReadAll decodes every event in r
func ReadAll(r io.Reader, onInvalid InvalidLineFunc) ([]timeline.Event, error) {
	reader := NewReader(r, onInvalid)

	var events []timeline.Event
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}
