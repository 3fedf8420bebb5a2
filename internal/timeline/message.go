package timeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageKind is the display category of a message
type MessageKind string

const (
	MessageKindStatus    MessageKind = "status"
	MessageKindAssistant MessageKind = "assistant"
	MessageKindToolUse   MessageKind = "tool_use"
	MessageKindError     MessageKind = "error"
	MessageKindDebug     MessageKind = "debug"
)

// DisplayMessage is the reduced, render-ready unit of a session
type DisplayMessage struct {
	// ID is unique within a session and stable for its lifetime
	ID        string      `json:"id"`
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	CreatedAt time.Time   `json:"created_at"`

	// Tool fields are only set on MessageKindToolUse
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolInput  any    `json:"tool_input,omitempty"`
	ToolResult any    `json:"tool_result,omitempty"`
	// HasResult distinguishes an absent result from a null one
	HasResult bool `json:"has_result,omitempty"`
}

// Update describes the effect of applying one event
type Update struct {
	// Appended holds messages added by the event, in order
	Appended []DisplayMessage
	// Updated holds tool_use messages whose result was attached by the event
	Updated []DisplayMessage
}

// Empty reports whether the event changed nothing
func (u Update) Empty() bool {
	return len(u.Appended) == 0 && len(u.Updated) == 0
}

// Stringify renders a result or tool value for display: strings are returned
// as-is, anything else is pretty-printed JSON with a two-space indent.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return string(v)
		}
		return Stringify(decoded)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

// isEmptyValue reports whether a result value carries nothing worth showing.
// Empty JSON objects and arrays still count as values.
func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case json.RawMessage:
		return len(v) == 0 || string(v) == "null" || string(v) == `""`
	default:
		return false
	}
}
