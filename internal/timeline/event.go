// Package timeline reduces a stream of execution events into an ordered list
// of display messages, pairing tool invocations with their results.
package timeline

// EventKind identifies the variant of an Event
type EventKind string

const (
	// EventKindMessage is an assistant or user turn carrying content blocks
	EventKindMessage EventKind = "message"
	// EventKindResult is the final outcome of an execution
	EventKindResult EventKind = "result"
	// EventKindStatus is a free-form status line
	EventKindStatus EventKind = "status"
	// EventKindDebug is diagnostic output from the runtime
	EventKindDebug EventKind = "debug"
	// EventKindError is a stream or runtime failure
	EventKindError EventKind = "error"
	// EventKindComplete marks the end of the stream
	EventKindComplete EventKind = "complete"
)

// Role of a message turn
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Event is one decoded unit of an execution stream.
// The set of implementations is closed: MessageEvent, ResultEvent,
// StatusEvent, DebugEvent, ErrorEvent and CompleteEvent.
type Event interface {
	Kind() EventKind
	isEvent()
}

// MessageEvent is a conversational turn
type MessageEvent struct {
	Role   string
	Blocks []Block
}

// ResultEvent carries the final outcome. Value is a string or any JSON value.
type ResultEvent struct {
	IsError bool
	Value   any
}

// StatusEvent is a progress line emitted by the runtime
type StatusEvent struct {
	Text string
}

// DebugEvent is diagnostic output
type DebugEvent struct {
	Text string
}

// ErrorEvent reports a failure of the stream or the runtime
type ErrorEvent struct {
	Text string
}

// CompleteEvent marks a clean end of stream
type CompleteEvent struct{}

func (MessageEvent) Kind() EventKind  { return EventKindMessage }
func (ResultEvent) Kind() EventKind   { return EventKindResult }
func (StatusEvent) Kind() EventKind   { return EventKindStatus }
func (DebugEvent) Kind() EventKind    { return EventKindDebug }
func (ErrorEvent) Kind() EventKind    { return EventKindError }
func (CompleteEvent) Kind() EventKind { return EventKindComplete }

func (MessageEvent) isEvent()  {}
func (ResultEvent) isEvent()   {}
func (StatusEvent) isEvent()   {}
func (DebugEvent) isEvent()    {}
func (ErrorEvent) isEvent()    {}
func (CompleteEvent) isEvent() {}

// Block is a unit of content inside a MessageEvent.
// Implementations: TextBlock, ToolUseBlock, ToolResultBlock.
type Block interface {
	isBlock()
}

// TextBlock is plain assistant text
type TextBlock struct {
	Text string
}

// ToolUseBlock requests a tool invocation
type ToolUseBlock struct {
	ToolCallID string
	ToolName   string
	Input      any
}

// ToolResultBlock carries the output of an earlier tool invocation
type ToolResultBlock struct {
	ToolCallID string
	Result     any
}

func (TextBlock) isBlock()       {}
func (ToolUseBlock) isBlock()    {}
func (ToolResultBlock) isBlock() {}

// IsTerminal reports whether the event ends a session
func IsTerminal(event Event) bool {
	switch normalize(event).(type) {
	case ResultEvent, ErrorEvent, CompleteEvent:
		return true
	default:
		return false
	}
}

// IsFailure reports whether a terminal event ends the session in failure
func IsFailure(event Event) bool {
	switch e := normalize(event).(type) {
	case ErrorEvent:
		return true
	case ResultEvent:
		return e.IsError
	default:
		return false
	}
}

// normalize dereferences pointer variants so callers only switch on values.
// A nil pointer yields nil.
func normalize(event Event) Event {
	switch e := event.(type) {
	case *MessageEvent:
		if e == nil {
			return nil
		}
		return *e
	case *ResultEvent:
		if e == nil {
			return nil
		}
		return *e
	case *StatusEvent:
		if e == nil {
			return nil
		}
		return *e
	case *DebugEvent:
		if e == nil {
			return nil
		}
		return *e
	case *ErrorEvent:
		if e == nil {
			return nil
		}
		return *e
	case *CompleteEvent:
		if e == nil {
			return nil
		}
		return *e
	default:
		return event
	}
}

// KindOf returns the kind of an event; ok is false for nil events, including
// nil pointers to event structs
func KindOf(event Event) (kind EventKind, ok bool) {
	e := normalize(event)
	if e == nil {
		return "", false
	}
	return e.Kind(), true
}
