package timeline

import (
	"fmt"
	"strings"
	"time"
)

const (
	resultSuccessText = "Execution completed successfully"
	resultFailureText = "Execution failed"
	completeText      = "Execution complete"
	errorPrefix       = "Error: "
)

// timeNow is a variable for testing - can be overridden in tests
var timeNow = time.Now

// UnmatchedResultFunc is called for a tool result whose call id was never seen
type UnmatchedResultFunc func(toolCallID string, result any)

// Option configures a Reducer
type Option func(*Reducer)

// WithClock sets the clock used for CreatedAt
func WithClock(now func() time.Time) Option {
	return func(r *Reducer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDFunc sets the message id generator. seq starts at 1 for every session.
func WithIDFunc(fn func(seq int) string) Option {
	return func(r *Reducer) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// WithUnmatchedResultHandler registers a hook for tool results that match no
// earlier tool call. The message list is left untouched either way.
func WithUnmatchedResultHandler(fn UnmatchedResultFunc) Option {
	return func(r *Reducer) {
		r.onUnmatched = fn
	}
}

// Reducer folds execution events into an ordered list of display messages.
// It is not safe for concurrent use; one goroutine drives a session.
type Reducer struct {
	messages []DisplayMessage
	// pendingToolCalls maps a tool call id to its index in messages
	pendingToolCalls map[string]int
	seq              int

	now         func() time.Time
	newID       func(seq int) string
	onUnmatched UnmatchedResultFunc
}

// NewReducer creates an empty Reducer
func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{
		pendingToolCalls: make(map[string]int),
		now:              func() time.Time { return timeNow() },
		newID:            defaultID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultID(seq int) string {
	return fmt.Sprintf("msg-%d", seq)
}

// Apply folds one event into the message list and reports what changed.
// Unknown events and malformed sub-parts are ignored.
func (r *Reducer) Apply(event Event) Update {
	var u Update

	switch e := normalize(event).(type) {
	case MessageEvent:
		switch e.Role {
		case RoleAssistant:
			r.applyAssistant(e.Blocks, &u)
		case RoleUser:
			r.applyUser(e.Blocks, &u)
		}

	case ResultEvent:
		if e.IsError {
			text := resultFailureText
			if !isEmptyValue(e.Value) {
				text += ": " + Stringify(e.Value)
			}
			r.appendText(MessageKindStatus, text, &u)
			break
		}
		r.appendText(MessageKindStatus, resultSuccessText, &u)
		if !isEmptyValue(e.Value) {
			r.appendText(MessageKindAssistant, Stringify(e.Value), &u)
		}

	case StatusEvent:
		r.appendText(MessageKindStatus, e.Text, &u)

	case DebugEvent:
		r.appendText(MessageKindDebug, e.Text, &u)

	case ErrorEvent:
		r.appendText(MessageKindError, errorPrefix+e.Text, &u)

	case CompleteEvent:
		r.appendText(MessageKindStatus, completeText, &u)
	}

	return u
}

func (r *Reducer) applyAssistant(blocks []Block, u *Update) {
	var texts []string
	var toolUses []ToolUseBlock

	for _, block := range blocks {
		switch b := block.(type) {
		case TextBlock:
			texts = append(texts, b.Text)
		case *TextBlock:
			if b != nil {
				texts = append(texts, b.Text)
			}
		case ToolUseBlock:
			toolUses = append(toolUses, b)
		case *ToolUseBlock:
			if b != nil {
				toolUses = append(toolUses, *b)
			}
		}
	}

	if text := strings.Join(texts, "\n"); text != "" {
		r.appendText(MessageKindAssistant, text, u)
	}

	for _, tu := range toolUses {
		if tu.ToolCallID == "" {
			continue
		}
		msg := r.newMessage(MessageKindToolUse, "")
		msg.ToolName = tu.ToolName
		msg.ToolInput = tu.Input
		msg.ToolCallID = tu.ToolCallID
		r.pendingToolCalls[tu.ToolCallID] = r.append(msg, u)
	}
}

func (r *Reducer) applyUser(blocks []Block, u *Update) {
	for _, block := range blocks {
		var tr ToolResultBlock
		switch b := block.(type) {
		case ToolResultBlock:
			tr = b
		case *ToolResultBlock:
			if b == nil {
				continue
			}
			tr = *b
		default:
			continue
		}
		if tr.ToolCallID == "" {
			continue
		}

		idx, ok := r.pendingToolCalls[tr.ToolCallID]
		if !ok {
			if r.onUnmatched != nil {
				r.onUnmatched(tr.ToolCallID, tr.Result)
			}
			continue
		}

		r.messages[idx].ToolResult = tr.Result
		r.messages[idx].HasResult = true
		u.Updated = append(u.Updated, r.messages[idx])
	}
}

func (r *Reducer) newMessage(kind MessageKind, text string) DisplayMessage {
	r.seq++
	return DisplayMessage{
		ID:        r.newID(r.seq),
		Kind:      kind,
		Text:      text,
		CreatedAt: r.now(),
	}
}

func (r *Reducer) appendText(kind MessageKind, text string, u *Update) {
	r.append(r.newMessage(kind, text), u)
}

// append adds msg to the list and returns its index
func (r *Reducer) append(msg DisplayMessage, u *Update) int {
	r.messages = append(r.messages, msg)
	u.Appended = append(u.Appended, msg)
	return len(r.messages) - 1
}

// Messages returns a copy of the current message list
func (r *Reducer) Messages() []DisplayMessage {
	out := make([]DisplayMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of messages in the session
func (r *Reducer) Len() int {
	return len(r.messages)
}

// Lookup returns the tool_use message registered for a tool call id
func (r *Reducer) Lookup(toolCallID string) (DisplayMessage, bool) {
	idx, ok := r.pendingToolCalls[toolCallID]
	if !ok {
		return DisplayMessage{}, false
	}
	return r.messages[idx], true
}

// Reset discards all messages and tool call state so the reducer can be reused
func (r *Reducer) Reset() {
	r.messages = nil
	r.pendingToolCalls = make(map[string]int)
	r.seq = 0
}
