package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEvent is returned by DecodeEvent for payloads without a
// recognised event type
var ErrUnknownEvent = errors.New("unknown event type")

// DecodeEvent parses one JSON event as emitted by the execution stream.
//
// Supported shapes:
//
//	{"type": "assistant", "message": {"content": [{"type": "text", "text": "..."}]}}
//	{"type": "user", "message": {"content": [{"type": "tool_result", "tool_use_id": "...", "content": ...}]}}
//	{"type": "result", "is_error": false, "result": "..."}
//	{"type": "status", "message": "..."}
//	{"type": "debug", "message": "..."}
//	{"type": "error", "error": "..."}
//	{"type": "complete"}
//
// Malformed sub-fields are skipped rather than failing the whole event.
func DecodeEvent(data []byte) (Event, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	return decodeMap(raw)
}

func decodeMap(raw map[string]interface{}) (Event, error) {
	eventType, _ := raw["type"].(string)

	switch eventType {
	case RoleAssistant, RoleUser:
		return decodeMessage(eventType, raw), nil

	case "message":
		role := ""
		if msg, ok := raw["message"].(map[string]interface{}); ok {
			role, _ = msg["role"].(string)
		}
		if role == "" {
			role, _ = raw["role"].(string)
		}
		if role == "" {
			role = RoleAssistant
		}
		return decodeMessage(role, raw), nil

	case "result":
		return decodeResult(raw), nil

	case "status":
		return StatusEvent{Text: firstString(raw, "message", "text", "content", "status")}, nil

	case "debug":
		return DebugEvent{Text: firstString(raw, "message", "text", "content")}, nil

	case "error":
		text := firstString(raw, "error", "message", "content")
		if text == "" {
			if nested, ok := raw["error"].(map[string]interface{}); ok {
				text = firstString(nested, "message", "error")
			}
		}
		if text == "" {
			text = "unknown error"
		}
		return ErrorEvent{Text: text}, nil

	case "complete", "done":
		return CompleteEvent{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnknownEvent)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}
}

func decodeMessage(role string, raw map[string]interface{}) MessageEvent {
	event := MessageEvent{Role: role}

	// Blocks live under message.content; fall back to a top-level content field
	var content interface{}
	if msg, ok := raw["message"].(map[string]interface{}); ok {
		content = msg["content"]
	}
	if content == nil {
		content = raw["content"]
	}

	switch c := content.(type) {
	case string:
		if c != "" {
			event.Blocks = []Block{TextBlock{Text: c}}
		}
	case []interface{}:
		for _, item := range c {
			if block := decodeBlock(item); block != nil {
				event.Blocks = append(event.Blocks, block)
			}
		}
	}

	return event
}

func decodeBlock(item interface{}) Block {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return nil
	}

	blockType, _ := obj["type"].(string)
	switch blockType {
	case "text":
		text, ok := obj["text"].(string)
		if !ok {
			return nil
		}
		return TextBlock{Text: text}

	case "tool_use":
		id, _ := obj["id"].(string)
		if id == "" {
			return nil
		}
		name, _ := obj["name"].(string)
		return ToolUseBlock{
			ToolCallID: id,
			ToolName:   name,
			Input:      obj["input"],
		}

	case "tool_result":
		id, _ := obj["tool_use_id"].(string)
		if id == "" {
			return nil
		}
		return ToolResultBlock{
			ToolCallID: id,
			Result:     toolResultContent(obj["content"]),
		}

	default:
		return nil
	}
}

// toolResultContent collapses a content array made only of text blocks into
// a single string; any other shape is kept as JSON.
func toolResultContent(content interface{}) interface{} {
	items, ok := content.([]interface{})
	if !ok || len(items) == 0 {
		return content
	}

	texts := make([]string, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok || obj["type"] != "text" {
			return content
		}
		text, ok := obj["text"].(string)
		if !ok {
			return content
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n")
}

func decodeResult(raw map[string]interface{}) ResultEvent {
	event := ResultEvent{Value: raw["result"]}

	if isErr, ok := raw["is_error"].(bool); ok {
		event.IsError = isErr
	}
	if subtype, ok := raw["subtype"].(string); ok && strings.HasPrefix(subtype, "error") {
		event.IsError = true
	}
	if event.IsError && isEmptyValue(event.Value) {
		if errText := firstString(raw, "error"); errText != "" {
			event.Value = errText
		}
	}

	return event
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
