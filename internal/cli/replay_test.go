package cli

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/timeline/internal/errors"
	"github.com/kubiyabot/timeline/internal/streaming"
)

const completedLog = `{"type":"status","message":"Starting"}
{"type":"assistant","message":{"content":[{"type":"text","text":"Let me check"},{"type":"tool_use","id":"t1","name":"read_file","input":{"path":"main.go"}}]}}
garbage line
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"package main"}]}}
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"ghost","content":"?"}]}}
{"type":"result","is_error":false,"result":"All done"}
`

func decodeOutput(t *testing.T, out string) []streaming.JSONOutputEvent {
	t.Helper()

	var events []streaming.JSONOutputEvent
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var e streaming.JSONOutputEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), scanner.Text())
		events = append(events, e)
	}
	return events
}

func TestReplay_CompletedSession(t *testing.T) {
	root := newTestRoot(t, map[string]string{"/run.ndjson": completedLog})

	out, errOut, err := rootExecuteCommand(root, "replay", "/run.ndjson", "--format", "json", "--strict-tool-results")
	require.NoError(t, err)

	events := decodeOutput(t, out)
	require.Len(t, events, 5)

	var appended, updated int
	for _, e := range events {
		switch e.Op {
		case streaming.OpAppend:
			appended++
		case streaming.OpUpdate:
			updated++
		}
	}
	assert.Equal(t, 4, appended)
	assert.Equal(t, 1, updated)
	assert.Equal(t, "Execution completed successfully", events[len(events)-1].Message.Text)

	assert.Contains(t, errOut, `tool result "ghost" has no matching tool call`)
	assert.Contains(t, errOut, "skipped 1 undecodable line(s)")
}

func TestReplay_FailedSessionExitCode(t *testing.T) {
	tests := []struct {
		name       string
		log        string
		wantReason string
	}{
		{
			name:       "error event",
			log:        `{"type":"error","error":"rate limited"}`,
			wantReason: "Error: rate limited",
		},
		{
			name:       "failed result",
			log:        `{"type":"result","is_error":true,"result":"tool crashed"}`,
			wantReason: "Execution failed: tool crashed",
		},
		{
			name:       "no terminal event",
			log:        `{"type":"status","message":"Starting"}`,
			wantReason: streaming.ErrStreamEnded.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRoot(t, map[string]string{"/run.ndjson": tt.log})

			_, _, err := rootExecuteCommand(root, "replay", "/run.ndjson", "--format", "json", "--session-id", "s-42")
			require.Error(t, err)
			assert.Equal(t, errors.ExitCodeSession, errors.ExitCodeFromError(err))
			assert.Contains(t, err.Error(), "session s-42 failed")
			assert.Contains(t, err.Error(), tt.wantReason)
		})
	}
}

func TestReplay_TextFormat(t *testing.T) {
	root := newTestRoot(t, map[string]string{"/run.ndjson": completedLog})

	out, _, err := rootExecuteCommand(root, "replay", "/run.ndjson", "--format", "text")
	require.NoError(t, err)

	assert.Contains(t, out, "Let me check")
	assert.Contains(t, out, "read file")
	assert.Contains(t, out, "Execution completed successfully")
}

func TestReplay_HideDebug(t *testing.T) {
	log := `{"type":"debug","message":"[tool] spawn"}
{"type":"debug","message":"tokens=10"}
{"type":"complete"}`
	root := newTestRoot(t, map[string]string{"/run.ndjson": log})

	out, _, err := rootExecuteCommand(root, "replay", "/run.ndjson", "--format", "json", "--debug-keyword", "[tool]")
	require.NoError(t, err)

	events := decodeOutput(t, out)
	require.Len(t, events, 2)
	assert.Equal(t, "[tool] spawn", events[0].Message.Text)
}

func TestReplay_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"missing file", []string{"replay", "/missing.ndjson"}, errors.ExitCodeInput},
		{"bad format", []string{"replay", "/run.ndjson", "--format", "xml"}, errors.ExitCodeValidation},
		{"negative rate", []string{"replay", "/run.ndjson", "--rate", "-1"}, errors.ExitCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRoot(t, map[string]string{"/run.ndjson": completedLog})
			_, _, err := rootExecuteCommand(root, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.ExitCodeFromError(err))
		})
	}
}
