package cli

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/timeline/internal/errors"
	"github.com/kubiyabot/timeline/internal/source"
	"github.com/kubiyabot/timeline/internal/timeline"
)

const cleanLog = `{"type":"assistant","message":{"content":[{"type":"text","text":"hi"},{"type":"tool_use","id":"t1","name":"bash"}]}}
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}
{"type":"complete"}
`

func TestValidateLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.ndjson", []byte(completedLog), 0o644))

	report, err := validateLog(context.Background(), fs, "/a.ndjson", false)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Events)
	assert.Equal(t, 4, report.Messages)
	assert.Equal(t, timeline.SessionCompleted, report.State)
	assert.Equal(t, []string{"ghost"}, report.Unmatched)
	require.Len(t, report.Invalid, 1)
	assert.Equal(t, 3, report.Invalid[0].Line)
	assert.Equal(t, 2, report.Counts[timeline.MessageKindStatus])
	assert.Equal(t, 1, report.Counts[timeline.MessageKindToolUse])

	assert.False(t, report.ok(false))
}

const repeatedStatusLog = `{"type":"status","message":"Waiting"}
{"type":"status","message":"Waiting"}
{"type":"status","message":"Running"}
{"type":"complete"}
`

func TestValidateLog_DedupeStatusMatchesReplay(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r.ndjson", []byte(repeatedStatusLog), 0o644))

	for _, dedupe := range []bool{false, true} {
		report, err := validateLog(context.Background(), fs, "/r.ndjson", dedupe)
		require.NoError(t, err)

		args := []string{"replay", "/r.ndjson", "--format", "json"}
		if dedupe {
			args = append(args, "--dedupe-status")
		}
		root := newTestRoot(t, map[string]string{"/r.ndjson": repeatedStatusLog})
		out, _, err := rootExecuteCommand(root, args...)
		require.NoError(t, err)

		assert.Len(t, decodeOutput(t, out), report.Messages, "dedupe=%v", dedupe)
	}

	report, err := validateLog(context.Background(), fs, "/r.ndjson", false)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Messages)
	assert.Equal(t, 4, report.Counts[timeline.MessageKindStatus])
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantCode    int
		wantOut     []string
		wantErrText []string
	}{
		{
			name:     "clean log",
			args:     []string{"validate", "/clean.ndjson"},
			wantCode: errors.ExitCodeSuccess,
			wantOut:  []string{"/clean.ndjson  COMPLETED ", "3 event(s), 3 message(s)", "tool_use"},
			wantErrText: []string{
				"/clean.ndjson is valid",
			},
		},
		{
			name:        "undecodable line fails",
			args:        []string{"validate", "/clean.ndjson", "/dirty.ndjson"},
			wantCode:    errors.ExitCodeInput,
			wantErrText: []string{"/dirty.ndjson: line 3", `tool result "ghost" has no matching tool call`},
		},
		{
			name:     "orphan results fail only when strict",
			args:     []string{"validate", "/orphan.ndjson", "--strict-tool-results"},
			wantCode: errors.ExitCodeInput,
		},
		{
			name:     "orphan results pass by default",
			args:     []string{"validate", "/orphan.ndjson"},
			wantCode: errors.ExitCodeSuccess,
		},
		{
			name:     "missing file",
			args:     []string{"validate", "/nope.ndjson"},
			wantCode: errors.ExitCodeInput,
		},
		{
			name:     "bad concurrency",
			args:     []string{"validate", "/clean.ndjson", "--concurrency", "0"},
			wantCode: errors.ExitCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRoot(t, map[string]string{
				"/clean.ndjson":  cleanLog,
				"/dirty.ndjson":  completedLog,
				"/orphan.ndjson": `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"x","content":"?"}]}}` + "\n" + `{"type":"complete"}`,
			})

			out, errOut, err := rootExecuteCommand(root, tt.args...)
			assert.Equal(t, tt.wantCode, errors.ExitCodeFromError(err), "err: %v", err)

			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
			for _, want := range tt.wantErrText {
				assert.Contains(t, errOut, want)
			}
		})
	}
}

func TestValidateCommand_FailurePointsAtFirstUndecodableLine(t *testing.T) {
	root := newTestRoot(t, map[string]string{"/dirty.ndjson": completedLog})

	_, _, err := rootExecuteCommand(root, "validate", "/dirty.ndjson")
	require.Error(t, err)

	var lineErr *source.LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 3, lineErr.Line)
	assert.Contains(t, err.Error(), "1 of 1 event log(s) failed validation: /dirty.ndjson: line 3")

	assert.Contains(t, errors.FormatSimple(err), "Fix line 3 of the event log")
}
