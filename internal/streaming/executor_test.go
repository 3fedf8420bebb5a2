package streaming

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/timeline/internal/timeline"
)

func feed(events ...timeline.Event) (<-chan timeline.Event, <-chan error) {
	eventChan := make(chan timeline.Event, len(events))
	errChan := make(chan error, 1)
	for _, e := range events {
		eventChan <- e
	}
	return eventChan, errChan
}

func newTestExecutor(opts Options) (*Executor, *bytes.Buffer) {
	var buf bytes.Buffer
	opts.Writer = &buf
	if opts.Format == "" {
		opts.Format = StreamFormatJSON
	}
	return NewExecutor(opts), &buf
}

func TestExecutor_RunToCompletion(t *testing.T) {
	exec, buf := newTestExecutor(Options{SessionID: "s-1"})

	events, errs := feed(
		timeline.MessageEvent{Role: timeline.RoleAssistant, Blocks: []timeline.Block{
			timeline.TextBlock{Text: "Let me check"},
			timeline.ToolUseBlock{ToolCallID: "t1", ToolName: "read_file"},
		}},
		timeline.MessageEvent{Role: timeline.RoleUser, Blocks: []timeline.Block{
			timeline.ToolResultBlock{ToolCallID: "t1", Result: "contents"},
		}},
		timeline.ResultEvent{Value: "Done"},
		timeline.StatusEvent{Text: "never applied"},
	)

	summary, err := exec.Run(context.Background(), events, errs)
	require.NoError(t, err)

	assert.Equal(t, "s-1", summary.SessionID)
	assert.Equal(t, timeline.SessionCompleted, summary.State)
	require.Len(t, summary.Messages, 4)
	assert.Equal(t, "contents", summary.Messages[1].ToolResult)
	assert.Equal(t, 2, summary.Counts[timeline.MessageKindAssistant])
	assert.Equal(t, 1, summary.Counts[timeline.MessageKindToolUse])

	lines := decodeLines(t, buf)
	assert.Len(t, lines, 5, "4 appends plus 1 tool result update")
}

func TestExecutor_ErrorEventFailsSession(t *testing.T) {
	exec, _ := newTestExecutor(Options{})

	events, errs := feed(timeline.StatusEvent{Text: "go"}, timeline.ErrorEvent{Text: "rate limited"})

	summary, err := exec.Run(context.Background(), events, errs)
	require.NoError(t, err)
	assert.Equal(t, timeline.SessionFailed, summary.State)
	assert.Equal(t, timeline.MessageKindError, summary.Messages[len(summary.Messages)-1].Kind)
}

func TestExecutor_StreamErrorRecordedAsMessage(t *testing.T) {
	exec, _ := newTestExecutor(Options{})

	eventChan := make(chan timeline.Event, 1)
	errChan := make(chan error, 1)
	eventChan <- timeline.StatusEvent{Text: "go"}
	errChan <- errors.New("connection reset")
	close(eventChan)

	summary, err := exec.Run(context.Background(), eventChan, errChan)
	require.Error(t, err)
	assert.Equal(t, timeline.SessionFailed, summary.State)

	last := summary.Messages[len(summary.Messages)-1]
	assert.Equal(t, timeline.MessageKindError, last.Kind)
	assert.Contains(t, last.Text, "connection reset")
}

func TestExecutor_StreamEndedWithoutTerminal(t *testing.T) {
	exec, _ := newTestExecutor(Options{})

	eventChan := make(chan timeline.Event, 1)
	eventChan <- timeline.StatusEvent{Text: "go"}
	close(eventChan)

	summary, err := exec.Run(context.Background(), eventChan, nil)
	assert.ErrorIs(t, err, ErrStreamEnded)
	assert.Equal(t, timeline.SessionFailed, summary.State)
	require.Len(t, summary.Messages, 2)
	assert.Contains(t, summary.Messages[1].Text, ErrStreamEnded.Error())
}

func TestExecutor_IdleTimeout(t *testing.T) {
	exec, _ := newTestExecutor(Options{IdleTimeout: 20 * time.Millisecond})

	eventChan := make(chan timeline.Event)
	summary, err := exec.Run(context.Background(), eventChan, nil)

	assert.ErrorIs(t, err, ErrIdleTimeout)
	assert.Equal(t, timeline.SessionFailed, summary.State)
	require.Len(t, summary.Messages, 1)
	assert.Equal(t, timeline.MessageKindError, summary.Messages[0].Kind)
}

func TestExecutor_ContextCancelled(t *testing.T) {
	exec, _ := newTestExecutor(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := exec.Run(ctx, make(chan timeline.Event), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, timeline.SessionNotStarted, summary.State)
	assert.Empty(t, summary.Messages)
}

func TestExecutor_DebugFiltering(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug int
	}{
		{"all debug", Options{}, 2},
		{"keyword", Options{DebugKeywords: []string{"[tool]"}}, 1},
		{"hidden", Options{HideDebug: true, DebugKeywords: []string{"[tool]"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, _ := newTestExecutor(tt.opts)
			events, errs := feed(
				timeline.DebugEvent{Text: "[tool] spawn"},
				timeline.DebugEvent{Text: "tokens=10"},
				timeline.CompleteEvent{},
			)

			summary, err := exec.Run(context.Background(), events, errs)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, summary.Counts[timeline.MessageKindDebug])
		})
	}
}

func TestExecutor_UnmatchedResultHook(t *testing.T) {
	var unmatched []string
	exec, _ := newTestExecutor(Options{
		OnUnmatchedResult: func(id string, _ any) { unmatched = append(unmatched, id) },
	})

	events, errs := feed(
		timeline.MessageEvent{Role: timeline.RoleUser, Blocks: []timeline.Block{
			timeline.ToolResultBlock{ToolCallID: "ghost", Result: "x"},
		}},
		timeline.CompleteEvent{},
	)

	summary, err := exec.Run(context.Background(), events, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, unmatched)
	assert.Len(t, summary.Messages, 1)
}

func TestExecutor_Duration(t *testing.T) {
	original := timeNow
	defer func() { timeNow = original }()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	timeNow = func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * time.Second)
	}

	exec, _ := newTestExecutor(Options{})
	events, errs := feed(timeline.CompleteEvent{})

	summary, err := exec.Run(context.Background(), events, errs)
	require.NoError(t, err)
	assert.Greater(t, summary.Duration, time.Duration(0))
}

func TestExecutor_BufferedEventsAppliedBeforeStreamError(t *testing.T) {
	for i := 0; i < 100; i++ {
		exec, _ := newTestExecutor(Options{})

		eventChan := make(chan timeline.Event, 2)
		errChan := make(chan error, 1)
		eventChan <- timeline.StatusEvent{Text: "first"}
		eventChan <- timeline.StatusEvent{Text: "second"}
		errChan <- errors.New("read failed")
		close(eventChan)
		close(errChan)

		summary, err := exec.Run(context.Background(), eventChan, errChan)
		require.Error(t, err)
		require.Len(t, summary.Messages, 3)
		assert.Equal(t, "first", summary.Messages[0].Text)
		assert.Equal(t, "second", summary.Messages[1].Text)
		assert.Contains(t, summary.Messages[2].Text, "read failed")
		assert.Equal(t, timeline.SessionFailed, summary.State)
	}
}

func TestExecutor_BufferedTerminalEventWinsOverStreamError(t *testing.T) {
	for i := 0; i < 100; i++ {
		exec, _ := newTestExecutor(Options{})

		eventChan := make(chan timeline.Event, 2)
		errChan := make(chan error, 1)
		eventChan <- timeline.StatusEvent{Text: "go"}
		eventChan <- timeline.CompleteEvent{}
		errChan <- errors.New("late read failure")

		summary, err := exec.Run(context.Background(), eventChan, errChan)
		require.NoError(t, err)
		assert.Equal(t, timeline.SessionCompleted, summary.State)
		assert.Len(t, summary.Messages, 2)
	}
}

func TestExecutor_DedupeStatus(t *testing.T) {
	tests := []struct {
		name       string
		dedupe     bool
		wantStatus int
	}{
		{"kept by default", false, 4},
		{"deduplicated", true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, _ := newTestExecutor(Options{DedupeStatus: tt.dedupe})
			events, errs := feed(
				timeline.StatusEvent{Text: "Waiting"},
				timeline.StatusEvent{Text: "Waiting"},
				timeline.StatusEvent{Text: "Running"},
				timeline.CompleteEvent{},
			)

			summary, err := exec.Run(context.Background(), events, errs)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, summary.Counts[timeline.MessageKindStatus])
		})
	}
}
