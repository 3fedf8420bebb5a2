package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kubiyabot/timeline/internal/sentry"
	"github.com/kubiyabot/timeline/internal/timeline"
)

var (
	// ErrIdleTimeout is returned when no event arrives within the idle timeout
	ErrIdleTimeout = errors.New("no events received within idle timeout")
	// ErrStreamEnded is returned when the source closes before a terminal event
	ErrStreamEnded = errors.New("stream ended before completion")
)

const defaultMarkdownWidth = 100

// Options configures an Executor
type Options struct {
	// Format is the resolved output format (text or json)
	Format StreamFormat

	// Verbose shows full tool inputs/results and untruncated text
	Verbose bool

	// Markdown renders assistant text as markdown in text format
	Markdown bool

	// MarkdownWidth is the word wrap width for markdown (default 100)
	MarkdownWidth int

	// Writer receives rendered output (default: stdout)
	Writer io.Writer

	// IdleTimeout fails the session when no event arrives in time; 0 disables
	IdleTimeout time.Duration

	// DebugKeywords limits debug events to those containing a keyword
	DebugKeywords []string

	// HideDebug drops debug events entirely
	HideDebug bool

	// DedupeStatus drops a status event identical to the one before it
	DedupeStatus bool

	// OnUnmatchedResult is called for tool results with no matching tool call
	OnUnmatchedResult timeline.UnmatchedResultFunc

	// SessionID overrides the generated session id
	SessionID string
}

// Summary describes a finished session
type Summary struct {
	SessionID string
	State     timeline.SessionState
	Messages  []timeline.DisplayMessage
	Counts    map[timeline.MessageKind]int
	Duration  time.Duration
}

// Executor drives one session: it consumes events, folds them into the
// timeline and renders every update
type Executor struct {
	options  Options
	pipeline *EventPipeline
	started  time.Time
}

// NewExecutor creates a new executor with a fresh session
func NewExecutor(options Options) *Executor {
	if options.Writer == nil {
		options.Writer = os.Stdout
	}
	if options.SessionID == "" {
		options.SessionID = uuid.NewString()
	}

	var reducerOpts []timeline.Option
	if options.OnUnmatchedResult != nil {
		reducerOpts = append(reducerOpts, timeline.WithUnmatchedResultHandler(options.OnUnmatchedResult))
	}
	session := timeline.NewSession(options.SessionID, timeline.NewReducer(reducerOpts...))

	renderer := NewRenderer(options.Format, options.Writer, options.Verbose)
	if tr, ok := renderer.(*TextRenderer); ok && options.Markdown {
		width := options.MarkdownWidth
		if width <= 0 {
			width = defaultMarkdownWidth
		}
		// Raw text is rendered when markdown setup fails
		_ = tr.EnableMarkdown(width)
	}
	pipeline := NewEventPipeline(session, renderer)

	if options.HideDebug {
		pipeline.AddFilter(NewEventKindFilter(timeline.EventKindDebug))
	} else if len(options.DebugKeywords) > 0 {
		pipeline.AddFilter(NewDebugKeywordFilter(options.DebugKeywords...))
	}

	if options.DedupeStatus {
		pipeline.AddFilter(NewDeduplicationFilter())
	}

	return &Executor{
		options:  options,
		pipeline: pipeline,
	}
}

// Session returns the session driven by the executor
func (e *Executor) Session() *timeline.Session {
	return e.pipeline.Session()
}

// ProcessEvent feeds a single event through the pipeline
func (e *Executor) ProcessEvent(event timeline.Event) error {
	if e.started.IsZero() {
		e.started = timeNow()
	}
	return e.pipeline.Process(event)
}

// Run consumes events until a terminal event, a stream failure, the idle
// timeout or context cancellation. Stream failures and timeouts are recorded
// in the timeline as an error message before returning.
func (e *Executor) Run(ctx context.Context, events <-chan timeline.Event, errs <-chan error) (Summary, error) {
	if e.started.IsZero() {
		e.started = timeNow()
	}

	var idle <-chan time.Time
	var timer *time.Timer
	if e.options.IdleTimeout > 0 {
		timer = time.NewTimer(e.options.IdleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return e.summary(), ctx.Err()

		case <-idle:
			e.fail(ErrIdleTimeout.Error())
			return e.summary(), ErrIdleTimeout

		case err, ok := <-errs:
			if !ok {
				// Error channel closed
				errs = nil
				continue
			}
			if err != nil {
				// Events sent before the error still belong to the timeline
				if e.drain(events) {
					e.report()
					return e.summary(), nil
				}
				e.fail(fmt.Sprintf("stream error: %v", err))
				return e.summary(), err
			}

		case event, ok := <-events:
			if !ok {
				// A source reports its failure before closing the event channel
				select {
				case err := <-errs:
					if err != nil {
						e.fail(fmt.Sprintf("stream error: %v", err))
						return e.summary(), err
					}
				default:
				}

				// Source closed without a terminal event
				e.fail(ErrStreamEnded.Error())
				return e.summary(), ErrStreamEnded
			}

			// Render errors are not fatal to the session
			_ = e.ProcessEvent(event)

			if e.Session().State().IsTerminal() {
				e.report()
				return e.summary(), nil
			}

			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(e.options.IdleTimeout)
			}
		}
	}
}

// drain applies events already buffered in the channel and reports whether
// one of them ended the session
func (e *Executor) drain(events <-chan timeline.Event) bool {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			_ = e.ProcessEvent(event)
			if e.Session().State().IsTerminal() {
				return true
			}
		default:
			return false
		}
	}
}

func (e *Executor) fail(reason string) {
	_ = e.pipeline.Fail(reason)
	e.report()
}

// report sends failed sessions to Sentry
func (e *Executor) report() {
	session := e.Session()
	if session.State() != timeline.SessionFailed {
		return
	}

	msgs := session.Reducer().Messages()
	last := ""
	if len(msgs) > 0 {
		last = msgs[len(msgs)-1].Text
	}

	sentry.CaptureError(
		fmt.Errorf("execution session failed: %s", last),
		map[string]string{
			"session_id": session.ID,
			"state":      string(session.State()),
		},
		map[string]interface{}{
			"messages": len(msgs),
		},
	)
}

func (e *Executor) summary() Summary {
	session := e.Session()
	msgs := session.Reducer().Messages()

	counts := make(map[timeline.MessageKind]int)
	for _, m := range msgs {
		counts[m.Kind]++
	}

	return Summary{
		SessionID: session.ID,
		State:     session.State(),
		Messages:  msgs,
		Counts:    counts,
		Duration:  timeNow().Sub(e.started),
	}
}

// Flush ensures all buffered output is written
func (e *Executor) Flush() error {
	return e.pipeline.Flush()
}

// Close cleans up resources
func (e *Executor) Close() error {
	return e.pipeline.Close()
}
