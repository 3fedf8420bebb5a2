package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kubiyabot/timeline/internal/config"
	"github.com/kubiyabot/timeline/internal/errors"
	"github.com/kubiyabot/timeline/internal/output"
	"github.com/kubiyabot/timeline/internal/sentry"
	"github.com/kubiyabot/timeline/internal/source"
	"github.com/kubiyabot/timeline/internal/streaming"
	"github.com/kubiyabot/timeline/internal/timeline"
)

type replayOptions struct {
	format            string
	verbose           bool
	markdown          bool
	rate              float64
	idleTimeout       time.Duration
	debugKeywords     []string
	hideDebug         bool
	dedupeStatus      bool
	strictToolResults bool
	sessionID         string
}

func newReplayCommand(cfg *config.Config, fs afero.Fs) *cobra.Command {
	opts := &replayOptions{
		format:            cfg.Format,
		verbose:           cfg.Verbose,
		markdown:          cfg.Markdown,
		idleTimeout:       cfg.IdleTimeout,
		debugKeywords:     cfg.DebugKeywords,
		strictToolResults: cfg.StrictToolResults,
	}

	cmd := &cobra.Command{
		Use:   "replay [file|-]",
		Short: "Replay an event log as a live timeline",
		Long: `Stream a recorded event log through the timeline reducer and render every
update as it happens. Reads standard input when no file (or "-") is given.

The exit code reflects how the session ended: 0 when it completed, 4 when it
failed (error event, failed result, stream error or idle timeout).`,
		Example: `  timeline replay run.ndjson
  timeline replay run.ndjson --rate 20 --verbose
  cat run.ndjson | timeline replay --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return runReplay(cmd, cfg, fs, pathArgs(args)[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", opts.format, "Output format: auto, text or json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", opts.verbose, "Show full tool inputs, results and untruncated text")
	cmd.Flags().BoolVar(&opts.markdown, "markdown", opts.markdown, "Render assistant text as markdown (text format only)")
	cmd.Flags().Float64Var(&opts.rate, "rate", 0, "Replay at most N events per second (0 = as fast as possible)")
	cmd.Flags().DurationVar(&opts.idleTimeout, "idle-timeout", opts.idleTimeout, "Fail the session when no event arrives within this time (0 disables)")
	cmd.Flags().StringSliceVar(&opts.debugKeywords, "debug-keyword", opts.debugKeywords, "Only show debug events containing one of these keywords")
	cmd.Flags().BoolVar(&opts.hideDebug, "hide-debug", false, "Drop debug events entirely")
	cmd.Flags().BoolVar(&opts.dedupeStatus, "dedupe-status", false, "Drop status events identical to the previous status")
	cmd.Flags().BoolVar(&opts.strictToolResults, "strict-tool-results", opts.strictToolResults, "Warn about tool results with no matching tool call")
	cmd.Flags().StringVar(&opts.sessionID, "session-id", "", "Session id to report (default: random UUID)")

	return cmd
}

func (o *replayOptions) validate() error {
	switch streaming.StreamFormat(o.format) {
	case streaming.StreamFormatAuto, streaming.StreamFormatText, streaming.StreamFormatJSON:
	default:
		return errors.ValidationError(
			fmt.Errorf("invalid format %q", o.format),
			"Use --format auto, text or json",
		)
	}
	if o.rate < 0 {
		return errors.ValidationError(fmt.Errorf("--rate must not be negative, got %v", o.rate), "")
	}
	if o.idleTimeout < 0 {
		return errors.ValidationError(fmt.Errorf("--idle-timeout must not be negative, got %s", o.idleTimeout), "")
	}
	return nil
}

func runReplay(cmd *cobra.Command, cfg *config.Config, fs afero.Fs, path string, opts *replayOptions) error {
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	rc, err := source.OpenContext(cmd.Context(), fs, path)
	if err != nil {
		return errors.InputErrorWithContext(err, "Pass the path or URL of an NDJSON event log, or - to read standard input")
	}
	defer rc.Close()

	out := cmd.OutOrStdout()
	format := streaming.ResolveFormat(opts.format, output.IsInteractiveWriter(out))
	logger.Debug("replaying event log", "path", path, "format", format, "rate", opts.rate)

	execOpts := streaming.Options{
		Format:        format,
		Verbose:       opts.verbose,
		Markdown:      opts.markdown,
		Writer:        out,
		IdleTimeout:   opts.idleTimeout,
		DebugKeywords: opts.debugKeywords,
		HideDebug:     opts.hideDebug,
		DedupeStatus:  opts.dedupeStatus,
		SessionID:     opts.sessionID,
	}
	if opts.strictToolResults {
		execOpts.OnUnmatchedResult = func(toolCallID string, _ any) {
			logger.Warningf("tool result %q has no matching tool call", toolCallID)
		}
	}

	executor := streaming.NewExecutor(execOpts)
	defer executor.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var invalid atomic.Int64
	events, errs := source.Stream(ctx, rc, source.Options{
		Rate: opts.rate,
		OnInvalid: func(e *source.LineError) {
			invalid.Add(1)
			logger.Debugf("skipping undecodable %v", e)
		},
	})

	sentry.AddBreadcrumb("replay", "session started", map[string]interface{}{
		"session_id": executor.Session().ID,
		"path":       path,
	})

	summary, runErr := executor.Run(ctx, events, errs)
	// Stop the reader before inspecting counters it updates
	cancel()

	if err := executor.Flush(); err != nil {
		logger.Debugf("flush failed: %v", err)
	}

	if n := invalid.Load(); n > 0 {
		logger.Warningf("skipped %d undecodable line(s) in %s", n, path)
	}
	logger.Debug("session finished",
		"session", summary.SessionID,
		"state", summary.State,
		"messages", len(summary.Messages),
		"duration", summary.Duration.Round(time.Millisecond))

	return replayResult(summary, runErr)
}

// replayResult maps the final session state to a CLI error
func replayResult(summary streaming.Summary, runErr error) error {
	if runErr != nil && stderrors.Is(runErr, context.Canceled) {
		return errors.RuntimeError(fmt.Errorf("replay interrupted: %w", runErr))
	}

	if summary.State == timeline.SessionCompleted {
		return nil
	}

	if runErr != nil {
		return errors.SessionError(fmt.Errorf("session %s failed: %w", summary.SessionID, runErr))
	}

	reason := string(summary.State)
	if n := len(summary.Messages); n > 0 {
		reason = summary.Messages[n-1].Text
	}
	return errors.SessionError(fmt.Errorf("session %s failed: %s", summary.SessionID, reason))
}
