package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kubiyabot/timeline/internal/config"
	"github.com/kubiyabot/timeline/internal/sentry"
	"github.com/kubiyabot/timeline/internal/version"
)

// Execute runs the CLI against the OS filesystem
func Execute(cfg *config.Config) error {
	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     version.Version,
		Debug:       cfg.Debug,
	}); err != nil {
		// Reporting is optional; carry on without it
		newLogger(os.Stderr, cfg).Warningf("%v", err)
	}
	defer sentry.Flush(2 * time.Second)
	defer sentry.RecoverWithSentry(context.Background(), map[string]interface{}{"args": os.Args[1:]})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCommand(cfg, afero.NewOsFs()).ExecuteContext(ctx)
}

func newRootCommand(cfg *config.Config, fs afero.Fs) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timeline",
		Short: "Replay agent execution streams as a readable timeline",
		Long: `timeline folds the event stream of an agent execution into an ordered
list of display messages: assistant text, tool calls paired with their
results, status lines, debug output and errors.

Event logs are newline-delimited JSON, one event per line. Recorded SSE
transcripts ("data: {...}" lines) are accepted as well.`,
		Example: `  # Replay a recorded run in the terminal
  timeline replay run.ndjson

  # Pipe a live stream and emit machine-readable updates
  tail -f run.ndjson | timeline replay - --format json

  # Check logs for undecodable lines and orphaned tool results
  timeline validate logs/*.ndjson --strict-tool-results`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")

	rootCmd.AddCommand(
		newReplayCommand(cfg, fs),
		newValidateCommand(cfg, fs),
		newVersionCommand(cfg),
	)

	return rootCmd
}
