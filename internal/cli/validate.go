package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kubiyabot/timeline/internal/config"
	"github.com/kubiyabot/timeline/internal/errors"
	"github.com/kubiyabot/timeline/internal/pterm"
	"github.com/kubiyabot/timeline/internal/source"
	"github.com/kubiyabot/timeline/internal/streaming"
	"github.com/kubiyabot/timeline/internal/style"
	"github.com/kubiyabot/timeline/internal/timeline"
)

const defaultValidateConcurrency = 4

// validationReport is the outcome of checking one event log
type validationReport struct {
	Path      string
	Events    int
	Invalid   []*source.LineError
	Unmatched []string
	Counts    map[timeline.MessageKind]int
	Messages  int
	State     timeline.SessionState
}

func (r *validationReport) ok(strict bool) bool {
	return len(r.Invalid) == 0 && (!strict || len(r.Unmatched) == 0)
}

func newValidateCommand(cfg *config.Config, fs afero.Fs) *cobra.Command {
	var (
		strict       = cfg.StrictToolResults
		dedupeStatus bool
		concurrency  = defaultValidateConcurrency
	)

	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check event logs for undecodable lines and orphaned tool results",
		Long: `Decode every line of one or more event logs and fold them through the
timeline reducer. Reports lines that could not be decoded, tool results with
no matching tool call and the number of messages of each kind.

Logs are checked in parallel. Reads standard input when no file is given.`,
		Example: `  timeline validate run.ndjson
  timeline validate logs/*.ndjson --strict-tool-results`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return errors.ValidationError(fmt.Errorf("--concurrency must be at least 1, got %d", concurrency), "")
			}

			paths := pathArgs(args)
			reports := make([]*validationReport, len(paths))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)

			for i, path := range paths {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					report, err := validateLog(ctx, fs, path, dedupeStatus)
					if err != nil {
						return errors.InputError(fmt.Errorf("%s: %w", path, err))
					}
					reports[i] = report
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pm := pterm.NewPTermManager(out)
			styles := style.New(out)
			logger := newLogger(cmd.ErrOrStderr(), cfg)

			failed := 0
			var (
				firstInvalid *source.LineError
				invalidPath  string
			)
			for i, report := range reports {
				if i > 0 {
					fmt.Fprintln(out, styles.Divider(40))
				}
				if err := printReport(out, pm, styles, logger, report, strict); err != nil {
					return errors.RuntimeError(err)
				}
				if !report.ok(strict) {
					failed++
				}
				if firstInvalid == nil && len(report.Invalid) > 0 {
					firstInvalid = report.Invalid[0]
					invalidPath = report.Path
				}
			}

			if failed > 0 {
				err := fmt.Errorf("%d of %d event log(s) failed validation", failed, len(reports))
				if firstInvalid != nil {
					err = fmt.Errorf("%w: %s: %w", err, invalidPath, firstInvalid)
				}
				return errors.InputError(err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict-tool-results", strict, "Treat tool results with no matching tool call as failures")
	cmd.Flags().BoolVar(&dedupeStatus, "dedupe-status", false, "Drop status events identical to the previous status, as replay --dedupe-status does")
	cmd.Flags().IntVar(&concurrency, "concurrency", concurrency, "Number of logs to check in parallel")

	return cmd
}

// validateLog reads a whole log and folds it through a fresh session
func validateLog(ctx context.Context, fs afero.Fs, path string, dedupeStatus bool) (*validationReport, error) {
	rc, err := source.OpenContext(ctx, fs, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	report := &validationReport{Path: path}

	events, err := source.ReadAll(rc, func(e *source.LineError) {
		report.Invalid = append(report.Invalid, e)
	})
	if err != nil {
		return nil, err
	}
	report.Events = len(events)

	reducer := timeline.NewReducer(timeline.WithUnmatchedResultHandler(func(toolCallID string, _ any) {
		report.Unmatched = append(report.Unmatched, toolCallID)
	}))
	session := timeline.NewSession(path, reducer)
	dedupe := streaming.NewDeduplicationFilter()
	for _, event := range events {
		if dedupeStatus {
			if _, keep := dedupe.Filter(event); !keep {
				continue
			}
		}
		session.Apply(event)
	}

	msgs := reducer.Messages()
	report.Messages = len(msgs)
	report.State = session.State()
	report.Counts = make(map[timeline.MessageKind]int)
	for _, m := range msgs {
		report.Counts[m.Kind]++
	}

	return report, nil
}

func printReport(w io.Writer, pm *pterm.PTermManager, styles *style.Styles, logger *pterm.Logger, report *validationReport, strict bool) error {
	fmt.Fprintf(w, "%s %s\n", styles.Title.Render(report.Path), styles.StatusBadge(string(report.State)))
	fmt.Fprintf(w, "%d event(s), %d message(s)\n", report.Events, report.Messages)

	kinds := make([]string, 0, len(report.Counts))
	for kind := range report.Counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	if len(kinds) > 0 {
		data := [][]string{{"KIND", "COUNT"}}
		for _, kind := range kinds {
			data = append(data, []string{kind, strconv.Itoa(report.Counts[timeline.MessageKind(kind)])})
		}
		if err := pm.RenderTable(data); err != nil {
			return err
		}
	}

	for _, e := range report.Invalid {
		logger.Warningf("%s: %v", report.Path, e)
	}
	for _, id := range report.Unmatched {
		if strict {
			logger.Errorf("%s: tool result %q has no matching tool call", report.Path, id)
		} else {
			logger.Warningf("%s: tool result %q has no matching tool call", report.Path, id)
		}
	}

	if report.ok(strict) {
		logger.Success(report.Path + " is valid")
	}
	return nil
}
