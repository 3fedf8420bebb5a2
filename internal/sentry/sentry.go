package sentry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Sentry configuration
type Config struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
	Debug       bool
}

// Initialize sets up Sentry if a DSN is provided. An empty DSN leaves
// reporting disabled and every helper in this package becomes a no-op.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "production"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		TracesSampleRate: cfg.SampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	return nil
}

// ParseSampleRate parses a sample rate, falling back to 1.0
func ParseSampleRate(s string) float64 {
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil || rate <= 0 || rate > 1 {
		return 1.0
	}
	return rate
}

// Enabled reports whether a Sentry client is configured
func Enabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// Flush waits for all events to be sent
func Flush(timeout time.Duration) {
	if Enabled() {
		sentry.Flush(timeout)
	}
}

// CaptureError captures an error with additional context
func CaptureError(err error, tags map[string]string, extras map[string]interface{}) {
	if !Enabled() || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// AddBreadcrumb adds a breadcrumb for debugging
func AddBreadcrumb(category, message string, data map[string]interface{}) {
	if Enabled() {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Category:  category,
			Message:   message,
			Level:     sentry.LevelInfo,
			Data:      data,
			Timestamp: time.Now(),
		})
	}
}

// RecoverWithSentry recovers from panic and reports to Sentry
func RecoverWithSentry(ctx context.Context, extras map[string]interface{}) {
	if err := recover(); err != nil {
		if Enabled() {
			sentry.WithScope(func(scope *sentry.Scope) {
				for k, v := range extras {
					scope.SetExtra(k, v)
				}
				sentry.CurrentHub().RecoverWithContext(ctx, err)
			})
			sentry.Flush(2 * time.Second)
		}
		// Re-panic after reporting
		panic(err)
	}
}
