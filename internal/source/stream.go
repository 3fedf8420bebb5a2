package source

import (
	"context"
	"errors"
	"io"

	"golang.org/x/time/rate"

	"github.com/kubiyabot/timeline/internal/timeline"
)

// Options controls how a log is streamed
type Options struct {
	// Rate limits delivery to this many events per second; 0 is unlimited
	Rate float64

	// Burst lets this many events through without waiting (default 1)
	Burst int

	// OnInvalid receives undecodable lines
	OnInvalid InvalidLineFunc
}

// Stream reads events from r in the background. Events stop after the
// first terminal event, at end of input, or when ctx is done. A read error
// is sent on the error channel. Both channels are closed when streaming ends.
func Stream(ctx context.Context, r io.Reader, opts Options) (<-chan timeline.Event, <-chan error) {
	eventChan := make(chan timeline.Event, 100)
	errChan := make(chan error, 1)

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	go func() {
		defer close(eventChan)
		defer close(errChan)

		reader := NewReader(r, opts.OnInvalid)

		for {
			event, err := reader.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errChan <- err
				return
			}

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}

			select {
			case eventChan <- event:
			case <-ctx.Done():
				return
			}

			// Stop streaming on terminal events
			if timeline.IsTerminal(event) {
				return
			}
		}
	}()

	return eventChan, errChan
}
