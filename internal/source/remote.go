package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	remoteTimeout    = 30 * time.Second
	remoteRetryCount = 2
)

// IsRemote reports whether path is an HTTP(S) URL
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// newRemoteClient builds the HTTP client used to download recorded logs.
// TIMELINE_SOURCE_TOKEN is sent as a bearer token when set.
func newRemoteClient() *resty.Client {
	client := resty.New().
		SetTimeout(remoteTimeout).
		SetRetryCount(remoteRetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	if token := os.Getenv("TIMELINE_SOURCE_TOKEN"); token != "" {
		client.SetAuthToken(token)
	}
	return client
}

// openRemote downloads a recorded event log. The body is returned unparsed
// so large logs are read line by line.
func openRemote(ctx context.Context, client *resty.Client, url string) (io.ReadCloser, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "application/x-ndjson, text/plain, */*").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event log: %w", err)
	}

	body := resp.RawBody()
	if resp.StatusCode() == http.StatusOK {
		return body, nil
	}
	if body != nil {
		body.Close()
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("authentication failed (HTTP %d) - set TIMELINE_SOURCE_TOKEN", resp.StatusCode())
	case http.StatusNotFound:
		return nil, fmt.Errorf("event log not found at %s (HTTP 404)", url)
	default:
		return nil, fmt.Errorf("unexpected HTTP status: %s", resp.Status())
	}
}
