package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// Stdin is the path that selects standard input
const Stdin = "-"

// Open opens an event log on fs. The path "-" reads standard input.
func Open(fs afero.Fs, path string) (io.ReadCloser, error) {
	return OpenContext(context.Background(), fs, path)
}

// OpenContext opens an event log. Besides paths on fs and "-" for standard
// input it accepts http:// and https:// URLs of recorded logs.
func OpenContext(ctx context.Context, fs afero.Fs, path string) (io.ReadCloser, error) {
	if path == Stdin || path == "" {
		return io.NopCloser(os.Stdin), nil
	}

	if IsRemote(path) {
		return openRemote(ctx, newRemoteClient(), path)
	}

	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("event log %s is a directory", path)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return f, nil
}
