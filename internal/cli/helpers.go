package cli

import (
	"io"

	"github.com/kubiyabot/timeline/internal/config"
	"github.com/kubiyabot/timeline/internal/pterm"
)

// newLogger returns a stderr-style logger honouring the debug setting
func newLogger(w io.Writer, cfg *config.Config) *pterm.Logger {
	return pterm.NewPTermManager(w).Logger(cfg.Debug)
}

// pathArgs defaults to standard input when no file is given
func pathArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}
