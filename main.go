package main

import (
	"fmt"
	"os"

	"github.com/kubiyabot/timeline/internal/cli"
	"github.com/kubiyabot/timeline/internal/config"
	"github.com/kubiyabot/timeline/internal/errors"
)

func main() {
	// Load the configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatSimple(errors.ConfigErrorWithContext(err,
			"Fix the file at "+config.DefaultPath()+" or the TIMELINE_* environment variables")))
		os.Exit(errors.ExitCodeConfig)
	}

	// Execute with config
	if err := cli.Execute(cfg); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatSimple(err))
		os.Exit(errors.ExitCodeFromError(err))
	}
}
