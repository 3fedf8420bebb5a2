package output

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"TIMELINE_CI_MODE",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"JENKINS_HOME",
	"JENKINS_URL",
	"BUILDKITE",
	"TRAVIS",
	"TEAMCITY_VERSION",
	"BITBUCKET_PIPELINES",
	"DRONE",
}

// IsCI detects if the CLI is running in a CI environment
// Checks multiple common CI environment variables and TTY status
func IsCI() bool {
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}

	// Check if stdout is not a TTY (piped or redirected)
	return !isTerminal(os.Stdout)
}

// IsInteractive returns true if the output should be interactive
// (opposite of IsCI)
func IsInteractive() bool {
	return !IsCI()
}

// IsInteractiveWriter reports whether w is a terminal outside CI. Writers
// that are not files (buffers, pipes wrapped in other writers) are never
// interactive.
func IsInteractiveWriter(w io.Writer) bool {
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
