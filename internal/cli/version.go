package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubiyabot/timeline/internal/config"
	"github.com/kubiyabot/timeline/internal/errors"
	"github.com/kubiyabot/timeline/internal/version"
)

func newVersionCommand(cfg *config.Config) *cobra.Command {
	var (
		asJSON     bool
		constraint string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Example: `  timeline version
  timeline version --json
  timeline version --check ">= 1.2, < 2"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if constraint != "" {
				ok, err := version.Satisfies(constraint)
				if err != nil {
					return errors.ValidationError(err, "See https://github.com/Masterminds/semver#checking-version-constraints")
				}
				if !ok {
					return errors.ValidationError(
						fmt.Errorf("version %s does not satisfy %q", version.Version, constraint), "")
				}
				newLogger(cmd.ErrOrStderr(), cfg).Debugf("version %s satisfies %q", version.Version, constraint)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(version.GetInfo())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "timeline %s\n", version.GetVersion())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")
	cmd.Flags().StringVar(&constraint, "check", "", "Exit non-zero unless the version satisfies this semver constraint")

	return cmd
}
