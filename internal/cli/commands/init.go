package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlint/internal/cli/output"
	"github.com/leapstack-labs/sqlint/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a default sqlint.yaml",
		Long: `Write a default sqlint.yaml with the recommended rules.

The directory is created if needed. An existing config file is kept
unless --force is given.`,
		Example: `  # Initialize in the current directory
  sqlint init

  # Initialize another directory
  sqlint init db/

  # Overwrite an existing config
  sqlint init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	path, err := config.WriteDefault(dir, force)
	if errors.Is(err, config.ErrConfigExists) {
		return fmt.Errorf("%w; use --force to overwrite", err)
	}
	if err != nil {
		return err
	}
	r.Success("Created " + path)
	r.Muted("Run `sqlint lint` to lint your SQL files.")
	return nil
}
