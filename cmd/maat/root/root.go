package root

import (
	"github.com/flarebyte/maat-arbiter/cmd/maat/diagnose"
	"github.com/flarebyte/maat-arbiter/cmd/maat/run"
	"github.com/flarebyte/maat-arbiter/cmd/maat/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for maat.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maat",
		Short: "CLI: An arbiter that weighs a subject against declared cases, as the scales of Maat weigh the heart against the feather",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Subcommands
	cmd.AddCommand(version.VersionCmd)
	cmd.AddCommand(run.Cmd)
	cmd.AddCommand(diagnose.Cmd)

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}
