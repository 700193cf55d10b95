package cli

import (
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration commands would run with, after applying the config
file and flags, as YAML. The output is a valid config file.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := rootOpts.Config.YAML()
			if err != nil {
				return WrapExitError(ExitFailure, "rendering config", err)
			}
			_, err = cmd.OutOrStdout().Write(bs)
			return err
		},
	}
	return cmd
}
