// Package cli wires configuration, storage, sync and the TUI behind the
// hard75 command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. The bare command opens the TUI.
func NewRootCmd(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "hard75",
		Short: "Track the 75 Hard challenge from the terminal",
		Long: `hard75 records the six daily 75 Hard tasks in a local database and,
when a backend is configured, keeps them in sync across devices.

Run without a subcommand to open the interactive tracker.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/hard75/config.yaml)")

	root.AddCommand(
		newDayCmd(&configPath),
		newMarkCmd(&configPath),
		newStartDateCmd(&configPath),
		newExportCmd(&configPath),
		newServeCmd(&configPath),
	)
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
