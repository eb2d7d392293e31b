package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"charocr/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show charocr version and build information",
	Args:  cobra.NoArgs,
	// The version report needs no config.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, line := range version.Lines() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
