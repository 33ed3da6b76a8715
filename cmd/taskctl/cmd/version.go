package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/taskboard/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build time of taskctl.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GetOutput() == "json" {
			return writeJSON(cmd.OutOrStdout(), config.GetBuildInfo())
		}
		fmt.Fprintln(cmd.OutOrStdout(), config.VersionString())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
