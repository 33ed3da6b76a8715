// Package cmd contains the CLI commands for taskctl.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	verbose bool
	output  string
	dbPath  string
)

// defaultDBPath can be overridden via the TASKBOARD_DB_PATH env var.
var defaultDBPath = "data/taskboard.db"

func init() {
	if envPath := os.Getenv("TASKBOARD_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "taskctl - Taskboard administration tool",
	Long: `taskctl manages a taskboard database directly, outside of the HTTP API.

It is intended for operators: listing and creating accounts, resetting
passwords, inspecting projects and removing them.

Examples:
  # List all users
  taskctl user list

  # Reset a password
  taskctl user passwd --username alice

  # Show a project with its members and tasks
  taskctl project show --id 3`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "path to SQLite database file")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 2 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
