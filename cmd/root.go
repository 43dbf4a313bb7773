// Package cmd holds the CLI entrypoints.
package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "healflow",
	Short: "Autonomous incident-response backend for migration monitoring",
	Long: `HealFlow watches migration signals, runs agents through an
observe/orient/decide/act loop against them, and serves the command-center
dashboard API.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
