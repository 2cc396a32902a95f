// Package cmd holds the companion command line: the server plus the
// operator tools that sit next to it.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Live-stream companion backend",
	Long: `companion runs the live channel and REST API for a stream companion:
chat and donations trigger reaction clips for every viewer, and purchases
draw down the streamer's wallet.

Running companion without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(viewerCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
