// Package main implements chessd, a chess game API that delegates move
// calculation to a Stockfish engine running in a terminal session.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chessd",
	Short: "Chess game API backed by a Stockfish session",
	Long: `chessd serves a REST API for chess games. Best moves are calculated by a
single Stockfish process running inside a tmux (or pty) session whose output
is appended to a log file and followed by the server.

Running chessd without a subcommand starts the server.`,
	Version:       version,
	SilenceUsage:  true,
	RunE:          runServe,
	Args:          cobra.NoArgs,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	addServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(dbCmd)
}
