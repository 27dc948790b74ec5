package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boardhub",
		Short: "Real-time collaborative drawing board server",
		Long: `boardhub is the session server for a shared drawing board.

It coordinates many simultaneous editors per room over WebSocket:
drawing mutations, presence, and live cursors are serialized per room
and re-broadcast to every participant with minimal latency. All state
is in-memory and single-process; a restart starts from a blank slate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
