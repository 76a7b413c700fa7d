package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opticpos/internal/logger"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "opticpos",
	Short: "Billing and inventory backend for an optical retail shop",
	Long: `opticpos serves the invoicing and inventory API used by the shop's
point-of-sale frontend.

Running the binary without a subcommand starts the HTTP server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
