// Package cmd defines and implements the CLI commands for the parser
// executable.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/nft-metadata-parser/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nft-metadata-parser",
		Short: "A concurrent parser for token metadata references.",
		Long: `nft-metadata-parser subscribes to a stream of token metadata
references, fetches and normalizes the referenced JSON, image, and
animation content, re-hosts it on durable storage, and records crawl
progress with per-field deduplication and retry bookkeeping.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml)")

	cmd.AddCommand(newParseCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Error("Command execution failed", zap.Error(err))
		os.Exit(1)
	}
}
