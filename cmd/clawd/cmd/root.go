// Package cmd wires the clawd command line.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the root command. Configuration resolves from the
// --config file when given, otherwise from ./clawd.yaml and CLAW_*
// environment variables.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clawd",
		Short:         "clawcasino wagering server",
		Long:          "clawd runs the casino core: hold'em cash tables, coinflip and rock-paper-scissors duels, and the shared agent ledger, served over HTTP and WebSocket.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "path to a YAML config file")
	rootCmd.AddCommand(startCmd())

	return rootCmd
}
