package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "supplyshock",
		Short: "Supply-chain disruption simulator",
		Long: `supplyshock simulates world events hitting a logistics network.

Each event is generated deterministically from a seed, analyzed by a
reasoning service into concrete parameter changes, and applied to the
network. Service level, stockout risk, lead time and cost are projected
before and after, and recommended mitigations can be accepted.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ~/.supplyshock/config.yaml)")
	rootCmd.PersistentFlags().String("session", "default", "Session id to operate on")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (error, warn, info, debug, trace)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		// Engine
		newEventCmd(),
		newKPICmd(),
		newApplyCmd(),
		newTopologyCmd(),
		newSweepCmd(),
		// Session
		newRunCmd(),
		newAcceptCmd(),
		newResetCmd(),
		newStatusCmd(),
		newSessionsCmd(),
		newExportCmd(),
		// Servers
		newServeCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "supplyshock version %s\n", version)
			return nil
		},
	}
}
