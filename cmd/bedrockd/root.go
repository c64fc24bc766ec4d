// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bedrockd",
	Short: "Minecraft Bedrock dedicated server supervisor",
	Long: `bedrockd runs a Bedrock dedicated server, restarts it after crashes, takes
world backups while the server stays online, and shuts it down gracefully.

Quick start:
  bedrockd                          # Run the server in the current directory
  bedrockd --config bedrockd.yaml   # Run with a config file
  bedrockd backup list              # List recorded backups
  kill -USR1 $(pidof bedrockd)      # Take a backup now`,
	SilenceUsage: true,
	RunE:         runServer,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default: $CONFIG_PATH or bedrockd.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(versionCmd)
}
