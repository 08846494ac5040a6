package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "doorman",
	Short: "Doorman - online admission policy for the Berghain Challenge",
	Long: `Doorman plays the Berghain Challenge admission game.

People arrive one at a time and each must be accepted or rejected
immediately. The venue must fill to capacity before the rejection
budget runs out while meeting every attribute quota. Doorman provides:
  - An adaptive shadow-price decision policy with feasibility overrides
  - A challenge API client with retries and rate-limit handling
  - A local simulator for offline play and tuning
  - Per-decision history recording and a persistent run archive
  - Prometheus metrics for live games`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "doorman.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
