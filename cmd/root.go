package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"shorturl/internal/config"
)

// Cfg holds the loaded configuration, accessible to every Cobra command.
var Cfg *config.Config

// RootCmd is the base command. Subcommands (run-server, create, stats,
// cleanup, migrate) register themselves via their own init() functions,
// which keeps the packages decoupled and avoids import cycles.
var RootCmd = &cobra.Command{
	Use:   "shorturl",
	Short: "A URL shortening service",
	Long: `A URL shortening service with per-click analytics, expiration and
periodic cleanup of expired links.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig loads the configuration before any command runs.
func initConfig() {
	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Problem loading configuration: %v. Using default values.", err)
	}
}
