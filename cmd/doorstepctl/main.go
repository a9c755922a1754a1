package main

import (
	"fmt"
	"os"

	"github.com/doorstep-banking/internal/config"
	"github.com/spf13/cobra"
)

var configName string

var rootCmd = &cobra.Command{
	Use:           "doorstepctl",
	Short:         "Operator commands for the doorstep banking services",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configName, "config", "doorstepctl", "config file base name, read as <name>.env")
	rootCmd.AddCommand(resyncCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configName)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
