// Package main is the legiseye server binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile overrides CONFIG_FILE when set.
	configFile string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "legiseye",
	Short: "Legal document analysis and collaboration server",
	Long: `legiseye analyzes uploaded legal documents with an LLM, answers questions
about them, and lets teams share, comment on and translate them.

Running legiseye without a subcommand is the same as "legiseye serve".`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if configFile == "" {
			return nil
		}
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return fmt.Errorf("set CONFIG_FILE: %w", err)
		}
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the TOML config file (default configs/config.toml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
