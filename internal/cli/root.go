// Package cli provides Cobra-based CLI commands for the holyfields
// contract compiler. It defines the compile and check pipelines plus
// utility commands (targets, version).
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig  string
	flagSchemas string
	flagOut     string
	flagDebug   bool
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "holyfields",
	Short: "holyfields contract compiler",
	Long: `holyfields contract compiler

Compiles JSON Schema contract documents into typed, validated bindings
for multiple target languages, and verifies that every target enforces
the same rules.`,
	Example: `  # Compile every schema under ./schemas into ./gen
  holyfields compile

  # Compile selected targets only
  holyfields compile --targets python,typescript

  # Validate schemas without emitting anything
  holyfields check

  # List the registered targets
  holyfields targets`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", ".holyfields/config.json", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagSchemas, "schemas", "", "Schema directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOut, "out", "", "Output directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}
