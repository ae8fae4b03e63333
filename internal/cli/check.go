package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate schemas and verify targets without writing output",
	Long: `Check runs the whole pipeline in memory: documents are loaded,
references resolved, composition applied, bindings rendered, and
cross-target agreement verified, but nothing is written to disk.
Useful as a CI gate.`,
	Example: `  # Validate every schema under ./schemas
  holyfields check

  # Validate a different tree
  holyfields check --schemas ./contracts`,
	RunE: runCheckSchemas,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheckSchemas(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return executeCompile(ctx, cmd, false)
}
