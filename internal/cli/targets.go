package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/delorenj/holyfields/internal/emit"

	// Register the built-in emitters.
	_ "github.com/delorenj/holyfields/internal/emit/golang"
	_ "github.com/delorenj/holyfields/internal/emit/python"
	_ "github.com/delorenj/holyfields/internal/emit/typescript"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the registered emission targets",
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range emit.Targets() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
