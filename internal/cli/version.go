package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/delorenj/holyfields/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  "Display version, commit, build date, and Go version information for holyfields",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("holyfields version %s\n", build.Version)
		fmt.Printf("Built from commit: %s\n", build.Commit)
		fmt.Printf("Build date: %s\n", build.BuildDate)
		fmt.Printf("Go version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
