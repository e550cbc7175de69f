// Command pkgcheck scans an ebuild repository tree and reports the
// check violations its built-in checks find.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgcheck-go/pkgcheck/cmd/pkgcheck/commands"
	"github.com/pkgcheck-go/pkgcheck/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "pkgcheck",
		Short: "pkgcheck - package repository lint engine",
		Long: `pkgcheck plans and runs a pipeline of checks over an ebuild
repository tree.

Commands:
  scan      Scan a repository and report violations
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewScanCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "pkgcheck %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
