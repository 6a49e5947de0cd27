package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hxpage",
		Short: "Page tooling for hxpage applications",
		Long: `hxpage generates the page manifest of an application from its
*.page*.go files.

Applications serve and prerender their pages with the commands of
github.com/pthm/hxpage/lib/cli.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		generateCmd(),
		cleanCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
