// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grant-attribution/internal/resolve"
	"github.com/pdiddy/grant-attribution/internal/taxonomy"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the built-in reference data it carries",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "grant-attribution %s (%s)\n", version, runtime.Version())
	fmt.Fprintf(w, "  taxonomy: %s, %d schools\n", taxonomy.Default().Name(), len(taxonomy.Default().Schools()))
	fmt.Fprintf(w, "  pattern rules: %d\n", len(resolve.DefaultRules()))
}
