// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grant-attribution/internal/orgtree"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline: projects, reorganize, lookup, refine, tree, join",
	Long: `Run executes every stage in order. --skip-fetch reuses an existing
projects_raw.json; --skip-lookup refines whatever the person cache already
holds, for when the directory is unreachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		skipFetch, _ := cmd.Flags().GetBool("skip-fetch")
		skipLookup, _ := cmd.Flags().GetBool("skip-lookup")
		w := os.Stdout

		if !skipFetch {
			stage(w, "projects")
			if err := fetchProjects(ctx, cfg, w); err != nil {
				return err
			}
		}
		stage(w, "reorganize")
		if _, err := reorganizeProjects(ctx, cfg, w); err != nil {
			return err
		}
		if !skipLookup {
			stage(w, "lookup")
			if _, err := lookupPeople(ctx, cfg, w); err != nil {
				return err
			}
		}
		stage(w, "refine")
		if _, err := refinePeople(ctx, cfg, w, false); err != nil {
			return err
		}
		stage(w, "tree")
		if err := buildTree(ctx, cfg, orgtree.FormatJSON, "", false, w); err != nil {
			return err
		}
		stage(w, "join")
		_, err = joinProjects(ctx, cfg, w)
		return err
	},
}

func stage(w io.Writer, name string) {
	fmt.Fprintf(w, "\n== %s ==\n", name)
}

func init() {
	runCmd.Flags().Bool("skip-fetch", false, "reuse the existing projects_raw.json")
	runCmd.Flags().Bool("skip-lookup", false, "skip the directory lookup stage")

	rootCmd.AddCommand(runCmd)
}
