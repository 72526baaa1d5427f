// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grant-attribution/internal/cache"
	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/internal/orgtree"
	"github.com/pdiddy/grant-attribution/internal/resolve"
	"github.com/pdiddy/grant-attribution/internal/taxonomy"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Build the school / department / division tree of PIs",
	Long: `Tree seeds the organization tree from the taxonomy and places every
cached PI under their official unit. A PI in a department that has divisions
but no resolved division goes under that department's "Other" division. PIs
not yet refined are placed with the current rules and overrides, and any
department string no rule covers is listed after the summary.

The tree is written to org_tree.json (or .yaml) in the data directory; use
--output - to print it instead. --structure-only writes the bare taxonomy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		structureOnly, _ := cmd.Flags().GetBool("structure-only")
		return buildTree(cmd.Context(), cfg, orgtree.Format(format), output, structureOnly, os.Stdout)
	},
}

func init() {
	treeCmd.Flags().String("format", string(orgtree.FormatJSON), "output format: json or yaml")
	treeCmd.Flags().StringP("output", "o", "", "output file (default: data/org_tree.<format>; - for stdout)")
	treeCmd.Flags().Bool("structure-only", false, "write the taxonomy without people")

	rootCmd.AddCommand(treeCmd)
}

func buildTree(ctx context.Context, cfg types.PipelineConfig, format orgtree.Format, output string, structureOnly bool, w io.Writer) error {
	log := logging.FromContext(ctx)
	if format == "" {
		format = orgtree.FormatJSON
	}

	var (
		tax       *taxonomy.Taxonomy
		people    []types.PersonRecord
		r         *resolve.Resolver
		unrefined int
		err       error
	)
	if structureOnly {
		if tax, err = taxonomy.Load(cfg.Resolve.TaxonomyPath); err != nil {
			return err
		}
	} else {
		if r, err = newResolver(cfg.Resolve); err != nil {
			return err
		}
		tax = r.Taxonomy
		c, err := cache.Load(dataPath(cfg, personCacheFile))
		if err != nil {
			return err
		}
		people, unrefined = resolve.ResolveUnrefined(r, c.Records())
		if unrefined > 0 {
			log.Info().Int("records", unrefined).Msg("resolved records not yet refined")
		}
	}
	root := orgtree.Build(tax, people)
	log.Debug().Int("schools", len(root.Children)).Int("people", root.CountPeople()).Msg("tree built")

	var buf bytes.Buffer
	if err := orgtree.Encode(&buf, root, format); err != nil {
		return err
	}

	switch output {
	case "-":
		if r != nil && len(r.Unmapped()) > 0 {
			log.Warn().Strs("departments", r.Unmapped()).Msg("unmapped departments placed in catch-all bucket")
		}
		_, err := w.Write(buf.Bytes())
		return err
	case "":
		output = dataPath(cfg, treeBase+"."+string(format))
	}
	if err := cache.WriteFileAtomic(output, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s\n", output)
	if structureOnly {
		return nil
	}
	orgtree.WriteSummary(w, root)
	if unrefined > 0 {
		fmt.Fprintf(w, "\n%d PIs were not yet refined and were placed with the current rules (run refine to store them)\n", unrefined)
	}
	resolve.WriteUnmapped(w, r)
	return nil
}
