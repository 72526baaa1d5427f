// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/grant-attribution/internal/cache"
	"github.com/pdiddy/grant-attribution/internal/export"
	"github.com/pdiddy/grant-attribution/internal/grants"
	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Attach resolved PI attributes to every project",
	Long: `Join flattens projects_by_pi.json into one row per project, attaching the
contact PI's rank, directory department and organization, official unit, and
directory entry from the person cache. The rows are written to
projects_joined.json and to projects_joined.csv or .xlsx. The workbook also
carries a sheet with every cached PI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		_, err = joinProjects(cmd.Context(), cfg, os.Stdout)
		return err
	},
}

func init() {
	joinCmd.Flags().String("format", string(types.ExportCSV), "tabular output format: csv or xlsx")
	viper.BindPFlag("export.format", joinCmd.Flags().Lookup("format"))

	rootCmd.AddCommand(joinCmd)
}

func joinedRows(cfg types.PipelineConfig) ([]types.EnrichedProject, *cache.Cache, grants.JoinSummary, error) {
	byPI, err := loadProjectsByPI(cfg)
	if err != nil {
		return nil, nil, grants.JoinSummary{}, err
	}
	c, err := cache.Load(dataPath(cfg, personCacheFile))
	if err != nil {
		return nil, nil, grants.JoinSummary{}, err
	}
	rows, s := grants.Join(byPI, c)
	return rows, c, s, nil
}

func joinProjects(ctx context.Context, cfg types.PipelineConfig, w io.Writer) (grants.JoinSummary, error) {
	rows, c, s, err := joinedRows(cfg)
	if err != nil {
		return s, err
	}

	jsonPath := dataPath(cfg, joinedBase+".json")
	if err := cache.WriteJSON(jsonPath, rows); err != nil {
		return s, err
	}

	var buf bytes.Buffer
	format := cfg.Export.Format
	switch format {
	case types.ExportCSV, "":
		format = types.ExportCSV
		err = export.WriteProjectsCSV(&buf, rows)
	case types.ExportXLSX:
		err = export.WriteXLSX(&buf, rows, c.Records())
	default:
		return s, fmt.Errorf("unsupported format %q: use csv or xlsx", format)
	}
	if err != nil {
		return s, err
	}
	tablePath := dataPath(cfg, joinedBase+"."+string(format))
	if err := cache.WriteFileAtomic(tablePath, buf.Bytes()); err != nil {
		return s, err
	}

	logging.FromContext(ctx).Info().Int("projects", s.Projects).Str("format", string(format)).Msg("projects joined")
	fmt.Fprintf(w, "Joined %d projects for %d PIs (%d not looked up, %d without a directory match)\n",
		s.Projects, s.PIs, s.MissingPI, s.UnmatchedPIs)
	fmt.Fprintf(w, "Wrote %s and %s\n", jsonPath, tablePath)
	return s, nil
}
