// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/grant-attribution/internal/cache"
	"github.com/pdiddy/grant-attribution/internal/grants"
	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Fetch the institution's projects from NIH RePORTER",
	Long: `Projects pages through the RePORTER projects search for the configured
organization and fiscal years and writes the raw results to
projects_raw.json. Rate-limited requests are retried with backoff.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		return fetchProjects(cmd.Context(), cfg, os.Stdout)
	},
}

var reorganizeCmd = &cobra.Command{
	Use:   "reorganize",
	Short: "Group fetched projects by contact PI and core project number",
	Long: `Reorganize reads projects_raw.json, groups projects by contact PI name
and then by core project number, sorts each group by project number, and
writes projects_by_pi.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		_, err = reorganizeProjects(cmd.Context(), cfg, os.Stdout)
		return err
	},
}

func init() {
	projectsCmd.Flags().Int("years", 0, "number of fiscal years to fetch (0 = current year)")
	projectsCmd.Flags().StringSlice("agency", nil, "restrict to funding agencies (repeatable)")
	projectsCmd.Flags().String("org", grants.DefaultOrgName, "awardee organization name")
	projectsCmd.Flags().Int("page-size", 500, "records per page (maximum 500)")

	viper.BindPFlag("grants.years", projectsCmd.Flags().Lookup("years"))
	viper.BindPFlag("grants.agencies", projectsCmd.Flags().Lookup("agency"))
	viper.BindPFlag("grants.org_name", projectsCmd.Flags().Lookup("org"))
	viper.BindPFlag("grants.page_size", projectsCmd.Flags().Lookup("page-size"))

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(reorganizeCmd)
}

func fetchProjects(ctx context.Context, cfg types.PipelineConfig, w io.Writer) error {
	client := grants.NewClient(cfg.Grants)
	projects, err := client.Fetch(ctx, w)
	if err != nil && len(projects) == 0 {
		return err
	}
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Int("projects", len(projects)).Msg("fetch incomplete, saving partial results")
	}

	path := dataPath(cfg, rawProjectsFile)
	if werr := cache.WriteJSON(path, projects); werr != nil {
		return werr
	}
	fmt.Fprintf(w, "\nSaved %d projects to %s\n", len(projects), path)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		fmt.Fprintf(w, "Warning: some fiscal years failed and are missing: %v\n", err)
	}
	return nil
}

func reorganizeProjects(ctx context.Context, cfg types.PipelineConfig, w io.Writer) (types.ProjectsByPI, error) {
	var projects []types.Project
	if err := cache.ReadJSON(dataPath(cfg, rawProjectsFile), &projects); err != nil {
		return nil, err
	}

	byPI := grants.Reorganize(projects)
	path := dataPath(cfg, byPIFile)
	if err := cache.WriteJSON(path, byPI); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info().Int("pis", len(byPI)).Int("projects", grants.CountProjects(byPI)).Msg("projects reorganized")
	fmt.Fprintf(w, "Grouped %d projects under %d PIs into %s\n", grants.CountProjects(byPI), len(byPI), path)
	return byPI, nil
}

func loadProjectsByPI(cfg types.PipelineConfig) (types.ProjectsByPI, error) {
	var byPI types.ProjectsByPI
	if err := cache.ReadJSON(dataPath(cfg, byPIFile), &byPI); err != nil {
		return nil, fmt.Errorf("%w (run reorganize first)", err)
	}
	return byPI, nil
}
