// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/grant-attribution/internal/roster"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Load resolved PIs and projects into SQLite and query them",
	Long: `Roster keeps a SQLite database (roster.db in the data directory) of the
person cache and the joined projects. Use subcommands to load it and to list
PIs by school, department, division, or project title.`,
}

var rosterIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the person cache and joined projects into the roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		rows, c, _, err := joinedRows(cfg)
		if err != nil {
			return err
		}

		store, err := openRoster(cmd, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		_, err = store.Ingest(cmd.Context(), c.Records(), rows, os.Stdout)
		return err
	},
}

var rosterQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List PIs with their grant counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		store, err := openRoster(cmd, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		school, _ := cmd.Flags().GetString("school")
		dept, _ := cmd.Flags().GetString("department")
		division, _ := cmd.Flags().GetString("division")
		title, _ := cmd.Flags().GetString("title")
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := store.Query(cmd.Context(), roster.QueryOptions{
			School: school, Department: dept, Division: division, Title: title, MaxResults: limit,
		})
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		return writeRosterOutput(entries, output)
	},
}

var rosterUnitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Summarize PIs and funding per department",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		store, err := openRoster(cmd, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		units, err := store.Units(cmd.Context())
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			return writeStructured(units, output)
		}
		for _, u := range units {
			fmt.Printf("%-45s %-40s %4d PIs %5d grants  $%.0f\n", u.School, u.Department, u.People, u.Projects, u.Funding)
		}
		return nil
	},
}

func openRoster(cmd *cobra.Command, cfg types.PipelineConfig) (*roster.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = dataPath(cfg, roster.DefaultFile)
	}
	return roster.Open(path)
}

func writeRosterOutput(entries []roster.Entry, output string) error {
	if output != "" {
		return writeStructured(entries, output)
	}
	if len(entries) == 0 {
		fmt.Println("No PIs found.")
		return nil
	}
	roster.WriteEntries(os.Stdout, entries)
	return nil
}

func writeStructured(v any, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output %q: use json or yaml", output)
	}
}

func init() {
	rosterCmd.PersistentFlags().String("db", "", "roster database (default: data/roster.db)")
	rosterCmd.PersistentFlags().String("output", "", "structured output: json or yaml (default: table)")

	rosterQueryCmd.Flags().String("school", "", "filter by official school")
	rosterQueryCmd.Flags().String("department", "", "filter by official department")
	rosterQueryCmd.Flags().String("division", "", "filter by official division")
	rosterQueryCmd.Flags().String("title", "", "only PIs with a project title containing this text")
	rosterQueryCmd.Flags().Int("limit", 0, "maximum results (0 = default)")

	rosterCmd.AddCommand(rosterIngestCmd)
	rosterCmd.AddCommand(rosterQueryCmd)
	rosterCmd.AddCommand(rosterUnitsCmd)
	rootCmd.AddCommand(rosterCmd)
}
