// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/grant-attribution/internal/cache"
	"github.com/pdiddy/grant-attribution/internal/resolve"
	"github.com/pdiddy/grant-attribution/internal/taxonomy"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Map cached directory departments to official units",
	Long: `Refine resolves every record in the person cache to an official school,
department, and division. Person overrides win, then exact department
overrides, then the ordered pattern rules. Departments no rule covers go to
"Other Departments" and are listed at the end of the report.

The unit fields are recomputed on every run, so editing the rules or
overrides and rerunning refine is enough to fix a mapping.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		_, err = refinePeople(cmd.Context(), cfg, os.Stdout, verbose)
		return err
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Check the department pattern rules",
	Long: `Rules loads the configured pattern rules and taxonomy and reports rules
that an earlier rule always shadows and rules targeting units the taxonomy
does not declare.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		return checkRules(cfg, os.Stdout)
	},
}

func init() {
	refineCmd.Flags().BoolP("verbose", "v", false, "print every mapping")
	rootCmd.PersistentFlags().String("taxonomy", "", "taxonomy YAML (default: built-in)")
	rootCmd.PersistentFlags().String("rules", "", "pattern rules YAML (default: built-in)")
	rootCmd.PersistentFlags().String("person-overrides", "", "person overrides YAML")
	rootCmd.PersistentFlags().String("department-overrides", "", "department overrides YAML")

	viper.BindPFlag("resolve.taxonomy_path", rootCmd.PersistentFlags().Lookup("taxonomy"))
	viper.BindPFlag("resolve.rules_path", rootCmd.PersistentFlags().Lookup("rules"))
	viper.BindPFlag("resolve.person_overrides_path", rootCmd.PersistentFlags().Lookup("person-overrides"))
	viper.BindPFlag("resolve.department_overrides_path", rootCmd.PersistentFlags().Lookup("department-overrides"))

	refineCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(refineCmd)
}

func newResolver(cfg types.ResolveConfig) (*resolve.Resolver, error) {
	tax, err := taxonomy.Load(cfg.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	persons, err := taxonomy.LoadOverrides(cfg.PersonOverridesPath)
	if err != nil {
		return nil, err
	}
	depts, err := taxonomy.LoadOverrides(cfg.DepartmentOverridesPath)
	if err != nil {
		return nil, err
	}
	rules, err := resolve.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	return resolve.New(tax, persons, depts, rules), nil
}

func refinePeople(ctx context.Context, cfg types.PipelineConfig, w io.Writer, verbose bool) (resolve.RefineSummary, error) {
	r, err := newResolver(cfg.Resolve)
	if err != nil {
		return resolve.RefineSummary{}, err
	}
	c, err := cache.Load(dataPath(cfg, personCacheFile))
	if err != nil {
		return resolve.RefineSummary{}, err
	}
	if c.Len() == 0 {
		return resolve.RefineSummary{}, fmt.Errorf("person cache %s is empty (run lookup first)", c.Path())
	}
	return resolve.Refine(ctx, c, r, w, verbose)
}

func checkRules(cfg types.PipelineConfig, w io.Writer) error {
	tax, err := taxonomy.Load(cfg.Resolve.TaxonomyPath)
	if err != nil {
		return err
	}
	rules, err := resolve.LoadRules(cfg.Resolve.RulesPath)
	if err != nil {
		return err
	}

	problems := 0
	for _, s := range rules.Shadowed() {
		fmt.Fprintf(w, "shadowed: %s\n", s)
		problems++
	}
	for _, rule := range rules {
		if !tax.Declares(rule.School, rule.Department) {
			fmt.Fprintf(w, "undeclared: %q -> %s / %s\n", rule.Pattern, rule.School, rule.Department)
			problems++
			continue
		}
		if rule.Division != "" && !slices.Contains(tax.Divisions(rule.School, rule.Department), rule.Division) {
			fmt.Fprintf(w, "undeclared division: %q -> %s / %s / %s\n", rule.Pattern, rule.School, rule.Department, rule.Division)
			problems++
		}
	}
	fmt.Fprintf(w, "%d rules, %d problems\n", len(rules), problems)
	if problems > 0 {
		return fmt.Errorf("%d rule problem(s)", problems)
	}
	return nil
}
