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
	"github.com/pdiddy/grant-attribution/internal/directory"
	"github.com/pdiddy/grant-attribution/internal/grants"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve contact PIs against the person directory",
	Long: `Lookup reads projects_by_pi.json and resolves every contact PI not yet in
the person cache (pi_details.json) against the directory. Each name is tried
with progressively looser filters; the best-scoring entry wins and an exact
match stops the search. The cache is checkpointed as it goes, so an
interrupted run resumes where it stopped.

With --force, cached records whose name or department contains --filter are
looked up again.

--source selects the directory: ldap (default) queries the campus LDAP
server; orcid queries the public ORCID registry for researchers with a
current employment at directory.default_organization.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		_, err = lookupPeople(cmd.Context(), cfg, os.Stdout)
		return err
	},
}

func init() {
	lookupCmd.Flags().Bool("force", false, "look up cached records again")
	lookupCmd.Flags().String("filter", "", "with --force, only records whose name or department contains this text")
	lookupCmd.Flags().Duration("delay", 0, "pause between lookups (default 100ms)")
	lookupCmd.Flags().String("ldap-url", "", "directory URL (default from LDAP_SERVER or ldap://ldap.umn.edu:389)")
	lookupCmd.Flags().String("source", "", "directory backend: ldap or orcid (default ldap)")

	viper.BindPFlag("lookup.force", lookupCmd.Flags().Lookup("force"))
	viper.BindPFlag("lookup.filter", lookupCmd.Flags().Lookup("filter"))
	viper.BindPFlag("lookup.delay", lookupCmd.Flags().Lookup("delay"))
	viper.BindPFlag("directory.url", lookupCmd.Flags().Lookup("ldap-url"))
	viper.BindPFlag("directory.backend", lookupCmd.Flags().Lookup("source"))

	rootCmd.AddCommand(lookupCmd)
}

func lookupPeople(ctx context.Context, cfg types.PipelineConfig, w io.Writer) (directory.BatchSummary, error) {
	byPI, err := loadProjectsByPI(cfg)
	if err != nil {
		return directory.BatchSummary{}, err
	}
	c, err := cache.Load(dataPath(cfg, personCacheFile))
	if err != nil {
		return directory.BatchSummary{}, err
	}

	open, err := directoryOpener(cfg)
	if err != nil {
		return directory.BatchSummary{}, err
	}
	return directory.LookupBatch(ctx, open, grants.PINames(byPI), c, cfg.Lookup, w)
}

// directoryOpener returns the connection factory for the configured backend.
func directoryOpener(cfg types.PipelineConfig) (directory.Opener, error) {
	switch cfg.Directory.Backend {
	case "", types.BackendLDAP:
		return func(ctx context.Context) (directory.Conn, error) {
			d, err := directory.DialLDAP(ctx, cfg.Directory)
			if err != nil {
				return nil, err
			}
			return d, nil
		}, nil
	case types.BackendORCID:
		return func(ctx context.Context) (directory.Conn, error) {
			d, err := directory.NewORCID(cfg.Directory)
			if err != nil {
				return nil, err
			}
			d.UserAgent = cfg.Grants.UserAgent
			return d, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown directory backend %q (want ldap or orcid)", cfg.Directory.Backend)
}
