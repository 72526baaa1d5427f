// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the grant-attribution CLI.
//
// The pipeline stages are subcommands that read and write JSON files in
// the data directory: projects, reorganize, lookup, refine, tree, and
// join. run chains them; roster loads the results into SQLite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/internal/secrets"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "grant-attribution/0.1"

// Data files inside the data directory.
const (
	rawProjectsFile = "projects_raw.json"
	byPIFile        = "projects_by_pi.json"
	personCacheFile = "pi_details.json"
	joinedBase      = "projects_joined"
	treeBase        = "org_tree"
)

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// loadedEnv holds values read from .env files at startup.
var loadedEnv map[string]string

// rootCmd is the base command for the grant-attribution CLI.
var rootCmd = &cobra.Command{
	Use:   "grant-attribution",
	Short: "Attribute institutional grants to schools, departments, and divisions",
	Long: `grant-attribution fetches an institution's NIH RePORTER projects, resolves each
contact PI against the campus LDAP directory, maps the directory department to
the official school, department, and division, and builds an organization tree
and a joined project table.

Each stage is a subcommand that reads and writes files in the data directory,
so stages can be rerun independently. The person cache (pi_details.json) is
resumable: lookup skips names already resolved.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(logging.Config{
			Level:   viper.GetString("log.level"),
			Format:  viper.GetString("log.format"),
			Output:  viper.GetString("log.output"),
			NoColor: viper.GetBool("log.no_color"),
		})
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logging.WithLogger(ctx, &logger))

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}

		env, err := secrets.LoadEnv(".env", ".env.local")
		if err != nil {
			return err
		}
		loadedEnv = env
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./grant-attribution.yaml or ~/.config/grant-attribution/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory holding the pipeline's JSON files")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "auto", "log format: auto, console, json")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("grant-attribution")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "grant-attribution"))
		}
	}

	setDefaults()

	viper.SetEnvPrefix("GRANT_ATTRIBUTION")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("log.output", "stderr")
	viper.SetDefault("grants.timeout", 60*time.Second)
	viper.SetDefault("grants.user_agent", defaultUserAgent)
	viper.SetDefault("grants.page_size", 500)
	viper.SetDefault("grants.page_delay", time.Second)
	viper.SetDefault("grants.max_retries", 5)
	viper.SetDefault("directory.backend", string(types.BackendLDAP))
	viper.SetDefault("directory.default_organization", "University of Minnesota")
	viper.SetDefault("directory.connect_timeout", 10*time.Second)
	viper.SetDefault("lookup.delay", 100*time.Millisecond)
	viper.SetDefault("lookup.checkpoint_every", 10)
	viper.SetDefault("export.format", string(types.ExportCSV))
}

// Built-in directory endpoint used when neither config nor environment names one.
const (
	defaultLDAPServer = "ldap://ldap.umn.edu:389"
	defaultBaseDN     = "o=University of Minnesota,c=US"
)

// pipelineConfig decodes the merged configuration and layers directory
// credentials from the environment, .env files, and .secrets/ on top.
func pipelineConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	secrets.ApplyDirectory(&cfg.Directory, loadedSecrets, loadedEnv)
	if cfg.Directory.URL == "" {
		cfg.Directory.URL = defaultLDAPServer
	}
	if cfg.Directory.BaseDN == "" {
		cfg.Directory.BaseDN = defaultBaseDN
	}
	return cfg, nil
}

func dataPath(cfg types.PipelineConfig, name string) string {
	return filepath.Join(cfg.DataDir, name)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
