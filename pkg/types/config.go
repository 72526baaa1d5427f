package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "grant-attribution/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// GrantsConfig holds settings for the projects stage.
type GrantsConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// OrgName restricts the search to one awardee organization.
	OrgName string `json:"org_name" yaml:"org_name" mapstructure:"org_name"`

	// Agencies optionally restricts the search to funding agencies (e.g. "VA").
	Agencies []string `json:"agencies,omitempty" yaml:"agencies,omitempty" mapstructure:"agencies"`

	// Years is the number of fiscal years to fetch; 0 means the current year only.
	Years int `json:"years" yaml:"years" mapstructure:"years"`

	// PageSize is the number of records requested per page (API maximum 500).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// PageDelay is the delay between consecutive page requests (default 1s).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay" mapstructure:"page_delay"`

	// MaxRetries is the number of retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// DirectoryBackend selects the person directory implementation.
type DirectoryBackend string

const (
	BackendLDAP  DirectoryBackend = "ldap"
	BackendORCID DirectoryBackend = "orcid"
)

// DirectoryConfig holds connection settings for the person directory.
type DirectoryConfig struct {
	// Backend selects the directory: "ldap" (default) or "orcid", the
	// public ORCID registry searched by affiliation.
	Backend DirectoryBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// URL is the directory server URL (e.g. "ldap://ldap.umn.edu:389").
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// BaseDN is the search base (e.g. "o=University of Minnesota,c=US").
	BaseDN string `json:"base_dn" yaml:"base_dn" mapstructure:"base_dn"`

	// BindDN and Password enable an authenticated bind. When either is
	// empty, or the authenticated bind fails, the connection falls back to
	// an anonymous bind.
	BindDN   string `json:"bind_dn,omitempty" yaml:"bind_dn,omitempty" mapstructure:"bind_dn"`
	Password string `json:"-" yaml:"-" mapstructure:"password"`

	// Login is the account name reported after an authenticated bind.
	Login string `json:"login,omitempty" yaml:"login,omitempty" mapstructure:"login"`

	// DefaultOrganization is reported when an entry has no organization attribute.
	DefaultOrganization string `json:"default_organization" yaml:"default_organization" mapstructure:"default_organization"`

	// ConnectTimeout bounds the initial dial.
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// LookupConfig holds settings for the directory lookup stage.
type LookupConfig struct {
	// Delay is the politeness pause between successive lookups (default 100ms).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`

	// CheckpointEvery is the number of newly resolved records between
	// cache checkpoints (default 10).
	CheckpointEvery int `json:"checkpoint_every" yaml:"checkpoint_every" mapstructure:"checkpoint_every"`

	// Force re-looks-up cached records matching Filter.
	Force bool `json:"force" yaml:"force" mapstructure:"force"`

	// Filter selects cached records for a forced re-lookup: a record is
	// selected when its raw name or cached department contains Filter
	// (case-insensitive). An empty filter with Force selects every record.
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty" mapstructure:"filter"`
}

// ResolveConfig holds the reference documents used by the refine and tree stages.
type ResolveConfig struct {
	// TaxonomyPath is a YAML taxonomy document; empty uses the built-in taxonomy.
	TaxonomyPath string `json:"taxonomy_path,omitempty" yaml:"taxonomy_path,omitempty" mapstructure:"taxonomy_path"`

	// RulesPath is a YAML pattern-rule document; empty uses the built-in rules.
	RulesPath string `json:"rules_path,omitempty" yaml:"rules_path,omitempty" mapstructure:"rules_path"`

	// PersonOverridesPath and DepartmentOverridesPath are optional override documents.
	PersonOverridesPath     string `json:"person_overrides_path,omitempty" yaml:"person_overrides_path,omitempty" mapstructure:"person_overrides_path"`
	DepartmentOverridesPath string `json:"department_overrides_path,omitempty" yaml:"department_overrides_path,omitempty" mapstructure:"department_overrides_path"`
}

// ExportFormat selects the tabular export format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ExportConfig holds settings for the join stage output.
type ExportConfig struct {
	Format ExportFormat `json:"format" yaml:"format" mapstructure:"format"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	DataDir   string          `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Grants    GrantsConfig    `json:"grants" yaml:"grants" mapstructure:"grants"`
	Directory DirectoryConfig `json:"directory" yaml:"directory" mapstructure:"directory"`
	Lookup    LookupConfig    `json:"lookup" yaml:"lookup" mapstructure:"lookup"`
	Resolve   ResolveConfig   `json:"resolve" yaml:"resolve" mapstructure:"resolve"`
	Export    ExportConfig    `json:"export" yaml:"export" mapstructure:"export"`
}
