// Package config provides structures and utilities for managing the
// harvester's configuration.
package config

import "time"

// TokenStrategy selects how the access token for the register API is obtained.
type TokenStrategy string

const (
	// TokenStrategyClientCredentials exchanges a static basic-auth secret at
	// the token endpoint.
	TokenStrategyClientCredentials TokenStrategy = "client-credentials"
	// TokenStrategySignedAssertion exchanges a short-lived signed JWT
	// assertion at the token endpoint.
	TokenStrategySignedAssertion TokenStrategy = "signed-assertion"
)

// RetryConfig holds the retry settings applied to upstream API calls.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget per call (first try included).
	MaxAttempts int `yaml:"max_attempts"`
	// IntervalMS is the fixed delay between attempts in milliseconds.
	IntervalMS int `yaml:"interval_ms"`
}

// Interval returns the configured delay as a time.Duration.
func (r RetryConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMS) * time.Millisecond
}

// RegistryConfig holds the connection settings for the verenigingenregister
// public API.
type RegistryConfig struct {
	// BaseURL is the API base, e.g. https://publiek.verenigingen.vlaanderen.be.
	BaseURL string `yaml:"base_url"`
	// APIKey is the vr-api-key header value for the detail endpoint.
	APIKey string `yaml:"api_key"`
	// ContextURL is the JSON-LD context document fetched once per run.
	ContextURL string `yaml:"context_url"`
	// PageSize is the pagination limit for the search endpoint.
	PageSize int `yaml:"page_size"`
	// TimeoutSeconds bounds every HTTP call to the API.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// MaxParallelism is the worker-pool size for the fan-out phases.
	MaxParallelism int `yaml:"max_parallelism"`
	// Retry is the retry budget for transient network errors.
	Retry RetryConfig `yaml:"retry"`
	// PostalCodes is the fixed partition set walked by a full harvest.
	PostalCodes []string `yaml:"postal_codes"`

	// Token exchange settings.
	TokenStrategy    TokenStrategy `yaml:"token_strategy"`
	TokenURL         string        `yaml:"token_url"`
	AuthorizationKey string        `yaml:"authorization_key"`
	Scope            string        `yaml:"scope"`
	ClientID         string        `yaml:"client_id"`
	PrivateKeyPEM    string        `yaml:"private_key_pem"`
}

// Timeout returns the configured HTTP timeout as a time.Duration.
func (r RegistryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// SparqlConfig holds the triplestore endpoints.
type SparqlConfig struct {
	// QueryEndpoint is the SPARQL query endpoint (MU_SPARQL_ENDPOINT).
	QueryEndpoint string `yaml:"query_endpoint"`
	// UpdateEndpoint is the SPARQL update endpoint (MU_SPARQL_UPDATEPOINT).
	UpdateEndpoint string `yaml:"update_endpoint"`
	// DefaultGraph is the graph all ledger triples live in.
	DefaultGraph string `yaml:"default_graph"`
	// TimeoutSeconds bounds every call to the triplestore.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the configured HTTP timeout as a time.Duration.
func (s SparqlConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// StorageConfig holds the result-file storage settings, following the
// mu-semtech file-service layout under /share.
type StorageConfig struct {
	// SharePath is the mount point of the shared file volume.
	SharePath string `yaml:"share_path"`
	// RelativePath is the storage path relative to SharePath
	// (MU_APPLICATION_FILE_STORAGE_PATH).
	RelativePath string `yaml:"relative_path"`
}

// SchedulerConfig holds the mutation-feed polling settings.
type SchedulerConfig struct {
	// Enabled toggles the periodic incremental harvest.
	Enabled bool `yaml:"enabled"`
	// IntervalMinutes is the tick interval of the incremental harvest.
	IntervalMinutes int `yaml:"interval_minutes"`
}

// Interval returns the tick interval as a time.Duration.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// WebConfig holds the HTTP server settings.
type WebConfig struct {
	// Port the delta webhook and metrics endpoints listen on.
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g. "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// HarvesterConfig holds all configuration under the "harvester" top-level key.
type HarvesterConfig struct {
	System    SystemConfig    `yaml:"system"`
	Registry  RegistryConfig  `yaml:"registry"`
	Sparql    SparqlConfig    `yaml:"sparql"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Web       WebConfig       `yaml:"web"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Harvester HarvesterConfig `yaml:"harvester"`
}

// NewConfig returns a new Config populated with defaults. YAML and
// environment overrides are applied on top by the loader.
func NewConfig() *Config {
	return &Config{
		Harvester: HarvesterConfig{
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO"},
			},
			Registry: RegistryConfig{
				BaseURL:        "https://publiek.verenigingen.staging-vlaanderen.be",
				ContextURL:     "https://publiek.verenigingen.staging-vlaanderen.be/v1/contexten/beheer/detail-vereniging-context.json",
				PageSize:       160,
				TimeoutSeconds: 30,
				MaxParallelism: 6,
				Retry: RetryConfig{
					MaxAttempts: 5,
					IntervalMS:  2000,
				},
				TokenStrategy: TokenStrategyClientCredentials,
			},
			Sparql: SparqlConfig{
				DefaultGraph:   "http://mu.semte.ch/graphs/public",
				TimeoutSeconds: 30,
			},
			Storage: StorageConfig{
				SharePath: "/share",
			},
			Scheduler: SchedulerConfig{
				Enabled:         true,
				IntervalMinutes: 1,
			},
			Web: WebConfig{
				Port: 80,
			},
		},
	}
}
