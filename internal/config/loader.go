package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/logger"
)

const moduleName = "config"

// EmbeddedConfig holds the content of the embedded application.yaml, passed
// in from main.
type EmbeddedConfig []byte

// Load builds the configuration in three layers: defaults, the embedded YAML
// file, and finally environment variables. The environment names match the
// deployment contract of the service (MU_SPARQL_ENDPOINT and friends), so the
// binary is a drop-in for existing stacks.
func Load(envFilePath string, embedded EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, exception.New(moduleName, "failed to unmarshal embedded config", err, exception.KindDataShape)
		}
	}

	applyEnvOverrides(cfg)

	logger.SetLogLevel(cfg.Harvester.System.Logging.Level)
	return cfg, nil
}

// applyEnvOverrides maps the service's environment contract onto the Config.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Harvester.System.Logging.Level, "LOG_LEVEL")

	setString(&cfg.Harvester.Sparql.QueryEndpoint, "MU_SPARQL_ENDPOINT")
	setString(&cfg.Harvester.Sparql.UpdateEndpoint, "MU_SPARQL_UPDATEPOINT")
	setString(&cfg.Harvester.Sparql.DefaultGraph, "DEFAULT_GRAPH")

	setString(&cfg.Harvester.Registry.BaseURL, "PUBLIC_API_BASE_VERENIGINGENREGISTER")
	setString(&cfg.Harvester.Registry.APIKey, "API_KEY")
	setString(&cfg.Harvester.Registry.TokenURL, "ACCESS_TOKEN_URL")
	setString(&cfg.Harvester.Registry.AuthorizationKey, "AUTHORIZATION_KEY")
	setString(&cfg.Harvester.Registry.Scope, "SCOPE")
	setString(&cfg.Harvester.Registry.ClientID, "CLIENT_ID")
	setString(&cfg.Harvester.Registry.PrivateKeyPEM, "JWT_PRIVATE_KEY")
	if v, ok := os.LookupEnv("TOKEN_STRATEGY"); ok && v != "" {
		cfg.Harvester.Registry.TokenStrategy = TokenStrategy(strings.TrimSpace(v))
	}

	setString(&cfg.Harvester.Storage.RelativePath, "MU_APPLICATION_FILE_STORAGE_PATH")

	setInt(&cfg.Harvester.Scheduler.IntervalMinutes, "MUTADIEDIENST_SYNC_INTERVAL")
	if v, ok := os.LookupEnv("AUTO_RUN"); ok {
		cfg.Harvester.Scheduler.Enabled = isTruthy(v)
	}

	setInt(&cfg.Harvester.Web.Port, "PORT")
}

func setString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func setInt(target *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("Environment variable %s has non-integer value '%s'. Keeping default %d.", key, v, *target)
		return
	}
	*target = n
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on", "true", "1":
		return true
	default:
		return false
	}
}
