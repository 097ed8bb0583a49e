// Package config loads and validates the traktmcp configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/localrivet/configurator"

	"github.com/localrivet/traktmcp/internal/errortypes"
)

// Config represents the traktmcp configuration
type Config struct {
	// Trakt contains the upstream API credentials and target.
	Trakt struct {
		// ClientID is the Trakt application client identifier.
		ClientID string `json:"client_id" env:"TRAKT_CLIENT_ID"`

		// AccessToken is the OAuth bearer token of the tracked account.
		AccessToken string `json:"access_token" env:"TRAKT_ACCESS_TOKEN"`

		// APIVersion is sent as the trakt-api-version header.
		APIVersion string `json:"api_version" env:"TRAKT_API_VERSION"`

		// BaseURL overrides the Trakt API root. Tests point it at a fake.
		BaseURL string `json:"base_url" env:"TRAKT_API_BASE_URL"`
	} `json:"trakt"`

	// Journal contains invocation journal configuration.
	Journal struct {
		// Path is the SQLite file tool invocations are recorded to.
		// Empty disables the journal.
		Path string `json:"path" env:"TRAKT_JOURNAL_PATH"`
	} `json:"journal"`

	// Telemetry contains tracing export configuration.
	Telemetry struct {
		// OTLPEndpoint is the OTLP/HTTP collector URL. Empty disables export.
		OTLPEndpoint string `json:"otlp_endpoint" env:"TRAKT_OTEL_ENDPOINT"`
	} `json:"telemetry"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	configPath string
}

// Credentials are the validated values the Trakt client authenticates with.
// They are immutable once returned.
type Credentials struct {
	ClientID    string
	AccessToken string
	APIVersion  string
}

// Default configuration values
const (
	DefaultConfigFilename = ".traktmcpconfig"
	DefaultAPIVersion     = "2"
	DefaultBaseURL        = "https://api.trakt.tv"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// supportedAPIVersions lists the trakt-api-version values the client speaks.
var supportedAPIVersions = map[string]bool{
	"2": true,
}

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.Trakt.APIVersion = DefaultAPIVersion
	cfg.Trakt.BaseURL = DefaultBaseURL
	cfg.Logging.Level = DefaultLogLevel
	cfg.Logging.Format = DefaultLogFormat
	return cfg
}

// Load reads the configuration from the default path and the environment.
func Load() (*Config, error) {
	return LoadWithPath(DefaultConfigFilename)
}

// LoadWithPath reads configuration from an optional JSON file at configPath
// and then overlays the process environment. A missing file is not an error.
// The result is not validated; call Validate or Credentials.
func LoadWithPath(configPath string) (*Config, error) {
	cfg := NewConfig()

	if configPath == DefaultConfigFilename {
		if found, err := configurator.FindConfigFile(configPath); err == nil {
			configPath = found
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			slog.Debug("Loading configuration file", "path", configPath)
			loader := configurator.New(slog.Default()).
				WithProvider(configurator.NewFileProvider(configPath)).
				WithValidator(configurator.NewDefaultValidator())
			if err := loader.Load(context.Background(), cfg); err != nil {
				return nil, errortypes.ConfigurationError(err, "failed to load configuration file "+configPath)
			}
			cfg.configPath = configPath
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, errortypes.ConfigurationError(err, "failed to stat configuration file "+configPath)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errortypes.ConfigurationError(err, "failed to parse environment")
	}

	cfg.Trakt.BaseURL = strings.TrimRight(cfg.Trakt.BaseURL, "/")
	return cfg, nil
}

// Validate checks that the credentials are present and the API version is
// recognised. Every missing variable is reported at once.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Trakt.ClientID) == "" {
		missing = append(missing, "TRAKT_CLIENT_ID")
	}
	if strings.TrimSpace(c.Trakt.AccessToken) == "" {
		missing = append(missing, "TRAKT_ACCESS_TOKEN")
	}
	if strings.TrimSpace(c.Trakt.APIVersion) == "" {
		missing = append(missing, "TRAKT_API_VERSION")
	}
	if len(missing) > 0 {
		return errortypes.ConfigurationError(nil, "missing configuration: "+strings.Join(missing, ", ")).
			WithField("missing", missing)
	}

	if !supportedAPIVersions[c.Trakt.APIVersion] {
		return errortypes.ConfigurationError(nil, fmt.Sprintf("unsupported Trakt API version %q", c.Trakt.APIVersion)).
			WithField("api_version", c.Trakt.APIVersion)
	}

	if c.Trakt.BaseURL == "" {
		return errortypes.ConfigurationError(nil, "Trakt base URL is empty")
	}
	return nil
}

// Credentials validates the configuration and returns an immutable copy of
// the upstream credentials.
func (c *Config) Credentials() (Credentials, error) {
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return Credentials{
		ClientID:    strings.TrimSpace(c.Trakt.ClientID),
		AccessToken: strings.TrimSpace(c.Trakt.AccessToken),
		APIVersion:  c.Trakt.APIVersion,
	}, nil
}

// SaveToFile saves the configuration to path as JSON.
func (c *Config) SaveToFile(path string) error {
	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	c.configPath = path
	return nil
}

// GetConfigPath returns the path of the loaded configuration file, if any.
func (c *Config) GetConfigPath() string {
	return c.configPath
}
