// Package config provides configuration loading and validation for the
// pkgcheck engine: the repository location, scan scope, verbosity, and
// the keyword whitelist/blacklist a scan runs with (spec.md §4.7).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
)

// Sentinel validation errors.
var (
	ErrInvalidScope      = errors.New("invalid scan scope")
	ErrInvalidVerbosity  = errors.New("verbosity must be non-negative")
	ErrMissingRepoPath   = errors.New("repository path must be set")
	ErrConflictingFilter = errors.New("a keyword cannot be both whitelisted and blacklisted")
)

// Default configuration values.
const (
	defaultScope      = "repo"
	defaultVerbosity  = 0
	defaultOutput     = "text"
	defaultMaxWorkers = 4
)

// Config holds all configuration for a pkgcheck scan.
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Results    ResultsConfig    `mapstructure:"results"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RepositoryConfig identifies the repository being scanned.
type RepositoryConfig struct {
	Path string `mapstructure:"path"`
}

// ScanConfig controls what a scan covers and how it is placed.
type ScanConfig struct {
	Scope      string `mapstructure:"scope"`
	Category   string `mapstructure:"category"`
	Package    string `mapstructure:"package"`
	Version    string `mapstructure:"version"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

// ResultsConfig controls which results a scan reports.
type ResultsConfig struct {
	Verbosity    int      `mapstructure:"verbosity"`
	EnabledKeys  []string `mapstructure:"enabled_keywords"`
	DisabledKeys []string `mapstructure:"disabled_keywords"`
	ShowFiltered bool     `mapstructure:"show_filtered"`
	Output       string   `mapstructure:"output"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("pkgcheck")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/pkgcheck")
	}

	viperCfg.SetEnvPrefix("PKGCHECK")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	if validateErr := validateConfig(&config); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("scan.scope", defaultScope)
	viperCfg.SetDefault("scan.max_workers", defaultMaxWorkers)

	viperCfg.SetDefault("results.verbosity", defaultVerbosity)
	viperCfg.SetDefault("results.output", defaultOutput)
	viperCfg.SetDefault("results.show_filtered", false)

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "json")
	viperCfg.SetDefault("logging.output", "stderr")
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Repository.Path == "" {
		return ErrMissingRepoPath
	}

	if _, err := itemkind.ParseScope(config.Scan.Scope); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidScope, config.Scan.Scope)
	}

	if config.Results.Verbosity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVerbosity, config.Results.Verbosity)
	}

	disabled := make(map[string]bool, len(config.Results.DisabledKeys))
	for _, k := range config.Results.DisabledKeys {
		disabled[k] = true
	}

	for _, k := range config.Results.EnabledKeys {
		if disabled[k] {
			return fmt.Errorf("%w: %q", ErrConflictingFilter, k)
		}
	}

	return nil
}
