package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/forge-settings/internal/settings"
)

const (
	defaultPort           = "8080"
	defaultAppRoot        = "."
	defaultSitePath       = "sites/default"
	defaultFormat         = FormatYAML
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Output formats accepted by the resolve command.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	AppRoot              string        `yaml:"app_root" validate:"required"`
	SitePath             string        `yaml:"site_path" validate:"required"`
	OverrideFile         string        `yaml:"override_file" validate:"required,excludesall=/\\"`
	Format               string        `yaml:"format" validate:"oneof=yaml json"`
	Port                 string        `yaml:"port" validate:"required"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period" validate:"gt=0"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout" validate:"gt=0"`
	WriteTimeout         time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout          time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-" validate:"gte=0"`
	RateLimitBurst       int           `yaml:"-" validate:"gte=0"`
}

// Paths returns the site paths used by the settings resolver.
func (c Config) Paths() settings.Paths {
	return settings.Paths{
		AppRoot:      c.AppRoot,
		SitePath:     c.SitePath,
		OverrideFile: c.OverrideFile,
	}
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	AppRoot              string        `yaml:"app_root"`
	SitePath             string        `yaml:"site_path"`
	OverrideFile         string        `yaml:"override_file"`
	Format               string        `yaml:"format"`
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	AppRoot        *string
	SitePath       *string
	OverrideFile   *string
	Format         *string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables first so the YAML file can override them
	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		AppRoot:              defaultAppRoot,
		SitePath:             defaultSitePath,
		OverrideFile:         settings.DefaultOverrideFile,
		Format:               defaultFormat,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	setString(&cfg.AppRoot, yamlCfg.AppRoot)
	setString(&cfg.SitePath, yamlCfg.SitePath)
	setString(&cfg.OverrideFile, yamlCfg.OverrideFile)
	setString(&cfg.Format, yamlCfg.Format)
	setString(&cfg.Port, yamlCfg.Port)

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.field = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	setString(&cfg.AppRoot, os.Getenv("FORGE_APP_ROOT"))
	setString(&cfg.SitePath, os.Getenv("FORGE_SITE_PATH"))
	setString(&cfg.OverrideFile, os.Getenv("FORGE_OVERRIDE_FILE"))
	setString(&cfg.Port, os.Getenv("PORT"))

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.AppRoot != nil {
		setString(&cfg.AppRoot, *overrides.AppRoot)
	}
	if overrides.SitePath != nil {
		setString(&cfg.SitePath, *overrides.SitePath)
	}
	if overrides.OverrideFile != nil {
		setString(&cfg.OverrideFile, *overrides.OverrideFile)
	}
	if overrides.Format != nil {
		setString(&cfg.Format, *overrides.Format)
	}
	if overrides.Port != nil {
		setString(&cfg.Port, *overrides.Port)
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validation failed for Config: %w", err)
	}
	return nil
}

func setString(dst *string, raw string) {
	if value := strings.TrimSpace(raw); value != "" {
		*dst = value
	}
}
