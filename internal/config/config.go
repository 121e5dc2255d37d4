// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/studioline/shootplan/internal/hostutil"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "SHOOTPLAN_"

// Config holds the resolved configuration.
type Config struct {
	// API settings
	BaseURL   string        `json:"base_url"`
	CompanyID string        `json:"company_id"`
	Timeout   time.Duration `json:"-"`

	// Local state; holds credentials when no keyring is available.
	StateDir string `json:"state_dir"`

	// Output settings
	Format   string `json:"format"`
	Locale   string `json:"locale"`
	LogLevel string `json:"log_level"`

	// Tracing exporter endpoint; empty disables tracing.
	OTLPEndpoint string `json:"otlp_endpoint,omitempty"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceLocal   Source = "local"
	SourceDotenv  Source = "dotenv"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	BaseURL  string
	Company  string
	StateDir string
	Format   string
	LogLevel string
}

// envConfig mirrors the SHOOTPLAN_* variables.
type envConfig struct {
	BaseURL      string         `env:"BASE_URL"`
	CompanyID    string         `env:"COMPANY_ID"`
	StateDir     string         `env:"STATE_DIR"`
	Format       string         `env:"FORMAT"`
	Timeout      *time.Duration `env:"TIMEOUT"`
	LogLevel     string         `env:"LOG_LEVEL"`
	Locale       string         `env:"LOCALE"`
	OTLPEndpoint string         `env:"OTLP_ENDPOINT"`
}

// Default returns the default configuration.
func Default() *Config {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, _ := os.UserHomeDir()
		stateDir = filepath.Join(home, ".local", "state")
	}

	return &Config{
		BaseURL:  "https://api.shootplan.app",
		Timeout:  30 * time.Second,
		StateDir: filepath.Join(stateDir, "shootplan"),
		Format:   "auto",
		Locale:   "en",
		LogLevel: "warn",
		Sources:  make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > .env > local > global > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, globalConfigPath(), SourceGlobal)
	loadFromFile(cfg, localConfigPath(), SourceLocal)

	dotenv, err := readDotenv(".env")
	if err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg, envMap(dotenv), dotenv); err != nil {
		return nil, err
	}

	ApplyOverrides(cfg, overrides)
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail much later.
func (cfg *Config) Validate() error {
	switch cfg.Format {
	case "auto", "json", "styled", "quiet", "ids":
	default:
		return fmt.Errorf("invalid format %q (want auto, json, styled, quiet or ids)", cfg.Format)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	return hostutil.CheckBaseURL(cfg.BaseURL)
}

func loadFromFile(cfg *Config, path string, source Source) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		slog.Warn("skipping malformed config", "path", path, "error", err)
		return
	}

	// base_url controls where tokens are sent, so a config file dropped into
	// the working directory must not set it.
	if v, ok := fileCfg["base_url"].(string); ok && v != "" {
		if source == SourceLocal {
			slog.Warn("ignoring base_url from local config", "path", path, "value", v)
		} else {
			cfg.BaseURL = v
			cfg.Sources["base_url"] = string(source)
		}
	}
	if v := getStringOrNumber(fileCfg, "company_id"); v != "" {
		cfg.CompanyID = v
		cfg.Sources["company_id"] = string(source)
	}
	if v, ok := fileCfg["state_dir"].(string); ok && v != "" {
		cfg.StateDir = v
		cfg.Sources["state_dir"] = string(source)
	}
	if v, ok := fileCfg["format"].(string); ok && v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(source)
	}
	if v, ok := fileCfg["locale"].(string); ok && v != "" {
		cfg.Locale = v
		cfg.Sources["locale"] = string(source)
	}
	if v, ok := fileCfg["log_level"].(string); ok && v != "" {
		cfg.LogLevel = v
		cfg.Sources["log_level"] = string(source)
	}
	if v, ok := fileCfg["otlp_endpoint"].(string); ok && v != "" {
		cfg.OTLPEndpoint = v
		cfg.Sources["otlp_endpoint"] = string(source)
	}
	if v, ok := fileCfg["timeout"].(string); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("ignoring invalid timeout", "path", path, "value", v)
		} else {
			cfg.Timeout = d
			cfg.Sources["timeout"] = string(source)
		}
	}
}

// readDotenv reads KEY=value pairs from path. A missing file is not an error.
func readDotenv(path string) (map[string]string, error) {
	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vals, nil
}

// envMap merges the process environment over .env values; real environment
// variables always win.
func envMap(dotenv map[string]string) map[string]string {
	m := env.ToMap(os.Environ())
	for k, v := range dotenv {
		if _, set := m[k]; !set {
			m[k] = v
		}
	}
	return m
}

// loadFromEnv applies SHOOTPLAN_* values from environ. Keys present only
// in dotenv are recorded with SourceDotenv.
func loadFromEnv(cfg *Config, environ map[string]string, dotenv map[string]string) error {
	var e envConfig
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	source := func(name string) string {
		key := EnvPrefix + name
		if _, fromFile := dotenv[key]; fromFile && os.Getenv(key) == "" {
			return string(SourceDotenv)
		}
		return string(SourceEnv)
	}
	set := func(dst *string, v, cfgKey, envName string) {
		if v == "" {
			return
		}
		*dst = v
		cfg.Sources[cfgKey] = source(envName)
	}

	set(&cfg.BaseURL, e.BaseURL, "base_url", "BASE_URL")
	set(&cfg.CompanyID, e.CompanyID, "company_id", "COMPANY_ID")
	set(&cfg.StateDir, e.StateDir, "state_dir", "STATE_DIR")
	set(&cfg.Format, e.Format, "format", "FORMAT")
	set(&cfg.LogLevel, e.LogLevel, "log_level", "LOG_LEVEL")
	set(&cfg.Locale, e.Locale, "locale", "LOCALE")
	set(&cfg.OTLPEndpoint, e.OTLPEndpoint, "otlp_endpoint", "OTLP_ENDPOINT")
	if e.Timeout != nil {
		cfg.Timeout = *e.Timeout
		cfg.Sources["timeout"] = source("TIMEOUT")
	}
	return nil
}

// getStringOrNumber extracts a value that may be either a string or number in JSON.
func getStringOrNumber(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return ""
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.Company != "" {
		cfg.CompanyID = o.Company
		cfg.Sources["company_id"] = string(SourceFlag)
	}
	if o.StateDir != "" {
		cfg.StateDir = o.StateDir
		cfg.Sources["state_dir"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
		cfg.Sources["log_level"] = string(SourceFlag)
	}
}

// Source returns where key was set, or "default".
func (cfg *Config) Source(key string) string {
	if s, ok := cfg.Sources[key]; ok {
		return s
	}
	return string(SourceDefault)
}

// Path helpers

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// localConfigPath returns .shootplan/config.json in the working directory.
// Parent directories are never searched.
func localConfigPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ".shootplan", "config.json")
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "shootplan")
}

// NormalizeBaseURL adds a scheme to a bare host and drops any trailing
// slash.
func NormalizeBaseURL(url string) string {
	return hostutil.Normalize(url)
}
