// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Checkpoint backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Config is the complete botwire configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	API        APIConfig        `yaml:"api"`
	Polling    PollingConfig    `yaml:"polling"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the sections that can be overridden per environment.
type ConfigOverrides struct {
	API        *APIConfig        `yaml:"api,omitempty"`
	Polling    *PollingConfig    `yaml:"polling,omitempty"`
	Dispatch   *DispatchConfig   `yaml:"dispatch,omitempty"`
	Checkpoint *CheckpointConfig `yaml:"checkpoint,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
	Metrics    *MetricsConfig    `yaml:"metrics,omitempty"`
}

// APIConfig configures the bot API endpoint and its credential.
type APIConfig struct {
	// BaseURL is the API root without a trailing slash.
	// Default: https://api.telegram.org
	BaseURL string `yaml:"base_url"`

	// TokenSource names where the bot token comes from: env:NAME,
	// file:PATH, sealed:PATH, keyring:SERVICE/USER or prompt.
	// Default: env:BOTWIRE_TOKEN
	TokenSource string `yaml:"token_source"`

	// IdentityFile is the age identity used to open a sealed token.
	IdentityFile string `yaml:"identity_file"`
}

// PollingConfig configures getUpdates.
type PollingConfig struct {
	// Limit is the maximum batch size, 1 to 100.
	Limit int `yaml:"limit"`

	// Timeout is how long the server may hold a poll open. It is sent
	// in whole seconds.
	Timeout time.Duration `yaml:"timeout"`

	// Grace is added to Timeout to bound the HTTP call on our side.
	Grace time.Duration `yaml:"grace"`

	// AllowedUpdates restricts the update kinds the server delivers.
	// Absent keeps the server's previous setting; an empty list means all.
	AllowedUpdates []string `yaml:"allowed_updates"`

	// InitialOffset is used when no checkpoint exists. A negative value
	// starts that many updates from the end of the queue.
	InitialOffset *int64 `yaml:"initial_offset"`
}

// DispatchConfig configures the driver loop.
type DispatchConfig struct {
	// Concurrency bounds parallel handler invocations. One keeps
	// strict update order.
	Concurrency int `yaml:"concurrency"`

	// Filter is an optional CEL expression; updates for which it is
	// false are acknowledged without running the handler.
	Filter string `yaml:"filter"`

	// InitialBackoff and MaxBackoff bound the retry delay after a
	// failed poll.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`

	// DropWebhook deletes any configured webhook before polling.
	DropWebhook bool `yaml:"drop_webhook"`

	// DropPendingUpdates discards the server's queue when the webhook
	// is deleted. Ignored unless DropWebhook is set.
	DropPendingUpdates bool `yaml:"drop_pending_updates"`
}

// CheckpointConfig configures offset persistence.
type CheckpointConfig struct {
	// Backend is one of memory, file, sqlite, redis, badger.
	Backend string `yaml:"backend"`

	// Path is the checkpoint file (file), database file (sqlite) or
	// directory (badger).
	Path string `yaml:"path"`

	// Key distinguishes bots sharing one sqlite, redis or badger store.
	Key string `yaml:"key"`

	// RedisAddr is host:port for the redis backend.
	RedisAddr string `yaml:"redis_addr"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text, json, or auto (text on a terminal, json otherwise).
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address for /metrics. Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// Default returns the default configuration, used as the base before
// loading the config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		API: APIConfig{
			BaseURL:     "https://api.telegram.org",
			TokenSource: "env:BOTWIRE_TOKEN",
		},
		Polling: PollingConfig{
			Limit:   100,
			Timeout: 30 * time.Second,
			Grace:   10 * time.Second,
		},
		Dispatch: DispatchConfig{
			Concurrency:    1,
			InitialBackoff: time.Second,
			MaxBackoff:     time.Minute,
		},
		Checkpoint: CheckpointConfig{
			Backend: BackendFile,
			Path:    "${HOME}/.local/state/botwire/offset.cbor",
			Key:     "default",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by BOTWIRE_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("BOTWIRE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BOTWIRE_CONFIG environment variable not set; " +
			"set it to the path of your botwire.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadOrDefault loads the file named by BOTWIRE_CONFIG when it is set
// and otherwise returns the defaults with variables expanded.
func LoadOrDefault() (*Config, error) {
	if os.Getenv("BOTWIRE_CONFIG") != "" {
		return Load()
	}
	cfg := Default()
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile decodes a single configuration file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides merges the section matching c.Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if api := overrides.API; api != nil {
		override(&c.API.BaseURL, api.BaseURL)
		override(&c.API.TokenSource, api.TokenSource)
		override(&c.API.IdentityFile, api.IdentityFile)
	}

	if polling := overrides.Polling; polling != nil {
		override(&c.Polling.Limit, polling.Limit)
		override(&c.Polling.Timeout, polling.Timeout)
		override(&c.Polling.Grace, polling.Grace)
		if polling.AllowedUpdates != nil {
			c.Polling.AllowedUpdates = polling.AllowedUpdates
		}
		if polling.InitialOffset != nil {
			c.Polling.InitialOffset = polling.InitialOffset
		}
	}

	if dispatch := overrides.Dispatch; dispatch != nil {
		override(&c.Dispatch.Concurrency, dispatch.Concurrency)
		override(&c.Dispatch.Filter, dispatch.Filter)
		override(&c.Dispatch.InitialBackoff, dispatch.InitialBackoff)
		override(&c.Dispatch.MaxBackoff, dispatch.MaxBackoff)
		// Bools are always applied from an override section.
		c.Dispatch.DropWebhook = dispatch.DropWebhook
		c.Dispatch.DropPendingUpdates = dispatch.DropPendingUpdates
	}

	if checkpoint := overrides.Checkpoint; checkpoint != nil {
		override(&c.Checkpoint.Backend, checkpoint.Backend)
		override(&c.Checkpoint.Path, checkpoint.Path)
		override(&c.Checkpoint.Key, checkpoint.Key)
		override(&c.Checkpoint.RedisAddr, checkpoint.RedisAddr)
	}

	if logging := overrides.Logging; logging != nil {
		override(&c.Logging.Level, logging.Level)
		override(&c.Logging.Format, logging.Format)
	}

	if metrics := overrides.Metrics; metrics != nil {
		override(&c.Metrics.Listen, metrics.Listen)
	}
}

// override replaces *target when value is not the zero value.
func override[T comparable](target *T, value T) {
	var zero T
	if value != zero {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path-like fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.API.TokenSource = expandVars(c.API.TokenSource, vars)
	c.API.IdentityFile = expandVars(c.API.IdentityFile, vars)
	c.Checkpoint.Path = expandVars(c.Checkpoint.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then the process environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if parsed, err := url.Parse(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("api.base_url must use http or https, got %q", parsed.Scheme))
	}

	if c.API.TokenSource == "" {
		errs = append(errs, errors.New("api.token_source is required"))
	}
	if strings.HasPrefix(c.API.TokenSource, "sealed:") && c.API.IdentityFile == "" {
		errs = append(errs, errors.New("api.identity_file is required for a sealed token source"))
	}

	if c.Polling.Limit < 1 || c.Polling.Limit > 100 {
		errs = append(errs, fmt.Errorf("polling.limit must be between 1 and 100, got %d", c.Polling.Limit))
	}
	if c.Polling.Timeout < 0 {
		errs = append(errs, fmt.Errorf("polling.timeout must not be negative, got %s", c.Polling.Timeout))
	} else if c.Polling.Timeout%time.Second != 0 {
		errs = append(errs, fmt.Errorf("polling.timeout must be a whole number of seconds, got %s", c.Polling.Timeout))
	}
	if c.Polling.Grace < 0 {
		errs = append(errs, fmt.Errorf("polling.grace must not be negative, got %s", c.Polling.Grace))
	}

	if c.Dispatch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("dispatch.concurrency must be at least 1, got %d", c.Dispatch.Concurrency))
	}
	if c.Dispatch.InitialBackoff <= 0 {
		errs = append(errs, errors.New("dispatch.initial_backoff must be positive"))
	}
	if c.Dispatch.MaxBackoff < c.Dispatch.InitialBackoff {
		errs = append(errs, fmt.Errorf("dispatch.max_backoff (%s) is below dispatch.initial_backoff (%s)",
			c.Dispatch.MaxBackoff, c.Dispatch.InitialBackoff))
	}

	backends := []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis, BackendBadger}
	switch {
	case !slices.Contains(backends, c.Checkpoint.Backend):
		errs = append(errs, fmt.Errorf("checkpoint.backend must be one of: %v", backends))
	case c.Checkpoint.Backend == BackendRedis && c.Checkpoint.RedisAddr == "":
		errs = append(errs, errors.New("checkpoint.redis_addr is required for the redis backend"))
	case c.Checkpoint.Backend != BackendMemory && c.Checkpoint.Backend != BackendRedis && c.Checkpoint.Path == "":
		errs = append(errs, fmt.Errorf("checkpoint.path is required for the %s backend", c.Checkpoint.Backend))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levels))
	}
	formats := []string{"text", "json", "auto"}
	if !slices.Contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	return errors.Join(errs...)
}
