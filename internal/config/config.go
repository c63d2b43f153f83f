// Package config loads service configuration from AURORA_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"aurora-qa/internal/integrations/aurora"
	"aurora-qa/internal/logging"
)

// EnvPrefix is stripped from variable names; AURORA_CACHE_TTL maps to cache_ttl.
const EnvPrefix = "AURORA_"

type Config struct {
	MessagesURL       string        `koanf:"messages_url"`
	ParamPrefix       string        `koanf:"param_prefix"`
	FetchTimeout      time.Duration `koanf:"fetch_timeout"`
	FetchRetries      int           `koanf:"fetch_retries"`
	FetchRPS          float64       `koanf:"fetch_rps"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	MaxQuestionLength int           `koanf:"max_question_length"`
	SampleSize        int           `koanf:"sample_size"`
	LogLevel          string        `koanf:"log_level"`
	LogFormat         string        `koanf:"log_format"`
	HTTPAddr          string        `koanf:"http_addr"`
}

func defaults() map[string]any {
	return map[string]any{
		"messages_url":        aurora.DefaultMessagesURL,
		"param_prefix":        "",
		"fetch_timeout":       "10s",
		"fetch_retries":       3,
		"fetch_rps":           5.0,
		"cache_ttl":           "5m",
		"max_question_length": 300,
		"sample_size":         5,
		"log_level":           "info",
		"log_format":          logging.FormatJSON,
		"http_addr":           ":8000",
	}
}

// Load reads defaults, then the environment, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.MessagesURL = strings.TrimSpace(cfg.MessagesURL)
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.MessagesURL == "" && c.ParamPrefix == "" {
		errs = append(errs, errors.New("messages_url is required when param_prefix is not set"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if c.FetchRetries < 1 {
		errs = append(errs, fmt.Errorf("fetch_retries must be at least 1, got %d", c.FetchRetries))
	}
	if c.FetchRPS < 0 {
		errs = append(errs, fmt.Errorf("fetch_rps must not be negative, got %g", c.FetchRPS))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL))
	}
	if c.MaxQuestionLength < 1 {
		errs = append(errs, fmt.Errorf("max_question_length must be positive, got %d", c.MaxQuestionLength))
	}
	if c.SampleSize < 0 {
		errs = append(errs, fmt.Errorf("sample_size must not be negative, got %d", c.SampleSize))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("log_format must be %q or %q, got %q", logging.FormatJSON, logging.FormatConsole, c.LogFormat))
	}
	return errors.Join(errs...)
}
