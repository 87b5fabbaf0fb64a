// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rankeval/rank-eval/internal/dcg"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"RANKEVAL_HOST" yaml:"host"`
	Port int    `envconfig:"RANKEVAL_PORT" yaml:"port"`

	// Evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// History configuration
	History HistoryConfig `yaml:"history"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`
}

// EvalConfig holds evaluation settings.
type EvalConfig struct {
	// Cutoffs are the rank positions reported on. Empty means {1,2,3,4,5}.
	Cutoffs []int `envconfig:"RANKEVAL_CUTOFFS" yaml:"cutoffs"`

	// LabelGain overrides the per-label gain table. Empty means 2^i - 1.
	LabelGain []float64 `envconfig:"RANKEVAL_LABEL_GAIN" yaml:"label_gain"`

	// Workers bounds concurrent query evaluation.
	Workers int `envconfig:"RANKEVAL_EVAL_WORKERS" yaml:"workers"`

	// SkipInvalid skips queries failing validation instead of aborting.
	SkipInvalid bool `envconfig:"RANKEVAL_SKIP_INVALID" yaml:"skip_invalid"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type            string `envconfig:"RANKEVAL_BUS_TYPE" yaml:"type"`
	KafkaBrokers    string `envconfig:"RANKEVAL_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup      string `envconfig:"RANKEVAL_KAFKA_GROUP" yaml:"kafka_group"`
	EventLogPath    string `envconfig:"RANKEVAL_EVENT_LOG_PATH" yaml:"event_log_path"`
	EventLogEnabled bool   `envconfig:"RANKEVAL_EVENT_LOG_ENABLED" yaml:"event_log_enabled"`
}

// HistoryConfig holds run-history persistence settings.
type HistoryConfig struct {
	// RedisURL enables the Redis-backed history store when non-empty.
	RedisURL string `envconfig:"RANKEVAL_REDIS_URL" yaml:"redis_url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RANKEVAL_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RANKEVAL_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	RateLimit   int    `envconfig:"RANKEVAL_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
	CORSOrigins string `envconfig:"RANKEVAL_CORS_ORIGINS" yaml:"cors_origins"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Eval = EvalConfig{
		Workers: 4,
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:   0,
		CORSOrigins: "*",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	// Evaluation validation
	if _, err := dcg.DefaultEvalAt(c.Eval.Cutoffs); err != nil {
		errs = append(errs, fmt.Sprintf("invalid cutoffs: %v", err))
	}

	for i, gain := range c.Eval.LabelGain {
		if gain < 0 {
			errs = append(errs, fmt.Sprintf("label_gain[%d] must be non-negative, got %v", i, gain))
			break
		}
	}

	if c.Eval.Workers < 1 {
		errs = append(errs, "eval workers must be positive")
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && c.Bus.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers required for kafka bus")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	// Security validation
	if c.Security.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
