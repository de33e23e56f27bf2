package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the export tool
type Config struct {
	// Lightspeed API connection settings
	Lightspeed LightspeedConfig `yaml:"lightspeed" json:"lightspeed"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry behavior for transient API failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Export session settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LightspeedConfig holds API connection settings
type LightspeedConfig struct {
	// Domain is the retailer domain, e.g. "store.vendhq.com"
	Domain     string        `yaml:"domain" json:"domain"`
	Token      string        `yaml:"token" json:"token"`
	APIVersion string        `yaml:"api_version" json:"api_version"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
}

// RetryConfig holds retry/backoff configuration
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// ExportConfig holds export session settings
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	PageSize  int    `yaml:"page_size" json:"page_size"`
	// Endpoints overrides the default export order when non-empty
	Endpoints []string `yaml:"endpoints" json:"endpoints"`
	// AnomalyThreshold is the number of consecutive non-progressing pages
	// tolerated before the endpoint is aborted
	AnomalyThreshold int `yaml:"anomaly_threshold" json:"anomaly_threshold"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Lightspeed: LightspeedConfig{
			APIVersion: "2.0",
			Timeout:    30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
		},
		Retry: RetryConfig{
			MaxAttempts:  4,
			BaseDelay:    1 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Export: ExportConfig{
			OutputDir:        "./exports",
			PageSize:         200,
			AnomalyThreshold: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then config file,
// then .env, then environment variables, then command-line flags.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}

	// .env is optional, matching the original operator workflow
	_ = godotenv.Load()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	cfg.ApplyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file. An empty path means
// "use the default locations"; a missing default file is not an error.
func (c *Config) LoadFromFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables.
// LIGHTSPEED_DOMAIN, LIGHTSPEED_TOKEN and OUTPUT_DIR keep the names the
// original export scripts used.
func (c *Config) LoadFromEnv() error {
	if domain := os.Getenv("LIGHTSPEED_DOMAIN"); domain != "" {
		c.Lightspeed.Domain = domain
	}
	if token := os.Getenv("LIGHTSPEED_TOKEN"); token != "" {
		c.Lightspeed.Token = token
	}
	if outputDir := os.Getenv("OUTPUT_DIR"); outputDir != "" {
		c.Export.OutputDir = outputDir
	}
	if pageSize := os.Getenv("LSEXPORT_PAGE_SIZE"); pageSize != "" {
		if val, err := strconv.Atoi(pageSize); err == nil && val > 0 {
			c.Export.PageSize = val
		}
	}
	if rps := os.Getenv("LSEXPORT_REQUESTS_PER_SECOND"); rps != "" {
		if val, err := strconv.Atoi(rps); err == nil && val > 0 {
			c.RateLimit.RequestsPerSecond = val
		}
	}
	if attempts := os.Getenv("LSEXPORT_MAX_RETRIES"); attempts != "" {
		if val, err := strconv.Atoi(attempts); err == nil && val > 0 {
			c.Retry.MaxAttempts = val
		}
	}
	if level := os.Getenv("LSEXPORT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// ApplyFlags applies command-line flag overrides
func (c *Config) ApplyFlags(flags map[string]interface{}) {
	if flags == nil {
		return
	}
	if v, ok := flags["domain"].(string); ok && v != "" {
		c.Lightspeed.Domain = v
	}
	if v, ok := flags["token"].(string); ok && v != "" {
		c.Lightspeed.Token = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Export.OutputDir = v
	}
	if v, ok := flags["page-size"].(int); ok && v > 0 {
		c.Export.PageSize = v
	}
	if v, ok := flags["max-retries"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["endpoints"].([]string); ok && len(v) > 0 {
		c.Export.Endpoints = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for missing or inconsistent values
func (c *Config) Validate() error {
	var errs []string

	if c.Lightspeed.Domain == "" {
		errs = append(errs, "lightspeed domain is required (LIGHTSPEED_DOMAIN)")
	}
	if strings.Contains(c.Lightspeed.Domain, "://") {
		errs = append(errs, "lightspeed domain must be a bare host, not a URL")
	}
	if c.Export.PageSize <= 0 {
		errs = append(errs, "export page_size must be positive")
	}
	if c.Export.OutputDir == "" {
		errs = append(errs, "export output_dir is required")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, "rate_limit requests_per_second must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "retry max_attempts must be positive")
	}
	if c.Export.AnomalyThreshold <= 0 {
		errs = append(errs, "export anomaly_threshold must be positive")
	}

	if len(errs) > 0 {
		return errors.New("invalid configuration: " + strings.Join(errs, "; "))
	}
	return nil
}

// SaveToFile writes the configuration as YAML
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// findConfigFile checks the default config file locations
func findConfigFile() string {
	candidates := []string{"lsexport.yaml", "lsexport.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".lsexport.yaml"),
			filepath.Join(home, ".config", "lsexport", "config.yaml"),
		)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
