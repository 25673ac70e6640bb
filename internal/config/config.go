// Package config loads and validates the attribution engine configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete attribution engine configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	SiteRoot string `json:"siteRoot" mapstructure:"siteRoot"`

	Scan      ScanConfig      `json:"scan" mapstructure:"scan"`
	Cache     CacheConfig     `json:"cache" mapstructure:"cache"`
	Scoring   ScoringConfig   `json:"scoring" mapstructure:"scoring"`
	Synthesis SynthesisConfig `json:"synthesis" mapstructure:"synthesis"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// ScanConfig contains quick/deep scan policy. The budget and ceiling values
// are policy constants inherited from operational experience, kept
// configurable on purpose.
type ScanConfig struct {
	QuickBudgetMs int `json:"quickBudgetMs" mapstructure:"quickBudgetMs"`
	BatchLimitMs  int `json:"batchLimitMs" mapstructure:"batchLimitMs"`
	BatchSize     int `json:"batchSize" mapstructure:"batchSize"`
	MaxDeepJobs   int `json:"maxDeepJobs" mapstructure:"maxDeepJobs"`
	StaleAfterMs  int `json:"staleAfterMs" mapstructure:"staleAfterMs"`
	JobTtlHours   int `json:"jobTtlHours" mapstructure:"jobTtlHours"`
}

// CacheConfig contains result cache policy
type CacheConfig struct {
	TtlSeconds             int `json:"ttlSeconds" mapstructure:"ttlSeconds"`
	CompressThresholdBytes int `json:"compressThresholdBytes" mapstructure:"compressThresholdBytes"`
	SweepIntervalSeconds   int `json:"sweepIntervalSeconds" mapstructure:"sweepIntervalSeconds"`
}

// ScoringConfig contains relevance scoring policy
type ScoringConfig struct {
	TopN           int     `json:"topN" mapstructure:"topN"`
	FuzzyThreshold float64 `json:"fuzzyThreshold" mapstructure:"fuzzyThreshold"`
}

// SynthesisConfig contains explanation synthesis settings
type SynthesisConfig struct {
	Provider    string `json:"provider" mapstructure:"provider"`
	Model       string `json:"model" mapstructure:"model"`
	TimeoutMs   int    `json:"timeoutMs" mapstructure:"timeoutMs"`
	TopEvidence int    `json:"topEvidence" mapstructure:"topEvidence"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		SiteRoot: ".",
		Scan: ScanConfig{
			QuickBudgetMs: 5000,
			BatchLimitMs:  30000,
			BatchSize:     25,
			MaxDeepJobs:   3,
			StaleAfterMs:  90000,
			JobTtlHours:   24,
		},
		Cache: CacheConfig{
			TtlSeconds:             3600,
			CompressThresholdBytes: 51200,
			SweepIntervalSeconds:   600,
		},
		Scoring: ScoringConfig{
			TopN:           20,
			FuzzyThreshold: 0.6,
		},
		Synthesis: SynthesisConfig{
			Provider:    "gemini",
			Model:       "gemini-1.5-flash",
			TimeoutMs:   15000,
			TopEvidence: 5,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <siteRoot>/.attrib/config.json,
// falling back to defaults when the file does not exist.
func LoadConfig(siteRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("siteRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(siteRoot, ".attrib"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.SiteRoot = siteRoot
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.SiteRoot == "." || cfg.SiteRoot == "" {
		cfg.SiteRoot = siteRoot
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to <siteRoot>/.attrib/config.json
func (c *Config) Save(siteRoot string) error {
	dir := filepath.Join(siteRoot, ".attrib")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Scan.QuickBudgetMs <= 0 {
		return &ConfigError{Field: "scan.quickBudgetMs", Message: "must be positive"}
	}
	if c.Scan.BatchLimitMs <= 0 {
		return &ConfigError{Field: "scan.batchLimitMs", Message: "must be positive"}
	}
	if c.Scan.BatchSize <= 0 {
		return &ConfigError{Field: "scan.batchSize", Message: "must be positive"}
	}
	if c.Scan.MaxDeepJobs <= 0 {
		return &ConfigError{Field: "scan.maxDeepJobs", Message: "must be positive"}
	}
	if c.Cache.CompressThresholdBytes < 0 {
		return &ConfigError{Field: "cache.compressThresholdBytes", Message: "must not be negative"}
	}
	if c.Scoring.TopN <= 0 {
		return &ConfigError{Field: "scoring.topN", Message: "must be positive"}
	}
	if c.Scoring.FuzzyThreshold < 0 || c.Scoring.FuzzyThreshold > 1 {
		return &ConfigError{Field: "scoring.fuzzyThreshold", Message: "must be within [0,1]"}
	}
	if c.Synthesis.TopEvidence <= 0 {
		return &ConfigError{Field: "synthesis.topEvidence", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s': %s", e.Field, e.Message)
}
