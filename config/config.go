package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Matching  MatchingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AIConfig holds the external vision/text-generation service configuration
type AIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	VisionModel string `mapstructure:"vision_model"`
}

// DatabaseConfig holds the SQLite database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig holds receipt image storage configuration
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// CacheConfig holds the generic-name pin cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// MatchingConfig holds alternative-search configuration
type MatchingConfig struct {
	CandidateLimit     int `mapstructure:"candidate_limit"`
	AlternativeWorkers int `mapstructure:"alternative_workers"`
	LookbackDays       int `mapstructure:"lookback_days"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int     `mapstructure:"per_ip"`
	AI    float64 `mapstructure:"ai"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/receipt-analysis/")

	v.SetEnvPrefix("RECEIPTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Empty default registers the key so AutomaticEnv can fill it during Unmarshal
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.vision_model", "gpt-4o-mini")

	v.SetDefault("database.path", "receipts.db")
	v.SetDefault("storage.dir", "uploads")

	v.SetDefault("cache.ttl", "720h") // 30 days

	v.SetDefault("matching.candidate_limit", 5)
	v.SetDefault("matching.alternative_workers", 2)
	v.SetDefault("matching.lookback_days", 30)

	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.ai", 1.0)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required (set RECEIPTS_AI_API_KEY)")
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if config.Matching.CandidateLimit <= 0 {
		return fmt.Errorf("matching candidate limit must be positive, got: %d", config.Matching.CandidateLimit)
	}

	if config.Matching.LookbackDays <= 0 {
		return fmt.Errorf("matching lookback days must be positive, got: %d", config.Matching.LookbackDays)
	}

	return nil
}
