// Package config loads server settings from the environment and an optional
// YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	// HTTP Server
	Port       string `yaml:"port"`
	StaticPath string `yaml:"static_path"`

	// Archive storage: "memory" or "sqlite"
	DataBackend string `yaml:"data_backend"`
	DBPath      string `yaml:"db_path"`

	// Initial members of the first bill
	InitialMembers []string `yaml:"initial_members"`

	Anthropic AnthropicConfig `yaml:"anthropic"`
	Redis     RedisConfig     `yaml:"redis"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// AnthropicConfig configures receipt analysis. An empty APIKey disables it.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// RedisConfig configures the analysis cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Load reads the configuration from environment variables. If CONFIG_FILE is
// set, the YAML file it names is applied on top.
func Load() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		StaticPath: getEnv("STATIC_PATH", "./static"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DBPath:      getEnv("DB_PATH", "./data/onecount.db"),

		InitialMembers: getEnvList("INITIAL_MEMBERS", []string{"Me"}),

		Anthropic: AnthropicConfig{
			APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
			Model:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
			MaxTokens: getEnvInt("ANTHROPIC_MAX_TOKENS", 2048),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("ANALYSIS_CACHE_TTL", 24*time.Hour),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ApplyFile overlays the YAML file at path. Keys missing from the file keep
// their current values; ${VAR} references are expanded from the environment.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.DBPath == "" {
			errors = append(errors, "database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.Anthropic.APIKey != "" && c.Anthropic.MaxTokens < 1 {
		errors = append(errors, fmt.Sprintf("invalid max tokens %d: must be at least 1", c.Anthropic.MaxTokens))
	}

	if c.Redis.DB < 0 {
		errors = append(errors, fmt.Sprintf("invalid redis db %d: must not be negative", c.Redis.DB))
	}
	if c.Redis.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.Redis.CacheTTL))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AnalysisEnabled reports whether an Anthropic API key is configured.
func (c *Config) AnalysisEnabled() bool {
	return strings.TrimSpace(c.Anthropic.APIKey) != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blank entries.
func getEnvList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
