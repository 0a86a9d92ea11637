// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultPath = "config.yaml"

type Config struct {
	Http  HTTPConfig  `yaml:"http"`
	Log   LogConfig   `yaml:"log"`
	Model ModelConfig `yaml:"model"`
}

type HTTPConfig struct {
	Port           int             `yaml:"port"`
	Timeout        time.Duration   `yaml:"timeout"`
	MaxBodyBytes   int64           `yaml:"max_body_bytes"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	// MetricsStream is the push interval of /api/metrics/stream; 0 disables the route.
	MetricsStream time.Duration `yaml:"metrics_stream_interval"`
}

type RateLimitConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Capacity   int           `yaml:"capacity"`
	Refill     time.Duration `yaml:"refill"`
	MaxClients int           `yaml:"max_clients"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ModelConfig struct {
	Type  string `yaml:"type"`
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

func Default() *Config {
	return &Config{
		Http: HTTPConfig{
			Port:           8080,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   1 << 16,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:    true,
				Capacity:   30,
				Refill:     time.Minute,
				MaxClients: 4096,
			},
			MetricsStream: 5 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Model: ModelConfig{
			Type: "random_forest",
			Path: "models/random_forest_best_balanced_model.json",
		},
	}
}

// Load reads path over Default(). A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	config := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
			return config, nil
		}
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Http.MetricsStream < 0 {
		return errors.New("http.metrics_stream_interval must not be negative")
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Http.RateLimit.Enabled && (c.Http.RateLimit.Capacity <= 0 || c.Http.RateLimit.Refill <= 0 || c.Http.RateLimit.MaxClients <= 0) {
		return errors.New("http.rate_limit needs positive capacity, refill and max_clients")
	}
	return nil
}
