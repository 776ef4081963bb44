// Package config loads application settings from defaults, an optional YAML
// file, a .env file and COUNTDOWN_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TickInterval    time.Duration `yaml:"tick_interval"`
	DBPath          string        `yaml:"db_path"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
	DefaultDuration string        `yaml:"default_duration"`
	HistoryLimit    int           `yaml:"history_limit"`
}

func Default() *Config {
	return &Config{
		TickInterval:    time.Second,
		DBPath:          "countdown_tui.db",
		LogLevel:        "info",
		LogFile:         "countdown_tui.log",
		DefaultDuration: "00:05:00",
		HistoryLimit:    50,
	}
}

// Load builds the configuration. An empty path skips the YAML file; a missing
// .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := getEnv("COUNTDOWN_TICK_INTERVAL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COUNTDOWN_TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}
	c.DBPath = getEnv("COUNTDOWN_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("COUNTDOWN_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("COUNTDOWN_LOG_FILE", c.LogFile)
	c.DefaultDuration = getEnv("COUNTDOWN_DEFAULT_DURATION", c.DefaultDuration)
	limit, err := getEnvAsInt("COUNTDOWN_HISTORY_LIMIT", c.HistoryLimit)
	if err != nil {
		return fmt.Errorf("COUNTDOWN_HISTORY_LIMIT: %w", err)
	}
	c.HistoryLimit = limit
	return nil
}

func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.DBPath == "" {
		return errors.New("db path must not be empty")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}
