// Package config loads process configuration from the environment, with an
// optional YAML file layered underneath and runtime settings merged from
// the database on top.
package config

import (
	"database/sql"
	"encoding/json"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        int      `yaml:"port"`
	DatabaseURL string   `yaml:"database_url"`
	RedisAddr   string   `yaml:"redis_addr"`
	DataDir     string   `yaml:"data_dir"`
	LogLevel    string   `yaml:"log_level"`
	RootFolders []string `yaml:"root_folders"`

	ScanSchedule    string `yaml:"scan_schedule"`
	CleanupSchedule string `yaml:"cleanup_schedule"`

	FilterExtras       bool `yaml:"filter_extras"`
	DeleteEmptyFolders bool `yaml:"delete_empty_folders"`
	WatchRootFolders   bool `yaml:"watch_root_folders"`

	Webhooks      []WebhookConfig      `yaml:"webhooks"`
	CustomFormats []CustomFormatConfig `yaml:"custom_formats"`
}

type WebhookConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	URL  string `yaml:"url"`
}

type CustomFormatConfig struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Score   int    `yaml:"score"`
}

// Load builds the config: defaults, then the YAML file named by
// SCENEVAULT_CONFIG (if any), then environment variables.
func Load() *Config {
	cfg := &Config{
		Port:            8080,
		DatabaseURL:     "postgres://scenevault:scenevault@db:5432/scenevault?sslmode=disable",
		RedisAddr:       "redis:6379",
		DataDir:         "/data",
		LogLevel:        "info",
		ScanSchedule:    "0 */6 * * *",
		CleanupSchedule: "30 3 * * *",
		FilterExtras:    true,
	}

	if path := os.Getenv("SCENEVAULT_CONFIG"); path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config: skipping config file")
		}
	}

	cfg.Port = envInt("PORT", cfg.Port)
	cfg.DatabaseURL = env("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = env("REDIS_ADDR", cfg.RedisAddr)
	cfg.DataDir = env("DATA_DIR", cfg.DataDir)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	return cfg
}

func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// MergeFromDB overlays settings an operator changed at runtime.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Warn().Err(err).Msg("config: skipping DB merge")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "scan.root_folders":
			var roots []string
			if err := json.Unmarshal([]byte(value), &roots); err == nil && len(roots) > 0 {
				c.RootFolders = roots
			}
		case "scan.filter_extras":
			if v, err := strconv.ParseBool(value); err == nil {
				c.FilterExtras = v
			}
		case "scan.delete_empty_folders":
			if v, err := strconv.ParseBool(value); err == nil {
				c.DeleteEmptyFolders = v
			}
		case "scan.schedule":
			c.ScanSchedule = value
		case "scan.cleanup_schedule":
			c.CleanupSchedule = value
		}
	}
}

// ScanRoots satisfies the scheduler's and watcher's root provider.
func (c *Config) ScanRoots() []string {
	return c.RootFolders
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
