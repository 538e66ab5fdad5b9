package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML server configuration. Env vars override the file.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Game struct {
		CountdownSeconds     int `yaml:"countdown_seconds"`
		RetentionMinutes     int `yaml:"retention_minutes"`
		SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	} `yaml:"game"`
	Database struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"database"`
	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.Game.CountdownSeconds = 3
	config.Game.RetentionMinutes = 10
	config.Game.SweepIntervalSeconds = 60
	config.NATS.SubjectPrefix = "game.events"
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Game.CountdownSeconds = getEnvAsInt("GAME_COUNTDOWN_SECONDS", config.Game.CountdownSeconds)
	config.Game.RetentionMinutes = getEnvAsInt("GAME_RETENTION_MINUTES", config.Game.RetentionMinutes)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	if getEnv("DB_ENABLED", "") == "true" {
		config.Database.Enabled = true
	}

	return config, nil
}

func (c *Config) retention() time.Duration {
	return time.Duration(c.Game.RetentionMinutes) * time.Minute
}

func (c *Config) sweepInterval() time.Duration {
	return time.Duration(c.Game.SweepIntervalSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
