package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultClientConfigDir  = ".duplex-client"
	defaultClientConfigName = "config.yaml"
)

var errConfigNotFound = errors.New("client config not found")

// Config is the on-disk and flag-overridable configuration for the client
// executor runtime demo binary.
type Config struct {
	GatewayURL   string        `yaml:"gateway_url"`
	AuthToken    string        `yaml:"auth_token"`
	LogLevel     string        `yaml:"log_level"`
	LocalTimeout time.Duration `yaml:"local_timeout"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return defaultClientConfigName
	}
	return filepath.Join(home, defaultClientConfigDir, defaultClientConfigName)
}

func resolveConfigPath(explicit string) (string, bool) {
	if strings.TrimSpace(explicit) != "" {
		return expandUserPath(explicit), true
	}
	if env := strings.TrimSpace(os.Getenv("DUPLEX_CLIENT_CONFIG")); env != "" {
		return expandUserPath(env), true
	}
	defaultPath := defaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath, true
	}
	return defaultPath, false
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return path
}

func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errConfigNotFound
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func normalizeConfig(cfg Config) Config {
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		cfg.GatewayURL = "ws://localhost:8080/"
	}
	if cfg.LocalTimeout <= 0 {
		cfg.LocalTimeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}
