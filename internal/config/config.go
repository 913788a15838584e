// Package config loads the server's YAML configuration file: the raw
// file is expanded against the process environment with os.ExpandEnv,
// then decoded with gopkg.in/yaml.v3 in KnownFields mode so a typo in
// the config file fails loudly instead of silently being ignored.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of the server's YAML configuration file.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig controls the websocket gateway listener and session defaults.
type ServerConfig struct {
	ListenAddr           string `yaml:"listen_addr"`
	SystemPrompt         string `yaml:"system_prompt"`
	DefaultToolTimeoutMs int    `yaml:"default_tool_timeout_ms"`
}

// LLMConfig selects and configures the provider adapter.
type LLMConfig struct {
	Provider   string `yaml:"provider"` // anthropic | openai | gemini
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	MaxRetries int    `yaml:"max_retries"`
}

// AuthConfig configures the JWT handshake verifier. Empty Secret disables
// authentication — the transport's connection id is then used verbatim.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`
}

// StorageConfig selects the session store backend.
type StorageConfig struct {
	Backend    string `yaml:"backend"` // memory | postgres
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ObservabilityConfig configures metrics and tracing export.
type ObservabilityConfig struct {
	MetricsAddr    string  `yaml:"metrics_addr"`
	TraceEndpoint  string  `yaml:"trace_endpoint"`
	TraceSampling  float64 `yaml:"trace_sampling"`
	LogLevel       string  `yaml:"log_level"`
	LogFormat      string  `yaml:"log_format"`
}

// Load reads path, expands ${VAR} references against the environment, and
// strictly decodes the result into a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected a single YAML document")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.DefaultToolTimeoutMs <= 0 {
		c.Server.DefaultToolTimeoutMs = 30000
	}
	if c.Server.SystemPrompt == "" {
		c.Server.SystemPrompt = "You are a helpful assistant with access to tools."
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 3
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogFormat == "" {
		c.Observability.LogFormat = "json"
	}
	if c.Observability.TraceSampling == 0 {
		c.Observability.TraceSampling = 1.0
	}
}
