// Package config provides application-wide configuration loaded from env vars
// and an optional YAML file. All fields have safe defaults so the binary runs
// locally without any setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// User creation operating modes. Fixed per process, never switched per request.
const (
	UserModeSandbox = "sandbox"
	UserModeSystem  = "system"
)

// Config holds runtime configuration for toolgate.
type Config struct {
	// HTTP
	Host string `yaml:"host"` // TOOLGATE_HOST — default: "0.0.0.0"
	Port int    `yaml:"port"` // TOOLGATE_PORT — default: 8080

	// Storage
	DBPath        string `yaml:"db_path"`        // TOOLGATE_DB_PATH — default: "toolgate.db"
	WorkspaceRoot string `yaml:"workspace_root"` // TOOLGATE_WORKSPACE — default: "./workspace"

	// Model backend
	OllamaBaseURL   string `yaml:"ollama_base_url"`   // OLLAMA_BASE_URL — default: "http://localhost:11434"
	OllamaChatModel string `yaml:"ollama_chat_model"` // OLLAMA_CHAT_MODEL — default: "llama3.2:3b"

	// Model call budget
	ModelTimeoutSeconds int `yaml:"model_timeout_seconds"` // TOOLGATE_MODEL_TIMEOUT — default: 30
	ModelMaxTokens      int `yaml:"model_max_tokens"`      // TOOLGATE_MODEL_MAX_TOKENS — default: 256

	// User registry mode: "sandbox" or "system"
	UserMode string `yaml:"user_mode"` // TOOLGATE_USER_MODE — default: "sandbox"
}

const (
	envKeyHost           = "TOOLGATE_HOST"
	envKeyPort           = "TOOLGATE_PORT"
	envKeyDBPath         = "TOOLGATE_DB_PATH"
	envKeyWorkspace      = "TOOLGATE_WORKSPACE"
	envKeyOllamaBaseURL  = "OLLAMA_BASE_URL"
	envKeyOllamaModel    = "OLLAMA_CHAT_MODEL"
	envKeyModelTimeout   = "TOOLGATE_MODEL_TIMEOUT"
	envKeyModelMaxTokens = "TOOLGATE_MODEL_MAX_TOKENS"
	envKeyUserMode       = "TOOLGATE_USER_MODE"
)

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		Host:                "0.0.0.0",
		Port:                8080,
		DBPath:              "toolgate.db",
		WorkspaceRoot:       "./workspace",
		OllamaBaseURL:       "http://localhost:11434",
		OllamaChatModel:     "llama3.2:3b",
		ModelTimeoutSeconds: 30,
		ModelMaxTokens:      256,
		UserMode:            UserModeSandbox,
	}
}

// Load reads configuration from environment variables over the defaults.
func Load() (Config, error) {
	cfg := Default()
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file over the defaults, then applies env vars
// on top (env wins, so a deployment can override a checked-in file).
func LoadFile(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}

	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ModelTimeout returns the hard wall-clock budget for a single model call.
func (c Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) validate() error {
	if c.UserMode != UserModeSandbox && c.UserMode != UserModeSystem {
		return fmt.Errorf("config: user_mode must be %q or %q, got %q", UserModeSandbox, UserModeSystem, c.UserMode)
	}
	if c.ModelTimeoutSeconds <= 0 {
		return fmt.Errorf("config: model_timeout_seconds must be positive, got %d", c.ModelTimeoutSeconds)
	}
	if c.ModelMaxTokens <= 0 {
		return fmt.Errorf("config: model_max_tokens must be positive, got %d", c.ModelMaxTokens)
	}
	if strings.TrimSpace(c.WorkspaceRoot) == "" {
		return errors.New("config: workspace_root must not be empty")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Host = envOr(envKeyHost, cfg.Host)
	cfg.Port = envIntOr(envKeyPort, cfg.Port)
	cfg.DBPath = envOr(envKeyDBPath, cfg.DBPath)
	cfg.WorkspaceRoot = envOr(envKeyWorkspace, cfg.WorkspaceRoot)
	cfg.OllamaBaseURL = envOr(envKeyOllamaBaseURL, cfg.OllamaBaseURL)
	cfg.OllamaChatModel = envOr(envKeyOllamaModel, cfg.OllamaChatModel)
	cfg.ModelTimeoutSeconds = envIntOr(envKeyModelTimeout, cfg.ModelTimeoutSeconds)
	cfg.ModelMaxTokens = envIntOr(envKeyModelMaxTokens, cfg.ModelMaxTokens)
	cfg.UserMode = envOr(envKeyUserMode, cfg.UserMode)
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr parses the environment variable as an int, or returns fallback.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
