package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envConfigPath = "OUTREACH_CONFIG"
	envProvider   = "OUTREACH_PROVIDER"
	envModel      = "OUTREACH_MODEL"
	envSMTPHost   = "OUTREACH_SMTP_HOST"
	envSMTPPort   = "OUTREACH_SMTP_PORT"
)

const (
	DefaultProvider           = "groq"
	DefaultModel              = "llama-3.1-70b-versatile"
	DefaultTemperature        = 0.7
	DefaultMaxTokens          = 1000
	DefaultRelayHost          = "smtp.gmail.com"
	DefaultRelayPort          = 587
	DefaultRelayTimeout       = 30
	DefaultRelayAddressEnv    = "OUTREACH_SMTP_ADDRESS"
	DefaultRelaySecretEnv     = "OUTREACH_SMTP_SECRET"
	DefaultDeliveryConcurrent = 1
)

// Config is the root runtime configuration loaded from config.json or config.yaml.
type Config struct {
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Providers  ProvidersConfig  `json:"providers" yaml:"providers"`
	Relay      RelayConfig      `json:"relay" yaml:"relay"`
	Delivery   DeliveryConfig   `json:"delivery" yaml:"delivery"`
	Logging    LoggingConfig    `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	Level     string `json:"level,omitempty" yaml:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty" yaml:"add_source,omitempty"`
}

// GenerationConfig describes which completion provider writes the email and how.
type GenerationConfig struct {
	Provider                string  `json:"provider" yaml:"provider"`
	Model                   string  `json:"model" yaml:"model"`
	MaxTokens               int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature             *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	PersonalizePerRecipient *bool   `json:"personalize_per_recipient,omitempty" yaml:"personalize_per_recipient,omitempty"`
}

// SamplingTemperature returns the configured temperature, or the default when
// none is set. An explicit 0 is kept.
func (g GenerationConfig) SamplingTemperature() float64 {
	if g.Temperature == nil || *g.Temperature < 0 {
		return DefaultTemperature
	}

	return *g.Temperature
}

// Personalize reports whether content is regenerated for every recipient.
func (g GenerationConfig) Personalize() bool {
	if g.PersonalizePerRecipient == nil {
		return true
	}

	return *g.PersonalizePerRecipient
}

// ProvidersConfig stores per-provider connection settings.
type ProvidersConfig struct {
	OpenAI   OpenAIProviderConfig   `json:"openai" yaml:"openai"`
	Groq     OpenAIProviderConfig   `json:"groq" yaml:"groq"`
	Gemini   GeminiProviderConfig   `json:"gemini" yaml:"gemini"`
	OpenCode OpenCodeProviderConfig `json:"opencode" yaml:"opencode"`
}

// OpenAIProviderConfig configures an OpenAI-compatible chat completions endpoint.
type OpenAIProviderConfig struct {
	BaseURL               string `json:"base_url" yaml:"base_url"`
	APIKeyEnv             string `json:"api_key_env" yaml:"api_key_env"`
	Organization          string `json:"organization" yaml:"organization"`
	Project               string `json:"project" yaml:"project"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// GeminiProviderConfig configures the Gemini API client.
type GeminiProviderConfig struct {
	BaseURL               string `json:"base_url" yaml:"base_url"`
	APIKeyEnv             string `json:"api_key_env" yaml:"api_key_env"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// OpenCodeProviderConfig configures the OpenCode provider client.
type OpenCodeProviderConfig struct {
	BaseURL               string `json:"base_url" yaml:"base_url"`
	Username              string `json:"username" yaml:"username"`
	PasswordEnv           string `json:"password_env" yaml:"password_env"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// RelayConfig configures the SMTP submission relay.
type RelayConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	FromName       string `json:"from_name" yaml:"from_name"`
	AddressEnv     string `json:"address_env" yaml:"address_env"`
	SecretEnv      string `json:"secret_env" yaml:"secret_env"`
}

// DeliveryConfig controls how a batch of recipients is processed.
type DeliveryConfig struct {
	Concurrency        int     `json:"concurrency" yaml:"concurrency"`
	RateLimitPerMinute float64 `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
}

// defaultModels maps each provider to a model it actually serves.
var defaultModels = map[string]string{
	"groq":     DefaultModel,
	"openai":   "gpt-4o-mini",
	"gemini":   "gemini-2.5-flash",
	"opencode": "openai/gpt-4o-mini",
	"fantasy":  "openai/gpt-4o-mini",
}

// DefaultModelFor returns the default model of provider, falling back to the
// Groq default for unknown ids.
func DefaultModelFor(provider string) string {
	if model, ok := defaultModels[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return model
	}

	return DefaultModel
}

// Default returns a configuration that talks to Groq and the Gmail relay.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the config at path, or discovers it when path is empty.
//
// A .env file in the working directory is loaded first so that secrets and
// overrides can live next to the config without being exported by hand.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	configPath := strings.TrimSpace(path)
	if configPath == "" {
		found, err := findConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = found
	}

	cfg := &Config{}
	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := unmarshal(configPath, content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func unmarshal(path string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(content, cfg)
	default:
		return json.Unmarshal(content, cfg)
	}
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if provider := strings.TrimSpace(os.Getenv(envProvider)); provider != "" {
		cfg.Generation.Provider = provider
	}
	if model := strings.TrimSpace(os.Getenv(envModel)); model != "" {
		cfg.Generation.Model = model
	}
	if host := strings.TrimSpace(os.Getenv(envSMTPHost)); host != "" {
		cfg.Relay.Host = host
	}
	if rawPort := strings.TrimSpace(os.Getenv(envSMTPPort)); rawPort != "" {
		if port, err := strconv.Atoi(rawPort); err == nil && port > 0 {
			cfg.Relay.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Generation.Provider) == "" {
		cfg.Generation.Provider = DefaultProvider
	}
	if strings.TrimSpace(cfg.Generation.Model) == "" {
		cfg.Generation.Model = DefaultModelFor(cfg.Generation.Provider)
	}
	if cfg.Generation.Temperature == nil || *cfg.Generation.Temperature < 0 {
		temperature := DefaultTemperature
		cfg.Generation.Temperature = &temperature
	}
	if cfg.Generation.MaxTokens <= 0 {
		cfg.Generation.MaxTokens = DefaultMaxTokens
	}

	if strings.TrimSpace(cfg.Relay.Host) == "" {
		cfg.Relay.Host = DefaultRelayHost
	}
	if cfg.Relay.Port <= 0 {
		cfg.Relay.Port = DefaultRelayPort
	}
	if cfg.Relay.TimeoutSeconds <= 0 {
		cfg.Relay.TimeoutSeconds = DefaultRelayTimeout
	}
	if strings.TrimSpace(cfg.Relay.AddressEnv) == "" {
		cfg.Relay.AddressEnv = DefaultRelayAddressEnv
	}
	if strings.TrimSpace(cfg.Relay.SecretEnv) == "" {
		cfg.Relay.SecretEnv = DefaultRelaySecretEnv
	}

	if cfg.Delivery.Concurrency <= 0 {
		cfg.Delivery.Concurrency = DefaultDeliveryConcurrent
	}
	if cfg.Delivery.RateLimitPerMinute < 0 {
		cfg.Delivery.RateLimitPerMinute = 0
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is OUTREACH_CONFIG first, then cwd-local fallback paths. An empty
// path with a nil error means no file exists and defaults apply.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config.yaml"),
		filepath.Join(cwd, "config", "config.json"),
		filepath.Join(cwd, "config", "config.yaml"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
