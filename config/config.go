// Package config loads nemo-agent settings from a YAML file with an
// environment variable overlay.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the per-user config file, looked up in the home
// directory.
const DefaultFileName = ".nemo-agent.yaml"

// Config captures every knob shared across CLI runs. File values
// override the defaults and environment variables override the file.
type Config struct {
	Provider string `yaml:"provider" env:"NEMO_PROVIDER"`
	Model    string `yaml:"model" env:"NEMO_MODEL"`

	OllamaEndpoint  string `yaml:"ollama_endpoint" env:"OLLAMA_HOST"`
	OpenAIAPIKey    string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`

	PylintThreshold     float64 `yaml:"pylint_threshold" env:"NEMO_PYLINT_THRESHOLD"`
	ComplexityThreshold int     `yaml:"complexity_threshold" env:"NEMO_COMPLEXITY_THRESHOLD"`
	CoverageThreshold   int     `yaml:"coverage_threshold" env:"NEMO_COVERAGE_THRESHOLD"`

	CommandTimeoutMs int  `yaml:"command_timeout_ms" env:"NEMO_COMMAND_TIMEOUT_MS"`
	Debug            bool `yaml:"debug" env:"NEMO_DEBUG"`
}

// Default returns the standard configuration: local Ollama with the
// stock thresholds.
func Default() Config {
	return Config{
		Provider:            "ollama",
		Model:               "mistral-nemo",
		OllamaEndpoint:      "http://localhost:11434",
		PylintThreshold:     7.0,
		ComplexityThreshold: 15,
		CoverageThreshold:   80,
		CommandTimeoutMs:    300000,
	}
}

// DefaultPath returns the per-user config file path.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Load reads path when it exists, then overlays environment variables.
// A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDefault loads from the per-user config file.
func LoadDefault() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), err
	}
	return Load(path)
}

// Normalize fills missing values and validates ranges.
func (c *Config) Normalize() error {
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.OllamaEndpoint == "" {
		c.OllamaEndpoint = "http://localhost:11434"
	}
	if c.PylintThreshold < 0 || c.PylintThreshold > 10 {
		return fmt.Errorf("pylint_threshold %.1f out of range [0, 10]", c.PylintThreshold)
	}
	if c.PylintThreshold == 0 {
		c.PylintThreshold = 7.0
	}
	if c.ComplexityThreshold < 0 {
		return fmt.Errorf("complexity_threshold %d must not be negative", c.ComplexityThreshold)
	}
	if c.ComplexityThreshold == 0 {
		c.ComplexityThreshold = 15
	}
	if c.CoverageThreshold < 0 || c.CoverageThreshold > 100 {
		return fmt.Errorf("coverage_threshold %d out of range [0, 100]", c.CoverageThreshold)
	}
	if c.CoverageThreshold == 0 {
		c.CoverageThreshold = 80
	}
	if c.CommandTimeoutMs <= 0 {
		c.CommandTimeoutMs = 300000
	}
	return nil
}

// APIKeyFor returns the credential configured for a provider and
// whether that provider requires one.
func (c Config) APIKeyFor(provider string) (string, bool) {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey, true
	case "claude":
		return c.AnthropicAPIKey, true
	default:
		return "", false
	}
}

// Save persists cfg for future runs, creating parent directories.
func Save(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("config path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
