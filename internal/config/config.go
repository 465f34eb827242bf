package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ~/.daymate
func GetConfigDir() string {
	if !configDirInit {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configDir = filepath.Join(homeDir, ".daymate")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Memory    MemoryConfig    `yaml:"memory"`
	Session   SessionConfig   `yaml:"session"`
}

// ModelConfig LLM model configuration
type ModelConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// EmbeddingConfig embedding service configuration
type EmbeddingConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	Dimension      int    `yaml:"dimension"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// MemoryConfig memory store and retrieval configuration
type MemoryConfig struct {
	DBPath             string  `yaml:"db_path"`
	RetrievalLimit     int     `yaml:"retrieval_limit"`
	OverwriteThreshold float64 `yaml:"overwrite_threshold"`
}

// SessionConfig guided session configuration
type SessionConfig struct {
	DBPath        string `yaml:"db_path"`        // session/diary database
	Language      string `yaml:"language"`       // default conversation language: en / zh
	CharacterName string `yaml:"character_name"` // AI companion persona name
	Tone          string `yaml:"tone"`           // diary tone: reflective, warm, concise
	HistoryWindow int    `yaml:"history_window"` // conversation turns included in guide prompts
}

// Timeout returns the model request timeout as a duration
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Timeout returns the embedding request timeout as a duration
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Model: ModelConfig{
			APIKey:         "",
			BaseURL:        "https://api.deepseek.com",
			Model:          "deepseek-chat",
			Temperature:    0.8,
			MaxTokens:      1024,
			TimeoutSeconds: 60,
		},
		Embedding: EmbeddingConfig{
			APIKey:         "",
			BaseURL:        "https://api.deepseek.com",
			Model:          "deepseek-embedding",
			Dimension:      384,
			TimeoutSeconds: 15,
			MaxRetries:     2,
		},
		Memory: MemoryConfig{
			DBPath:             filepath.Join(homeDir, ".daymate", "daymate.db"),
			RetrievalLimit:     5,
			OverwriteThreshold: 0.7,
		},
		Session: SessionConfig{
			DBPath:        filepath.Join(homeDir, ".daymate", "sessions.db"),
			Language:      "en",
			CharacterName: "AI Assistant",
			Tone:          "reflective",
			HistoryWindow: 6,
		},
	}
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file, creating a default one if absent
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use default values as base
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides merges API keys from the environment when not set in the file
func applyEnvOverrides(cfg *Config) {
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("DAYMATE_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		if key := os.Getenv("DAYMATE_EMBEDDING_API_KEY"); key != "" {
			cfg.Embedding.APIKey = key
		} else {
			cfg.Embedding.APIKey = cfg.Model.APIKey
		}
	}
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	content := "# DayMate Configuration File\n# For more info: https://github.com/hession/daymate\n\n" + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Model.BaseURL == "" {
		return fmt.Errorf("config error: model.base_url cannot be empty")
	}
	if c.Model.Model == "" {
		return fmt.Errorf("config error: model.model cannot be empty")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("config error: model.temperature must be between 0 and 2")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("config error: model.max_tokens must be greater than 0")
	}
	if c.Model.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: model.timeout_seconds must be greater than 0")
	}

	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("config error: embedding.base_url cannot be empty")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("config error: embedding.dimension must be greater than 0")
	}

	if c.Memory.DBPath == "" {
		return fmt.Errorf("config error: memory.db_path cannot be empty")
	}
	if c.Memory.RetrievalLimit <= 0 {
		return fmt.Errorf("config error: memory.retrieval_limit must be greater than 0")
	}
	if c.Memory.OverwriteThreshold < 0 || c.Memory.OverwriteThreshold > 1 {
		return fmt.Errorf("config error: memory.overwrite_threshold must be between 0 and 1")
	}

	if c.Session.DBPath == "" {
		return fmt.Errorf("config error: session.db_path cannot be empty")
	}
	if c.Session.Language != "en" && c.Session.Language != "zh" {
		return fmt.Errorf("config error: session.language must be en or zh")
	}
	if c.Session.HistoryWindow <= 0 {
		return fmt.Errorf("config error: session.history_window must be greater than 0")
	}

	return nil
}

// IsAPIKeyConfigured checks if API key is configured
func (c *Config) IsAPIKeyConfigured() bool {
	return c.Model.APIKey != ""
}

// String returns string representation of config (hides sensitive info)
func (c *Config) String() string {
	apiKeyDisplay := "(not configured)"
	if c.Model.APIKey != "" {
		if len(c.Model.APIKey) > 8 {
			apiKeyDisplay = c.Model.APIKey[:8] + "..."
		} else {
			apiKeyDisplay = "***"
		}
	}

	return fmt.Sprintf(`Model:
  base_url: %s
  model: %s
  api_key: %s
  temperature: %.1f
  max_tokens: %d
Embedding:
  base_url: %s
  model: %s
  dimension: %d
Memory:
  db_path: %s
  retrieval_limit: %d
  overwrite_threshold: %.2f
Session:
  language: %s
  character_name: %s
  tone: %s`,
		c.Model.BaseURL, c.Model.Model, apiKeyDisplay, c.Model.Temperature, c.Model.MaxTokens,
		c.Embedding.BaseURL, c.Embedding.Model, c.Embedding.Dimension,
		c.Memory.DBPath, c.Memory.RetrievalLimit, c.Memory.OverwriteThreshold,
		c.Session.Language, c.Session.CharacterName, c.Session.Tone)
}
