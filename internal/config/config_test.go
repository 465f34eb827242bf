package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.BaseURL != "https://api.deepseek.com" {
		t.Errorf("Expected BaseURL to be https://api.deepseek.com, got %s", cfg.Model.BaseURL)
	}

	if cfg.Model.Model != "deepseek-chat" {
		t.Errorf("Expected Model to be deepseek-chat, got %s", cfg.Model.Model)
	}

	if cfg.Memory.RetrievalLimit != 5 {
		t.Errorf("Expected RetrievalLimit to be 5, got %d", cfg.Memory.RetrievalLimit)
	}

	if cfg.Memory.OverwriteThreshold != 0.7 {
		t.Errorf("Expected OverwriteThreshold to be 0.7, got %f", cfg.Memory.OverwriteThreshold)
	}

	if cfg.Session.Language != "en" {
		t.Errorf("Expected Language to be en, got %s", cfg.Session.Language)
	}

	if cfg.Session.HistoryWindow != 6 {
		t.Errorf("Expected HistoryWindow to be 6, got %d", cfg.Session.HistoryWindow)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Memory.DBPath = "/tmp/daymate-test.db"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"empty model base_url", func(c *Config) { c.Model.BaseURL = "" }, true},
		{"empty model name", func(c *Config) { c.Model.Model = "" }, true},
		{"temperature too high", func(c *Config) { c.Model.Temperature = 2.5 }, true},
		{"zero max_tokens", func(c *Config) { c.Model.MaxTokens = 0 }, true},
		{"zero model timeout", func(c *Config) { c.Model.TimeoutSeconds = 0 }, true},
		{"empty embedding base_url", func(c *Config) { c.Embedding.BaseURL = "" }, true},
		{"zero embedding dimension", func(c *Config) { c.Embedding.Dimension = 0 }, true},
		{"empty db_path", func(c *Config) { c.Memory.DBPath = "" }, true},
		{"zero retrieval_limit", func(c *Config) { c.Memory.RetrievalLimit = 0 }, true},
		{"overwrite_threshold above 1", func(c *Config) { c.Memory.OverwriteThreshold = 1.2 }, true},
		{"unsupported language", func(c *Config) { c.Session.Language = "fr" }, true},
		{"zero history_window", func(c *Config) { c.Session.HistoryWindow = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "daymate-config-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)
	defer SetConfigDir("")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Model.Model != "deepseek-chat" {
		t.Errorf("Expected default model, got %s", cfg.Model.Model)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "config.yaml")); err != nil {
		t.Errorf("Expected config file to be created: %v", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "daymate-config-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)
	defer SetConfigDir("")

	cfg := DefaultConfig()
	cfg.Session.Language = "zh"
	cfg.Session.CharacterName = "小月"
	cfg.Memory.RetrievalLimit = 3

	if err := Save(cfg); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if loaded.Session.Language != "zh" {
		t.Errorf("Expected language zh, got %s", loaded.Session.Language)
	}
	if loaded.Session.CharacterName != "小月" {
		t.Errorf("Expected character name 小月, got %s", loaded.Session.CharacterName)
	}
	if loaded.Memory.RetrievalLimit != 3 {
		t.Errorf("Expected retrieval limit 3, got %d", loaded.Memory.RetrievalLimit)
	}
}

func TestIsAPIKeyConfigured(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IsAPIKeyConfigured() {
		t.Error("Expected API key to be unconfigured by default")
	}

	cfg.Model.APIKey = "sk-test"
	if !cfg.IsAPIKeyConfigured() {
		t.Error("Expected API key to be configured")
	}
}
