package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHAT_ASSISTANT_DIR", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_BASE_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseDir != dir {
		t.Errorf("Expected base dir %q, got %q", dir, cfg.BaseDir)
	}
	if cfg.TemplatesDir != filepath.Join(dir, "templates") {
		t.Errorf("Unexpected templates dir %q", cfg.TemplatesDir)
	}
	if cfg.SessionsDir != filepath.Join(dir, "sessions") {
		t.Errorf("Unexpected sessions dir %q", cfg.SessionsDir)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHAT_ASSISTANT_DIR", dir)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_BASE_URL", "")

	configYAML := `
openai:
  api_key: file-key
  model: gpt-4o
  temperature: 0.5
templates_dir: ` + filepath.Join(dir, "custom-templates") + `
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Environment wins over the file for the API key.
	if cfg.OpenAI.APIKey != "env-key" {
		t.Errorf("Expected env API key, got %q", cfg.OpenAI.APIKey)
	}
	// File values that the environment leaves alone survive.
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("Expected model from file, got %q", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.Temperature != 0.5 {
		t.Errorf("Expected temperature from file, got %v", cfg.OpenAI.Temperature)
	}
	if cfg.TemplatesDir != filepath.Join(dir, "custom-templates") {
		t.Errorf("Expected templates dir from file, got %q", cfg.TemplatesDir)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHAT_ASSISTANT_DIR", dir)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("openai: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected an error for invalid YAML")
	}
}
