// Package config resolves runtime configuration from an optional YAML file
// and environment variables. Environment variables win over the file; both
// win over defaults. The base directory defaults to ~/.chat-assistant and
// holds the templates and sessions directories.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/serbantica/Chat-Assistant/internal/errors"
)

// OpenAI holds completion API settings
type OpenAI struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Config is the resolved runtime configuration
type Config struct {
	BaseDir      string `yaml:"base_dir"`
	TemplatesDir string `yaml:"templates_dir"`
	SessionsDir  string `yaml:"sessions_dir"`

	OpenAI OpenAI `yaml:"openai"`
}

// Load resolves configuration. path may be empty, in which case
// <base>/config.yaml is read if it exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	baseDir := os.Getenv("CHAT_ASSISTANT_DIR")
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternalError, "cannot resolve home directory")
		}
		baseDir = filepath.Join(homeDir, ".chat-assistant")
	}
	cfg.BaseDir = baseDir

	if path == "" {
		path = filepath.Join(baseDir, "config.yaml")
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat,
				"config file "+path+" is not valid YAML")
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.StorageError("read config file", err)
	}

	// A base dir from the environment overrides one from the file.
	if envDir := os.Getenv("CHAT_ASSISTANT_DIR"); envDir != "" {
		cfg.BaseDir = envDir
	}
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = filepath.Join(cfg.BaseDir, "templates")
	}
	if cfg.SessionsDir == "" {
		cfg.SessionsDir = filepath.Join(cfg.BaseDir, "sessions")
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.OpenAI.Model = model
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.OpenAI.BaseURL = baseURL
	}

	return cfg, nil
}
