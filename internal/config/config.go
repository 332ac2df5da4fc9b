// Package config loads valet configuration from the vault's .valet directory.
// JSON is the canonical format (.valet/config.json); a YAML file is accepted
// as a fallback for hand-edited configs. Environment variables override both.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all valet configuration.
type Config struct {
	// LLM collaborator configuration
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Session engine settings
	Session SessionConfig `json:"session" yaml:"session"`

	// Vault document names
	Vault VaultConfig `json:"vault" yaml:"vault"`

	// Logging
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LLMConfig configures the AI collaborator.
type LLMConfig struct {
	APIKey      string  `json:"api_key" yaml:"api_key"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

// SessionConfig configures conversation behavior.
type SessionConfig struct {
	// Hard cap on tool invocations per agentic response.
	MaxToolCalls int `json:"max_tool_calls" yaml:"max_tool_calls"`

	// Enable the agentic (tool-using) path for existing-project sessions.
	AgenticEnabled bool `json:"agentic_enabled" yaml:"agentic_enabled"`
}

// VaultConfig names the plan documents inside a project directory.
type VaultConfig struct {
	TasksFile   string `json:"tasks_file" yaml:"tasks_file"`
	RoadmapFile string `json:"roadmap_file" yaml:"roadmap_file"`
	ArchiveFile string `json:"archive_file" yaml:"archive_file"`
}

// LoggingConfig controls the categorized file logger.
type LoggingConfig struct {
	DebugMode bool   `json:"debug_mode" yaml:"debug_mode"`
	Level     string `json:"level" yaml:"level"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Session: SessionConfig{
			MaxToolCalls:   10,
			AgenticEnabled: true,
		},
		Vault: VaultConfig{
			TasksFile:   "Tasks.md",
			RoadmapFile: "Roadmap.md",
			ArchiveFile: "Archive.md",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads configuration for a vault, layering file contents and
// environment overrides on top of the defaults. A missing config file is
// not an error; the defaults are used.
func Load(vaultPath string) (*Config, error) {
	cfg := Default()

	jsonPath := filepath.Join(vaultPath, ".valet", "config.json")
	yamlPath := filepath.Join(vaultPath, ".valet", "config.yaml")

	if data, err := os.ReadFile(jsonPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", jsonPath, err)
		}
	} else if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers VALET_* environment variables over the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VALET_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("VALET_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("VALET_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.DebugMode = b
		}
	}
	if v := os.Getenv("VALET_MAX_TOOL_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Session.MaxToolCalls = n
		}
	}
}

// Validate checks invariants the rest of the system relies on.
func (c *Config) Validate() error {
	if c.Session.MaxToolCalls <= 0 {
		return fmt.Errorf("session.max_tool_calls must be positive, got %d", c.Session.MaxToolCalls)
	}
	if c.Vault.TasksFile == "" || c.Vault.RoadmapFile == "" || c.Vault.ArchiveFile == "" {
		return fmt.Errorf("vault document names must not be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	return nil
}

// Save writes the config back to .valet/config.json, creating the
// directory if needed.
func (c *Config) Save(vaultPath string) error {
	dir := filepath.Join(vaultPath, ".valet")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}
