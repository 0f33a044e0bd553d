// Package config loads drover's configuration: a YAML file for settings
// and an env file for sandbox credentials. Absent files mean defaults;
// present files are validated before use.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default file locations, relative to the project being worked on.
const (
	DefaultConfigPath = ".drover/config.yaml"
	DefaultEnvPath    = ".drover/.sandbox.env"
	DefaultStateDir   = ".drover/runs"
)

// Config is the full configuration tree.
type Config struct {
	Sandbox SandboxConfig `yaml:"sandbox"`
	Model   ModelConfig   `yaml:"model"`
	Run     RunConfig     `yaml:"run"`
	Judge   JudgeConfig   `yaml:"judge"`
	Budget  BudgetConfig  `yaml:"budget"`
	Logging LoggingConfig `yaml:"logging"`
}

// SandboxConfig locates the sandbox the run works in.
type SandboxConfig struct {
	Name    string `yaml:"name"`
	WorkDir string `yaml:"work_dir"`
	BaseURL string `yaml:"base_url"`
}

// ModelConfig selects the model backing both agents.
type ModelConfig struct {
	Name      string `yaml:"name"`
	MaxTokens int    `yaml:"max_tokens"`
	BaseURL   string `yaml:"base_url"`
}

// RunConfig bounds the iteration loop.
type RunConfig struct {
	MaxIterations      int    `yaml:"max_iterations"`
	StepLimit          int    `yaml:"step_limit"`
	SyncTimeoutSeconds int    `yaml:"sync_timeout_seconds"`
	StateDir           string `yaml:"state_dir"`
}

// JudgeConfig tunes the reviewer.
type JudgeConfig struct {
	StepBudget     int  `yaml:"step_budget"`
	DefaultApprove bool `yaml:"default_approve"`
}

// BudgetConfig tunes history compaction.
type BudgetConfig struct {
	TokenBudget  int `yaml:"token_budget"`
	RecentWindow int `yaml:"recent_window"`
	DigestChars  int `yaml:"digest_chars"`
}

// LoggingConfig sets log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Sandbox: SandboxConfig{
			WorkDir: "/app",
		},
		Model: ModelConfig{
			MaxTokens: 8192,
		},
		Run: RunConfig{
			MaxIterations:      10,
			StepLimit:          30,
			SyncTimeoutSeconds: 60,
			StateDir:           DefaultStateDir,
		},
		Judge: JudgeConfig{
			StepBudget:     15,
			DefaultApprove: true,
		},
		Budget: BudgetConfig{
			TokenBudget:  60000,
			RecentWindow: 3,
			DigestChars:  300,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ValidationError reports a bad config value with its location.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Load reads the config at path. A missing file yields the defaults; a
// present file is unmarshaled over them, so omitted fields keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that would break a run.
func (c *Config) Validate() error {
	if c.Run.MaxIterations < 1 {
		return &ValidationError{Field: "run.max_iterations", Message: "must be at least 1"}
	}
	if c.Run.StepLimit < 1 {
		return &ValidationError{Field: "run.step_limit", Message: "must be at least 1"}
	}
	if c.Run.SyncTimeoutSeconds < 1 {
		return &ValidationError{Field: "run.sync_timeout_seconds", Message: "must be at least 1"}
	}
	if c.Judge.StepBudget < 1 {
		return &ValidationError{Field: "judge.step_budget", Message: "must be at least 1"}
	}
	if c.Budget.TokenBudget < 1000 {
		return &ValidationError{Field: "budget.token_budget", Message: "must be at least 1000"}
	}
	if c.Budget.RecentWindow < 1 {
		return &ValidationError{Field: "budget.recent_window", Message: "must be at least 1"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	return nil
}

// LoadEnvFile parses a KEY=VALUE env file. Blank lines and # comments are
// skipped; values may be single- or double-quoted. A missing file is an
// empty map, not an error.
func LoadEnvFile(path string) (map[string]string, error) {
	env := make(map[string]string)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return env, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("parsing %s line %d: expected KEY=VALUE", path, i+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("parsing %s line %d: empty key", path, i+1)
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		env[key] = value
	}
	return env, nil
}
