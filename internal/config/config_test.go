package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Run.MaxIterations)
	assert.True(t, cfg.Judge.DefaultApprove)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultStateDir, cfg.Run.StateDir)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
sandbox:
  name: my-sandbox
run:
  max_iterations: 4
judge:
  default_approve: false
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-sandbox", cfg.Sandbox.Name)
	assert.Equal(t, 4, cfg.Run.MaxIterations)
	assert.False(t, cfg.Judge.DefaultApprove)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Run.StepLimit)
	assert.Equal(t, 60000, cfg.Budget.TokenBudget)
}

func TestLoadPartialJudgeSectionKeepsDefaultApprove(t *testing.T) {
	path := writeFile(t, `
judge:
  step_budget: 20
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Judge.StepBudget)
	assert.True(t, cfg.Judge.DefaultApprove, "default_approve defaults to true when omitted")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, "run: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero iterations", func(c *Config) { c.Run.MaxIterations = 0 }, "run.max_iterations"},
		{"zero step limit", func(c *Config) { c.Run.StepLimit = 0 }, "run.step_limit"},
		{"tiny token budget", func(c *Config) { c.Budget.TokenBudget = 10 }, "budget.token_budget"},
		{"zero recent window", func(c *Config) { c.Budget.RecentWindow = 0 }, "budget.recent_window"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateDefaultsPass(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sandbox.env")
	require.NoError(t, os.WriteFile(path, []byte(`
# sandbox credentials
SPRITES_TOKEN=tok-123
ANTHROPIC_API_KEY="sk-quoted"
EMPTY_OK=
SINGLE='quoted value'
`), 0o600))

	env, err := LoadEnvFile(path)
	require.NoError(t, err)

	assert.Equal(t, "tok-123", env["SPRITES_TOKEN"])
	assert.Equal(t, "sk-quoted", env["ANTHROPIC_API_KEY"])
	assert.Equal(t, "", env["EMPTY_OK"])
	assert.Equal(t, "quoted value", env["SINGLE"])
	assert.NotContains(t, env, "# sandbox credentials")
}

func TestLoadEnvFileMissing(t *testing.T) {
	env, err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, env)
}

func TestLoadEnvFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sandbox.env")
	require.NoError(t, os.WriteFile(path, []byte("NOT A PAIR\n"), 0o600))

	_, err := LoadEnvFile(path)
	assert.Error(t, err)
}
