package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5, cfg.Planner.FanOut)
	assert.Equal(t, 1000, cfg.Planner.HistoryCapacity)
	assert.Equal(t, "localhost:50051", cfg.Server.Addr)
	assert.False(t, cfg.Archive.Enabled)
}

const tomlConfig = `
[planner]
fan_out = 3
seed = 42

[logging]
level = "debug"

[archive]
enabled = true
path = "/tmp/chatron-test.db"

[[constraints]]
id = "max-three-tools"
name = "Max Three Tools"
severity = "high"
expr = "tool_count <= 3"
`

const yamlConfig = `
planner:
  fan_out: 3
  seed: 42
logging:
  level: debug
archive:
  enabled: true
  path: /tmp/chatron-test.db
constraints:
  - id: max-three-tools
    name: Max Three Tools
    severity: high
    expr: tool_count <= 3
`

func TestLoad_FileFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"toml", "chatron.toml", tomlConfig},
		{"yaml", "chatron.yaml", yamlConfig},
		{"yml", "chatron.yml", yamlConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.body))
			require.NoError(t, err)

			assert.Equal(t, 3, cfg.Planner.FanOut)
			assert.Equal(t, uint64(42), cfg.Planner.Seed)
			assert.Equal(t, DefaultHistoryCapacity, cfg.Planner.HistoryCapacity)
			assert.Equal(t, "debug", cfg.Logging.Level)
			assert.True(t, cfg.Archive.Enabled)
			assert.Equal(t, "/tmp/chatron-test.db", cfg.Archive.Path)
			assert.Equal(t, DefaultArchiveRetain, cfg.Archive.Retain)
			require.Len(t, cfg.Constraints, 1)
			assert.Equal(t, ConstraintConfig{
				ID:       "max-three-tools",
				Name:     "Max Three Tools",
				Severity: "high",
				Expr:     "tool_count <= 3",
			}, cfg.Constraints[0])
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "chatron.ini", "fan_out=3"))
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CHATRON_FAN_OUT", "2")
	t.Setenv("CHATRON_SEED", "7")
	t.Setenv("CHATRON_LOG_LEVEL", "warn")
	t.Setenv("CHATRON_ARCHIVE_ENABLED", "false")
	t.Setenv("CHATRON_ARCHIVE_RETAIN", "50")
	t.Setenv("CHATRON_SERVER_ADDR", "127.0.0.1:0")

	cfg, err := Load(writeFile(t, "chatron.toml", tomlConfig))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Planner.FanOut)
	assert.Equal(t, uint64(7), cfg.Planner.Seed)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, 50, cfg.Archive.Retain)
	assert.Equal(t, "127.0.0.1:0", cfg.Server.Addr)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("CHATRON_HISTORY_CAPACITY", "lots")
	_, err := Load("")
	assert.ErrorContains(t, err, "CHATRON_HISTORY_CAPACITY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"zero-fan-out", func(c *Config) { c.Planner.FanOut = 0 }, "fan_out"},
		{"negative-capacity", func(c *Config) { c.Planner.HistoryCapacity = -1 }, "history_capacity"},
		{"bad-level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"archive-no-path", func(c *Config) { c.Archive.Enabled = true; c.Archive.Path = "" }, "archive.path"},
		{"bad-severity", func(c *Config) {
			c.Constraints = []ConstraintConfig{{ID: "x", Severity: "urgent", Expr: "True"}}
		}, "unknown severity"},
		{"empty-expr", func(c *Config) {
			c.Constraints = []ConstraintConfig{{ID: "x", Severity: "low", Expr: "  "}}
		}, "expr is required"},
		{"duplicate-id", func(c *Config) {
			c.Constraints = []ConstraintConfig{
				{ID: "x", Severity: "low", Expr: "True"},
				{ID: "x", Severity: "low", Expr: "True"},
			}
		}, "duplicate id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBuildConstraints(t *testing.T) {
	cfg := Default()
	cfg.Constraints = []ConstraintConfig{{ID: "max-three-tools", Severity: "critical", Expr: "tool_count <= 3"}}
	got, err := cfg.BuildConstraints()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ethics.SeverityCritical, got[0].Severity)

	cfg.Constraints[0].Expr = "tool_count <="
	_, err = cfg.BuildConstraints()
	assert.Error(t, err)
}
