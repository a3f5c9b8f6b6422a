package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
	"github.com/or4cl3-ai-1/Chatron9/internal/logging"
)

const (
	DefaultFanOut          = 5
	DefaultHistoryCapacity = 1000
	DefaultLogLevel        = "info"
	DefaultArchivePath     = "chatron.db"
	DefaultArchiveRetain   = 10000
	DefaultServerAddr      = "localhost:50051"
)

// #region types

// Config is the full runtime configuration of the planner host.
type Config struct {
	Planner     PlannerConfig      `toml:"planner" yaml:"planner"`
	Logging     LoggingConfig      `toml:"logging" yaml:"logging"`
	Archive     ArchiveConfig      `toml:"archive" yaml:"archive"`
	Server      ServerConfig       `toml:"server" yaml:"server"`
	Constraints []ConstraintConfig `toml:"constraints" yaml:"constraints"`
}

// PlannerConfig tunes candidate generation and in-memory history.
type PlannerConfig struct {
	FanOut          int    `toml:"fan_out" yaml:"fan_out"`
	HistoryCapacity int    `toml:"history_capacity" yaml:"history_capacity"`
	Seed            uint64 `toml:"seed" yaml:"seed"` // 0 = unseeded
}

// LoggingConfig selects the log level and an optional log file.
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// ArchiveConfig enables the SQLite response archive and its retention.
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
	Retain  int    `toml:"retain" yaml:"retain"`
}

// ServerConfig holds the gRPC listen address.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// ConstraintConfig declares an extra Starlark constraint.
type ConstraintConfig struct {
	ID          string `toml:"id" yaml:"id"`
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description" yaml:"description"`
	Severity    string `toml:"severity" yaml:"severity"`
	Expr        string `toml:"expr" yaml:"expr"`
}

// #endregion types

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Planner: PlannerConfig{
			FanOut:          DefaultFanOut,
			HistoryCapacity: DefaultHistoryCapacity,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
		Archive: ArchiveConfig{
			Path:   DefaultArchivePath,
			Retain: DefaultArchiveRetain,
		},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}

// #region load

// Load builds a Config from defaults, then the file at path (if non-empty),
// then CHATRON_* environment variables, and validates the result.
// The file format is chosen by extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(path, data); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("CHATRON_FAN_OUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATRON_FAN_OUT: %w", err)
		}
		c.Planner.FanOut = n
	}
	if v := getenv("CHATRON_HISTORY_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATRON_HISTORY_CAPACITY: %w", err)
		}
		c.Planner.HistoryCapacity = n
	}
	if v := getenv("CHATRON_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHATRON_SEED: %w", err)
		}
		c.Planner.Seed = n
	}
	if v := getenv("CHATRON_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("CHATRON_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := getenv("CHATRON_ARCHIVE_ENABLED"); v != "" {
		c.Archive.Enabled = v == "true" || v == "1"
	}
	if v := getenv("CHATRON_ARCHIVE_PATH"); v != "" {
		c.Archive.Path = v
	}
	if v := getenv("CHATRON_ARCHIVE_RETAIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATRON_ARCHIVE_RETAIN: %w", err)
		}
		c.Archive.Retain = n
	}
	if v := getenv("CHATRON_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	return nil
}

// #endregion load

// #region validate

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Planner.FanOut <= 0 {
		errs = append(errs, fmt.Errorf("planner.fan_out must be positive, got %d", c.Planner.FanOut))
	}
	if c.Planner.HistoryCapacity <= 0 {
		errs = append(errs, fmt.Errorf("planner.history_capacity must be positive, got %d", c.Planner.HistoryCapacity))
	}
	if _, _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		errs = append(errs, errors.New("archive.path is required when the archive is enabled"))
	}
	seen := make(map[string]bool, len(c.Constraints))
	for i, con := range c.Constraints {
		if con.ID == "" {
			errs = append(errs, fmt.Errorf("constraints[%d]: id is required", i))
		} else if seen[con.ID] {
			errs = append(errs, fmt.Errorf("constraints[%d]: duplicate id %q", i, con.ID))
		}
		seen[con.ID] = true
		if _, err := ethics.ParseSeverity(con.Severity); err != nil {
			errs = append(errs, fmt.Errorf("constraints[%d]: %w", i, err))
		}
		if strings.TrimSpace(con.Expr) == "" {
			errs = append(errs, fmt.Errorf("constraints[%d]: expr is required", i))
		}
	}
	return errors.Join(errs...)
}

// #endregion validate

// #region constraints

// BuildConstraints compiles the configured script constraints.
func (c *Config) BuildConstraints() ([]ethics.Constraint, error) {
	out := make([]ethics.Constraint, 0, len(c.Constraints))
	for _, con := range c.Constraints {
		built, err := ethics.NewScriptConstraint(ethics.ScriptSpec{
			ID:          con.ID,
			Name:        con.Name,
			Description: con.Description,
			Severity:    con.Severity,
			Expr:        con.Expr,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}

// #endregion constraints
