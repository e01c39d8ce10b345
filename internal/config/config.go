// Package config handles hoc.toml interpreter configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked for by FindAndLoad.
const FileName = "hoc.toml"

// Config represents a hoc.toml file.
type Config struct {
	Interpreter Interpreter `toml:"interpreter"`
	Log         Log         `toml:"log"`
	REPL        REPL        `toml:"repl"`

	// Path is the file the configuration was loaded from, empty for
	// defaults.
	Path string `toml:"-"`
}

// Interpreter bounds the machine's resources.
type Interpreter struct {
	MaxCallDepth int   `toml:"max_call_depth"`
	MaxNesting   int   `toml:"max_nesting"`
	MaxCode      int   `toml:"max_code"`
	Precision    int   `toml:"precision"`
	Seed         int64 `toml:"seed"`
	Debug        bool  `toml:"debug"`
}

// Log configures diagnostic logging.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// REPL configures the interactive prompt.
type REPL struct {
	Prompt       string `toml:"prompt"`
	Continuation string `toml:"continuation"`
	History      string `toml:"history"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Interpreter: Interpreter{
			MaxCallDepth: 1000,
			MaxNesting:   10000,
			Precision:    8,
		},
		Log: Log{
			Level:  "warn",
			Format: "console",
		},
		REPL: REPL{
			Prompt:       "hoc> ",
			Continuation: "...  ",
			History:      ".hoc_history",
		},
	}
}

// Load parses the configuration file at path. Keys missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a hoc.toml file and loads it.
// Returns the defaults if there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	in := c.Interpreter
	switch {
	case in.MaxCallDepth <= 0:
		return fmt.Errorf("interpreter.max_call_depth must be positive, got %d", in.MaxCallDepth)
	case in.MaxNesting <= 0:
		return fmt.Errorf("interpreter.max_nesting must be positive, got %d", in.MaxNesting)
	case in.MaxCode < 0:
		return fmt.Errorf("interpreter.max_code must not be negative, got %d", in.MaxCode)
	case in.Precision < 1 || in.Precision > 17:
		return fmt.Errorf("interpreter.precision must be between 1 and 17, got %d", in.Precision)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// HistoryPath resolves the REPL history file. A relative name is placed in
// the user's home directory.
func (c *Config) HistoryPath() string {
	h := c.REPL.History
	if h == "" || filepath.IsAbs(h) {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return h
	}
	return filepath.Join(home, h)
}
