// Package config loads driver configuration from a file.
//
// Configuration can be specified in a JSON file named subc.json or
// .subcrc (or .subcrc.json). The config file is searched for in a
// starting directory and its parent directories, the same way a
// .editorconfig or .eslintrc would be.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the on-disk configuration shape. All fields are optional;
// unset fields keep their CLI or built-in default.
type Config struct {
	LogLevel  *string `json:"logLevel,omitempty"`
	NoColor   *bool   `json:"noColor,omitempty"`
	DumpAST   *bool   `json:"dumpAST,omitempty"`
	DumpTypes *bool   `json:"dumpTypes,omitempty"`
	Output    *string `json:"output,omitempty"`
}

// FileNames are the names searched for config files, in order of
// preference.
var FileNames = []string{
	"subc.json",
	".subcrc",
	".subcrc.json",
}

// Load searches for a config file starting from startDir and walking up
// to parent directories. Returns a zero Config (not an error) if none is
// found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return &Config{}, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Options is the fully resolved set of driver settings, after merging a
// Config with CLI flags and built-in defaults.
type Options struct {
	LogLevel  string
	NoColor   bool
	DumpAST   bool
	DumpTypes bool
	Output    string
}

// DefaultOptions returns the driver's built-in defaults.
func DefaultOptions() Options {
	return Options{
		LogLevel: "info",
	}
}

// CLIOverrides carries flag values explicitly set on the command line.
// A nil pointer means "not specified on the CLI" and falls through to
// the config file, then the built-in default.
type CLIOverrides struct {
	LogLevel  *string
	NoColor   *bool
	DumpAST   *bool
	DumpTypes *bool
	Output    *string
}

// Merge layers CLIOverrides on top of the config file's values on top of
// DefaultOptions, in that precedence order.
func (c *Config) Merge(cli CLIOverrides) Options {
	opts := DefaultOptions()

	if c.LogLevel != nil {
		opts.LogLevel = *c.LogLevel
	}
	if c.NoColor != nil {
		opts.NoColor = *c.NoColor
	}
	if c.DumpAST != nil {
		opts.DumpAST = *c.DumpAST
	}
	if c.DumpTypes != nil {
		opts.DumpTypes = *c.DumpTypes
	}
	if c.Output != nil {
		opts.Output = *c.Output
	}

	if cli.LogLevel != nil {
		opts.LogLevel = *cli.LogLevel
	}
	if cli.NoColor != nil {
		opts.NoColor = *cli.NoColor
	}
	if cli.DumpAST != nil {
		opts.DumpAST = *cli.DumpAST
	}
	if cli.DumpTypes != nil {
		opts.DumpTypes = *cli.DumpTypes
	}
	if cli.Output != nil {
		opts.Output = *cli.Output
	}

	return opts
}
