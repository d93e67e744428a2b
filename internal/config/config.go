// Package config loads la32rstats settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Input types.
const (
	TypeELF = "elf"
	TypeBin = "bin"
)

// Config holds the settings shared by every command. Flags override file
// values, and environment variables override both file and defaults.
type Config struct {
	Type        string `yaml:"type" json:"type" jsonschema:"title=Input Type,description=How input files are decoded,enum=elf,enum=bin,default=elf"`
	Top         int    `yaml:"top" json:"top" jsonschema:"title=Top,description=Histogram rows to show (0 shows all),minimum=0,default=20"`
	Parallelism int    `yaml:"parallelism" json:"parallelism" jsonschema:"title=Parallelism,description=Code sections decoded at once,minimum=1,default=1"`
	NoColor     bool   `yaml:"no_color" json:"no_color" jsonschema:"title=No Color,description=Disable listing colors"`
	Debug       bool   `yaml:"debug" json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Type:        TypeELF,
		Top:         20,
		Parallelism: 1,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/la32rstats/config.yaml, falling
// back to the user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		d, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		dir = d
	}
	return filepath.Join(dir, "la32rstats", "config.yaml")
}

// Load reads path over the defaults. A missing file is not an error when
// path is the default path; an explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LA32RSTATS_* variables. Malformed numbers
// and booleans are reported and leave the field unchanged.
func (c *Config) ApplyEnv() error {
	var errs []error
	if v := os.Getenv("LA32RSTATS_TYPE"); v != "" {
		c.Type = v
	}
	if v := os.Getenv("LA32RSTATS_TOP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LA32RSTATS_TOP: %w", err))
		} else {
			c.Top = n
		}
	}
	if v := os.Getenv("LA32RSTATS_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LA32RSTATS_PARALLELISM: %w", err))
		} else {
			c.Parallelism = n
		}
	}
	if v := os.Getenv("LA32RSTATS_NO_COLOR"); v != "" {
		c.NoColor = true
	}
	if v := os.Getenv("LA32RSTATS_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LA32RSTATS_DEBUG: %w", err))
		} else {
			c.Debug = b
		}
	}
	return errors.Join(errs...)
}

// Validate checks field ranges.
func (c Config) Validate() error {
	switch c.Type {
	case TypeELF, TypeBin:
	default:
		return fmt.Errorf("unknown input type %q (want %s or %s)", c.Type, TypeELF, TypeBin)
	}
	if c.Top < 0 {
		return fmt.Errorf("top must not be negative, got %d", c.Top)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	return nil
}
