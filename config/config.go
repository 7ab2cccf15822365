// Package config holds the YAML configuration of an analysis run. Only the
// command-line driver reads it; the analysis packages take their options as
// plain arguments.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config describes one analysis run. Fields not present in the file keep
// their zero value; Load fills in the defaults afterwards.
type Config struct {
	// Packages are the package patterns to load, as understood by the go
	// build system.
	Packages []string `yaml:"packages"`

	// Dir is the directory to run the go build system in.
	Dir string `yaml:"dir"`

	// Entry is the name of the entry function. Defaults to main.
	Entry string `yaml:"entry"`

	// Queries lists functions whose pointer-valued registers are reported
	// after solving. Empty means the entry function.
	Queries []string `yaml:"queries"`

	// LogLevel is a logrus level name. Defaults to info.
	LogLevel string `yaml:"log-level"`

	// SelfCheck makes the solver verify its own fixpoint with an extra
	// pass.
	SelfCheck bool `yaml:"self-check"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromBytes parses a configuration from raw YAML.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Entry == "" {
		cfg.Entry = "main"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = logrus.InfoLevel.String()
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	return cfg, nil
}

// Level returns the configured logging level.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
