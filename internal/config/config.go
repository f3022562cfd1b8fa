// Package config reads the environment configuration of graphload.
//
// Values come from the process environment, optionally seeded from .env and
// .env.local in the working directory. Variables already set in the
// environment win over the files. Command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvFiles are loaded by Load when present.
var EnvFiles = []string{".env", ".env.local"}

// Config is the environment configuration.
type Config struct {
	Server  string        `env:"GRAPHLOAD_SERVER"`
	Token   string        `env:"GRAPHLOAD_TOKEN"`
	SaveDir string        `env:"GRAPHLOAD_SAVE_DIR" envDefault:".graphload"`
	Timeout time.Duration `env:"GRAPHLOAD_TIMEOUT" envDefault:"30s"`

	// InterruptAfter stops a run cleanly after this many records.
	// 0 means never.
	InterruptAfter int `env:"GRAPHLOAD_INTERRUPT_AFTER" envDefault:"0"`

	// State is the state database. Defaults to state.db in SaveDir.
	State string `env:"GRAPHLOAD_STATE"`
}

// LoadEnv loads the env files that exist and returns how many were loaded.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads the env files and parses the environment.
func Load() (*Config, error) {
	if _, err := LoadEnv(EnvFiles); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("GRAPHLOAD_TIMEOUT must be positive, got %s", c.Timeout))
	}
	if c.InterruptAfter < 0 {
		errs = append(errs, fmt.Errorf("GRAPHLOAD_INTERRUPT_AFTER must not be negative, got %d", c.InterruptAfter))
	}
	return errors.Join(errs...)
}

// StatePath returns the state database path.
func (c *Config) StatePath() string {
	if c.State != "" {
		return c.State
	}
	return filepath.Join(c.SaveDir, "state.db")
}
