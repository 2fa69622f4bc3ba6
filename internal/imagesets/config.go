package imagesets

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds image-set provider and builder settings.
type Config struct {
	SetsDir string `toml:"sets_dir"`
	SignTTL string `toml:"sign_ttl"`
	Workers int    `toml:"workers"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	SetsDir string
	SignTTL string
	Workers string
}

// Finalize applies defaults, environment overrides, and validation in order.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()

	if env != nil {
		c.loadEnv(env)
	}

	return c.validate()
}

// Merge overlays non-zero values from another config.
func (c *Config) Merge(overlay *Config) {
	if overlay.SetsDir != "" {
		c.SetsDir = overlay.SetsDir
	}
	if overlay.SignTTL != "" {
		c.SignTTL = overlay.SignTTL
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
}

// TTL returns the parsed signing window. Finalize has already validated it.
func (c *Config) TTL() time.Duration {
	ttl, _ := time.ParseDuration(c.SignTTL)
	return ttl
}

func (c *Config) loadDefaults() {
	if c.SetsDir == "" {
		c.SetsDir = "."
	}

	// Seven days, matching the review cadence the signing window must cover.
	if c.SignTTL == "" {
		c.SignTTL = "168h"
	}
}

func (c *Config) loadEnv(env *Env) {
	if setsDir := os.Getenv(env.SetsDir); setsDir != "" {
		c.SetsDir = setsDir
	}

	if signTTL := os.Getenv(env.SignTTL); signTTL != "" {
		c.SignTTL = signTTL
	}

	if workers := os.Getenv(env.Workers); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			c.Workers = n
		}
	}
}

func (c *Config) validate() error {
	ttl, err := time.ParseDuration(c.SignTTL)
	if err != nil {
		return fmt.Errorf("sign_ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("sign_ttl must be positive, got %s", c.SignTTL)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}

	return nil
}
