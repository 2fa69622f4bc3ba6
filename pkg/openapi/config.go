package openapi

import "os"

// Config carries the document metadata that is deployment-specific rather
// than derived from the routes.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// ConfigEnv names the environment variables that override each field.
type ConfigEnv struct {
	Title       string
	Description string
}

// Finalize applies defaults, then environment overrides when env is set.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.Title == "" {
		c.Title = "Verdict API"
	}
	if c.Description == "" {
		c.Description = "Plausibility review service for generated medical images."
	}

	if env == nil {
		return nil
	}
	if v := os.Getenv(env.Title); env.Title != "" && v != "" {
		c.Title = v
	}
	if v := os.Getenv(env.Description); env.Description != "" && v != "" {
		c.Description = v
	}
	return nil
}

// Merge overlays non-empty fields from another config.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
}
