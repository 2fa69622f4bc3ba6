// Package config loads the layered service configuration: config.toml, an
// optional per-environment overlay, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"verdict/internal/imagesets"
	"verdict/internal/tasks"
	"verdict/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvVerdictEnv             = "VERDICT_ENV"
	EnvVerdictShutdownTimeout = "VERDICT_SHUTDOWN_TIMEOUT"
	EnvVerdictVersion         = "VERDICT_VERSION"
)

var storageEnv = &storage.Env{
	Provider:         "VERDICT_STORAGE_PROVIDER",
	ContainerName:    "VERDICT_STORAGE_CONTAINER_NAME",
	ConnectionString: "VERDICT_STORAGE_CONNECTION_STRING",
	AccountURL:       "VERDICT_STORAGE_ACCOUNT_URL",
	Root:             "VERDICT_STORAGE_ROOT",
	PublicEndpoint:   "VERDICT_STORAGE_PUBLIC_ENDPOINT",
	MaxListSize:      "VERDICT_STORAGE_MAX_LIST_SIZE",
}

var tasksEnv = &tasks.Env{
	LocalDir:     "VERDICT_TASKS_LOCAL_DIR",
	RemotePrefix: "VERDICT_TASKS_REMOTE_PREFIX",
}

var imagesetsEnv = &imagesets.Env{
	SetsDir: "VERDICT_IMAGESETS_SETS_DIR",
	SignTTL: "VERDICT_IMAGESETS_SIGN_TTL",
	Workers: "VERDICT_IMAGESETS_WORKERS",
}

// Config is the root configuration for the Verdict service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Tasks           tasks.Config     `toml:"tasks"`
	ImageSets       imagesets.Config `toml:"imagesets"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the VERDICT_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvVerdictEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout parsed.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(c.ShutdownTimeout)
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Tasks.Merge(&overlay.Tasks)
	c.ImageSets.Merge(&overlay.ImageSets)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Tasks.Finalize(tasksEnv); err != nil {
		return fmt.Errorf("tasks: %w", err)
	}
	if err := c.ImageSets.Finalize(imagesetsEnv); err != nil {
		return fmt.Errorf("imagesets: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvVerdictShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvVerdictVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvVerdictEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
