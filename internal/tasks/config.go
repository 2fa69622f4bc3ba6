package tasks

import (
	"fmt"
	"os"
)

// Config holds the task registry and the ledger naming scheme. Ledger files
// are named {task}_annotations.csv under LocalDir on disk and under
// RemotePrefix in blob storage.
type Config struct {
	LocalDir     string `toml:"local_dir"`
	RemotePrefix string `toml:"remote_prefix"`
	Defs         []Task `toml:"defs"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	LocalDir     string
	RemotePrefix string
}

// Finalize applies defaults, environment overrides, and validation in order.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()

	if env != nil {
		c.loadEnv(env)
	}

	return c.validate()
}

// Merge overlays non-empty values from another config.
func (c *Config) Merge(overlay *Config) {
	if overlay.LocalDir != "" {
		c.LocalDir = overlay.LocalDir
	}
	if overlay.RemotePrefix != "" {
		c.RemotePrefix = overlay.RemotePrefix
	}
	if overlay.Defs != nil {
		c.Defs = overlay.Defs
	}
}

func (c *Config) loadDefaults() {
	if c.LocalDir == "" {
		c.LocalDir = "project"
	}

	if c.RemotePrefix == "" {
		c.RemotePrefix = "annotations/project"
	}

	if len(c.Defs) == 0 {
		c.Defs = DefaultTasks()
	}
}

func (c *Config) loadEnv(env *Env) {
	if localDir := os.Getenv(env.LocalDir); localDir != "" {
		c.LocalDir = localDir
	}

	if remotePrefix := os.Getenv(env.RemotePrefix); remotePrefix != "" {
		c.RemotePrefix = remotePrefix
	}
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Defs))

	for _, task := range c.Defs {
		if err := validateID(task.ID); err != nil {
			return err
		}

		if _, dup := seen[task.ID]; dup {
			return fmt.Errorf("duplicate task id %q", task.ID)
		}
		seen[task.ID] = struct{}{}

		if task.Name == "" {
			return fmt.Errorf("task %q: name required", task.ID)
		}

		if task.SetsFile == "" {
			return fmt.Errorf("task %q: sets_file required", task.ID)
		}
	}

	return nil
}

// Task ids become file and blob name segments, so the charset stays narrow.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("task id must not be empty")
	}

	for _, r := range id {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return fmt.Errorf("task id %q: only lowercase letters, digits, _ and - allowed", id)
		}
	}

	return nil
}

// DefaultTasks returns the built-in bone marrow and dermatology registries.
func DefaultTasks() []Task {
	return []Task{
		{
			ID:              "bone",
			Name:            "Bone Marrow",
			SetsFile:        "bone_marrow_image_sets.json",
			OriginalsPrefix: "bone_marrow_train_flat/",
			GeneratedPrefix: "bone_marrow_generated_flat/",
		},
		{
			ID:              "derma",
			Name:            "Dermatology",
			SetsFile:        "derma_image_sets.json",
			OriginalsPrefix: "ham_10000_train_flat/",
			GeneratedPrefix: "generated_images_flat/",
		},
	}
}
