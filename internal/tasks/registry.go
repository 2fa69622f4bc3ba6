package tasks

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
)

type registry struct {
	cfg    *Config
	logger *slog.Logger
}

// New creates a task registry implementing the System interface.
func New(cfg *Config, logger *slog.Logger) System {
	return &registry{
		cfg:    cfg,
		logger: logger.With("system", "tasks"),
	}
}

func (r *registry) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *registry) List() []Task {
	defs := make([]Task, len(r.cfg.Defs))
	copy(defs, r.cfg.Defs)
	return defs
}

func (r *registry) Find(id string) (*Task, error) {
	for _, task := range r.cfg.Defs {
		if task.ID == id {
			return &task, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// CachePath returns the local ledger cache file for a task.
func (r *registry) CachePath(task Task) string {
	return filepath.Join(r.cfg.LocalDir, task.ID+"_annotations.csv")
}

// LedgerKey returns the remote ledger blob key for a task.
func (r *registry) LedgerKey(task Task) string {
	return path.Join(r.cfg.RemotePrefix, task.ID+"_annotations.csv")
}
