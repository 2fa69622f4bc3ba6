// Package infrastructure assembles the shared runtime every module builds
// on: the lifecycle coordinator, the process logger, and blob storage.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"verdict/internal/config"
	"verdict/pkg/lifecycle"
	"verdict/pkg/storage"
)

// Infrastructure carries the shared systems domain modules depend on.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System
}

// New wires the shared systems from configuration. Nothing is started;
// Start registers the lifecycle hooks.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Storage:   store,
	}, nil
}

// Start registers infrastructure lifecycle hooks. The storage hook ensures
// the backing container exists before the service reports ready.
func (i *Infrastructure) Start() error {
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
