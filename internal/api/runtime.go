package api

import (
	"verdict/internal/config"
	"verdict/internal/imagesets"
	"verdict/internal/infrastructure"
	"verdict/internal/tasks"
	"verdict/pkg/pagination"
)

// Runtime extends Infrastructure with API-scoped configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Tasks      tasks.Config
	ImageSets  imagesets.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Storage:   infra.Storage,
		},
		Pagination: cfg.API.Pagination,
		Tasks:      cfg.Tasks,
		ImageSets:  cfg.ImageSets,
	}
}
