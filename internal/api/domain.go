package api

import (
	"verdict/internal/annotations"
	"verdict/internal/imagesets"
	"verdict/internal/tasks"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Tasks       tasks.System
	Annotations annotations.System
	ImageSets   imagesets.System
}

// NewDomain creates all domain systems from the API runtime. The annotations
// system layers on the task registry; image sets layer on both.
func NewDomain(runtime *Runtime) *Domain {
	registry := tasks.New(&runtime.Tasks, runtime.Logger)

	ledgers := annotations.New(
		runtime.Storage,
		registry,
		&runtime.Pagination,
		runtime.Logger,
	)

	sets := imagesets.New(
		&runtime.ImageSets,
		runtime.Storage,
		registry,
		ledgers,
		&runtime.Pagination,
		runtime.Logger,
	)

	return &Domain{
		Tasks:       registry,
		Annotations: ledgers,
		ImageSets:   sets,
	}
}
