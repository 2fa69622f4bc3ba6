package imagesets

import (
	"errors"
	"net/http"

	"verdict/internal/tasks"
)

var (
	// ErrNoSets indicates no image-set file has been built for the task yet.
	ErrNoSets = errors.New("no image sets built for task")

	// ErrInvalidSet indicates a structurally invalid image set.
	ErrInvalidSet = errors.New("invalid image set")

	// ErrTaskRequired indicates a request without a task discriminator.
	ErrTaskRequired = errors.New("task parameter is required")
)

// MapHTTPStatus maps image-set errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, tasks.ErrNotFound), errors.Is(err, ErrNoSets):
		return http.StatusNotFound
	case errors.Is(err, ErrTaskRequired):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
