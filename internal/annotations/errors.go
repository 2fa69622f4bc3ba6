package annotations

import (
	"errors"
	"net/http"

	"verdict/internal/tasks"
	"verdict/pkg/ledger"
)

var (
	// ErrImageRequired indicates a record command missing an image reference.
	ErrImageRequired = errors.New("original and generated image references are required")

	// ErrTaskRequired indicates a request without a task discriminator.
	ErrTaskRequired = errors.New("task parameter is required")

	// ErrOriginalRequired indicates a completion query without an original image.
	ErrOriginalRequired = errors.New("original parameter is required")
)

// MapHTTPStatus maps annotation errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrImageRequired),
		errors.Is(err, ErrTaskRequired),
		errors.Is(err, ErrOriginalRequired),
		errors.Is(err, ledger.ErrUnknownLabel):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
