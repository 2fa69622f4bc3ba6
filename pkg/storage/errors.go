package storage

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates the storage key contains a path traversal segment.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
	// ErrInvalidMaxResults indicates a max_results value that is not a positive integer.
	ErrInvalidMaxResults = errors.New("max_results must be a positive integer")
	// ErrSigningUnavailable indicates the backend cannot mint signed URLs with
	// its current credentials.
	ErrSigningUnavailable = errors.New("signed URLs unavailable for this storage configuration")
)

// MapHTTPStatus maps storage errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey),
		errors.Is(err, ErrInvalidKey),
		errors.Is(err, ErrInvalidMaxResults):
		return http.StatusBadRequest
	case errors.Is(err, ErrSigningUnavailable):
		return http.StatusNotImplemented
	}

	return http.StatusInternalServerError
}
