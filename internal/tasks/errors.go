package tasks

import (
	"errors"
	"net/http"
)

// ErrNotFound indicates the requested task is not registered.
var ErrNotFound = errors.New("task not found")

// MapHTTPStatus maps task errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}
