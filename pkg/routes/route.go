package routes

import "net/http"

// Route pairs one HTTP method and ServeMux pattern with its handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}
