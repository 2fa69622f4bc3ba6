// Package scalar serves the embedded Scalar reference UI for the Verdict API.
package scalar

import (
	"embed"
	"html/template"
	"net/http"

	"verdict/pkg/module"
)

//go:embed index.html scalar.css scalar.js
var staticFS embed.FS

// NewModule serves the Scalar API reference at basePath, rendering the
// document published at specURL.
func NewModule(basePath, specURL string) *module.Module {
	return module.New(basePath, buildRouter(basePath, specURL))
}

func buildRouter(basePath, specURL string) http.Handler {
	mux := http.NewServeMux()

	page := template.Must(template.ParseFS(staticFS, "index.html"))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		page.Execute(w, map[string]string{
			"BasePath": basePath,
			"SpecURL":  specURL,
		})
	})

	mux.Handle("GET /", http.FileServer(http.FS(staticFS)))

	return mux
}
