// Package annotator serves the embedded plausibility review UI. The page is
// a single template-rendered document; navigation and selection state live in
// the browser, with the review API as the only persistence path.
package annotator

import (
	"embed"
	"html/template"
	"net/http"

	"verdict/pkg/module"
)

//go:embed index.html annotator.css annotator.js
var staticFS embed.FS

// NewModule creates a module that serves the annotation UI at basePath.
func NewModule(basePath string) *module.Module {
	router := buildRouter(basePath)
	return module.New(basePath, router)
}

func buildRouter(basePath string) http.Handler {
	mux := http.NewServeMux()

	tmpl := template.Must(template.ParseFS(staticFS, "index.html"))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		tmpl.Execute(w, map[string]string{"BasePath": basePath})
	})

	mux.Handle("GET /", http.FileServer(http.FS(staticFS)))

	return mux
}
