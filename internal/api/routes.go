package api

import (
	"net/http"

	"verdict/internal/config"
	"verdict/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	groups := []routes.Group{
		domain.Tasks.Handler().Routes(),
		domain.Annotations.Handler().Routes(),
		domain.ImageSets.Handler().Routes(),
		newStorageHandler(
			runtime.Storage,
			runtime.Logger,
			cfg.Storage.MaxListSize,
			cfg.API.MaxUploadSizeBytes(),
		).routes(),
	}

	routes.Register(mux, groups...)

	doc := buildSpec(cfg, groups)
	mux.HandleFunc("GET /openapi.json", serveSpec(doc, runtime))
}
