package imagesets

import (
	"log/slog"
	"net/http"
	"strconv"

	"verdict/internal/annotations"
	"verdict/pkg/handlers"
	"verdict/pkg/pagination"
	"verdict/pkg/routes"
)

// SetsPage is one page of image sets together with any sync warning hit
// while evaluating the pending filter.
type SetsPage struct {
	Task    string                          `json:"task"`
	Pending bool                            `json:"pending"`
	Page    pagination.PageResult[ImageSet] `json:"page"`
	Warning *annotations.SyncWarning        `json:"warning,omitempty"`
}

// Handler provides HTTP endpoints for browsing image sets.
type Handler struct {
	sys    System
	pages  *pagination.Config
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, pages *pagination.Config, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		pages:  pages,
		logger: logger.With("handler", "imagesets"),
	}
}

// Routes returns the route group definition for image-set endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/imagesets",
		Tags:   []string{"imagesets"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
		},
	}
}

// List returns one page of a task's image sets. With pending=true, sets
// whose candidates are all judged are filtered out.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	taskID := query.Get("task")
	if taskID == "" {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrTaskRequired), ErrTaskRequired)
		return
	}

	pending, _ := strconv.ParseBool(query.Get("pending"))

	result, warning, err := h.sys.List(r.Context(), ListQuery{
		TaskID:  taskID,
		Pending: pending,
		Page:    pagination.PageRequestFromQuery(query, *h.pages),
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, SetsPage{
		Task:    taskID,
		Pending: pending,
		Page:    *result,
		Warning: warning,
	})
}
