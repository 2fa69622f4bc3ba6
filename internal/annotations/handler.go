package annotations

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"verdict/pkg/handlers"
	"verdict/pkg/pagination"
	"verdict/pkg/routes"
	"verdict/pkg/urlkey"
)

// Handler provides HTTP endpoints for recording and inspecting judgments.
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
		logger: logger.With("handler", "annotations"),
	}
}

// Routes returns the route group definition for annotation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/annotations",
		Tags:   []string{"annotations"},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Record},
			{Method: "GET", Pattern: "", Handler: h.Rows},
			{Method: "GET", Pattern: "/progress", Handler: h.Progress},
			{Method: "GET", Pattern: "/complete", Handler: h.Complete},
		},
	}
}

// Record stores one judgment. The response is 201 even when a destination
// failed to sync; per-destination status is in the body.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var cmd RecordCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if cmd.TaskID == "" {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrTaskRequired), ErrTaskRequired)
		return
	}

	result, err := h.sys.Record(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

// Rows returns one page of the ledger table for a task.
func (h *Handler) Rows(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task")
	if taskID == "" {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrTaskRequired), ErrTaskRequired)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), *h.pages)

	result, warning, err := h.sys.Rows(r.Context(), taskID, page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, LedgerPage{
		Task:    taskID,
		Page:    *result,
		Warning: warning,
	})
}

// Progress reports how many originals carry a full judgment set.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task")
	if taskID == "" {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrTaskRequired), ErrTaskRequired)
		return
	}

	report, err := h.sys.Progress(r.Context(), taskID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Complete reports whether one original has a full judgment set. The
// expected generated images arrive as repeated "generated" parameters.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	taskID := query.Get("task")
	if taskID == "" {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrTaskRequired), ErrTaskRequired)
		return
	}

	original := query.Get("original")
	if original == "" {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrOriginalRequired), ErrOriginalRequired)
		return
	}

	complete, warning, err := h.sys.SetComplete(r.Context(), taskID, original, query["generated"])
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, CompletionReport{
		Task:     taskID,
		Original: urlkey.Extract(original),
		Complete: complete,
		Warning:  warning,
	})
}
