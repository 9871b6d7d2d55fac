package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/inkflow/internal/adapters/render"
	"github.com/okian/inkflow/internal/adapters/repository"
	"github.com/okian/inkflow/internal/domain/types"
)

const (
	defaultListLimit = 100
	previewSuffix    = "/preview.png"
)

// StrokesHandler serves archived stroke snapshots and their previews.
type StrokesHandler struct {
	deps Dependencies
}

// NewStrokesHandler creates a new strokes handler.
func NewStrokesHandler(deps Dependencies) *StrokesHandler {
	return &StrokesHandler{deps: deps}
}

// HandleListStrokes handles GET /strokes?surface=&status=&limit= requests.
func (h *StrokesHandler) HandleListStrokes(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_strokes"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	status, ok := types.ParseStatus(q.Get("status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	views, err := h.deps.Strokes(r.Context(), repository.Query{
		SurfaceID: q.Get("surface"),
		Status:    status,
		Limit:     limit,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidLimit) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGetStroke handles GET /strokes/{id} and GET /strokes/{id}/preview.png.
func (h *StrokesHandler) HandleGetStroke(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stroke"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/strokes/")
	preview := strings.HasSuffix(path, previewSuffix)
	id := strings.TrimSuffix(path, previewSuffix)
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if preview {
		h.servePreview(w, r, id)
		return
	}

	view, err := h.deps.Stroke(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *StrokesHandler) servePreview(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_preview"
	img, err := h.deps.Preview(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	case errors.Is(err, render.ErrEmptyStroke):
		writeError(w, http.StatusUnprocessableEntity, "empty_stroke", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
