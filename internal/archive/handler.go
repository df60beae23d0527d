package archive

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bodycount/backend/internal/middleware"
	"github.com/bodycount/backend/internal/models"
)

type archiveRequest struct {
	Title        string          `json:"title"`
	AnalysisText string          `json:"analysis_text"`
	DataSnapshot json.RawMessage `json:"data_snapshot,omitempty"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Tags         []string        `json:"tags,omitempty"`
	FolderName   string          `json:"folder_name,omitempty"`
}

type updateRequest struct {
	Title      *string  `json:"title,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	FolderName *string  `json:"folder_name,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Create handles POST /api/v1/insights/archive.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	ins, err := h.svc.Archive(r.Context(), *userID, req.Title, req.AnalysisText, req.DataSnapshot, req.GeneratedAt, req.Tags, req.FolderName)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.log.Error("archive insight failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusCreated, ins)
}

// List handles GET /api/v1/insights/archive. A ?q= parameter switches to
// case-insensitive substring search over title, analysis text and tags.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	list, err := h.svc.Search(r.Context(), *userID, r.URL.Query().Get("q"))
	if err != nil {
		h.log.Error("list archived insights failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if list == nil {
		list = []*models.ArchivedInsight{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Update handles PATCH /api/v1/insights/archive/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	err := h.svc.Update(r.Context(), id, userID, req.Title, req.Tags, req.FolderName)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case err != nil:
		h.log.Error("update archived insight failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Delete handles DELETE /api/v1/insights/archive/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.scope(w, r)
	if !ok {
		return
	}
	err := h.svc.Delete(r.Context(), id, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
	case err != nil:
		h.log.Error("delete archived insight failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Folders handles GET /api/v1/insights/folders.
func (h *Handler) Folders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	folders, err := h.svc.Folders(r.Context(), *userID)
	if err != nil {
		h.log.Error("list folders failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"folders": folders})
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (userID, id uuid.UUID, ok bool) {
	uid := middleware.UserIDFromCtx(r.Context())
	if uid == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "")
		return uuid.Nil, uuid.Nil, false
	}
	return *uid, id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}
