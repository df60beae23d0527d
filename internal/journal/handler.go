package journal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/bodycount/backend/internal/middleware"
	"github.com/bodycount/backend/internal/models"
)

// Store is what the handler needs from the repository.
type Store interface {
	CreateRelationship(ctx context.Context, rel *models.Relationship) error
	ListRelationships(ctx context.Context, userID uuid.UUID) ([]*models.Relationship, error)
	UpdateRelationship(ctx context.Context, id, userID uuid.UUID, typ *string, rating *int, duration, location, feelings *string) (*models.Relationship, error)
	DeleteRelationship(ctx context.Context, id, userID uuid.UUID) error

	CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error
	ListWishlist(ctx context.Context, userID uuid.UUID) ([]*models.WishlistItem, error)
	UpdateWishlistItem(ctx context.Context, id, userID uuid.UUID, title, category, priority *string, completed *bool) (*models.WishlistItem, error)
	DeleteWishlistItem(ctx context.Context, id, userID uuid.UUID) error

	GetMirror(ctx context.Context, userID uuid.UUID) (*models.MirrorData, error)
	UpsertMirror(ctx context.Context, m *models.MirrorData) error
}

var _ Store = (*Repository)(nil)

type Handler struct {
	store Store
	log   *slog.Logger
}

func NewHandler(store Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

type relationshipRequest struct {
	Type     *string `json:"type"`
	Rating   *int    `json:"rating"`
	Duration *string `json:"duration"`
	Location *string `json:"location"`
	Feelings *string `json:"feelings"`
}

func (req *relationshipRequest) validate(requireType bool) string {
	if requireType && (req.Type == nil || *req.Type == "") {
		return "type is required"
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 10) {
		return "rating must be between 1 and 10"
	}
	return ""
}

// CreateRelationship handles POST /api/v1/relationships.
func (h *Handler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req relationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if msg := req.validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	rel := &models.Relationship{
		UserID:   *userID,
		Type:     *req.Type,
		Rating:   req.Rating,
		Duration: req.Duration,
		Location: req.Location,
		Feelings: req.Feelings,
	}
	if err := h.store.CreateRelationship(r.Context(), rel); err != nil {
		h.log.Error("failed to create relationship", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

// ListRelationships handles GET /api/v1/relationships.
func (h *Handler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	rels, err := h.store.ListRelationships(r.Context(), *userID)
	if err != nil {
		h.log.Error("failed to list relationships", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if rels == nil {
		rels = []*models.Relationship{}
	}
	writeJSON(w, http.StatusOK, rels)
}

// UpdateRelationship handles PATCH /api/v1/relationships/{id}.
func (h *Handler) UpdateRelationship(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req relationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if msg := req.validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	rel, err := h.store.UpdateRelationship(r.Context(), id, userID, req.Type, req.Rating, req.Duration, req.Location, req.Feelings)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		h.log.Error("failed to update relationship", "user_id", userID, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// DeleteRelationship handles DELETE /api/v1/relationships/{id}.
func (h *Handler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.scope(w, r)
	if !ok {
		return
	}
	err := h.store.DeleteRelationship(r.Context(), id, userID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		h.log.Error("failed to delete relationship", "user_id", userID, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wishlistRequest struct {
	Title     *string `json:"title"`
	Category  *string `json:"category"`
	Priority  *string `json:"priority"`
	Completed *bool   `json:"completed"`
}

// CreateWishlistItem handles POST /api/v1/wishlist.
func (h *Handler) CreateWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req wishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Title == nil || *req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}

	item := &models.WishlistItem{
		UserID:   *userID,
		Title:    *req.Title,
		Category: strOrDefault(req.Category, "general"),
		Priority: strOrDefault(req.Priority, "medium"),
	}
	if req.Completed != nil {
		item.Completed = *req.Completed
	}
	if err := h.store.CreateWishlistItem(r.Context(), item); err != nil {
		h.log.Error("failed to create wishlist item", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ListWishlist handles GET /api/v1/wishlist.
func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	items, err := h.store.ListWishlist(r.Context(), *userID)
	if err != nil {
		h.log.Error("failed to list wishlist", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if items == nil {
		items = []*models.WishlistItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// UpdateWishlistItem handles PATCH /api/v1/wishlist/{id}. Toggling
// completion is an update with only the completed field set.
func (h *Handler) UpdateWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req wishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Title != nil && *req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title cannot be empty")
		return
	}

	item, err := h.store.UpdateWishlistItem(r.Context(), id, userID, req.Title, req.Category, req.Priority, req.Completed)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		h.log.Error("failed to update wishlist item", "user_id", userID, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteWishlistItem handles DELETE /api/v1/wishlist/{id}.
func (h *Handler) DeleteWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.scope(w, r)
	if !ok {
		return
	}
	err := h.store.DeleteWishlistItem(r.Context(), id, userID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		h.log.Error("failed to delete wishlist item", "user_id", userID, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mirrorRequest struct {
	Self            []string `json:"self"`
	Others          []string `json:"others"`
	Growth          []string `json:"growth"`
	ConfidenceLevel *int     `json:"confidence_level"`
}

// GetMirror handles GET /api/v1/mirror.
func (h *Handler) GetMirror(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	m, err := h.store.GetMirror(r.Context(), *userID)
	if err != nil {
		h.log.Error("failed to get mirror data", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// PutMirror handles PUT /api/v1/mirror. The sheet is replaced wholesale.
func (h *Handler) PutMirror(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req mirrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.ConfidenceLevel != nil && (*req.ConfidenceLevel < 1 || *req.ConfidenceLevel > 10) {
		writeError(w, http.StatusBadRequest, "invalid_request", "confidence_level must be between 1 and 10")
		return
	}

	m := &models.MirrorData{
		UserID:          *userID,
		Self:            emptyIfNil(req.Self),
		Others:          emptyIfNil(req.Others),
		Growth:          emptyIfNil(req.Growth),
		ConfidenceLevel: req.ConfidenceLevel,
	}
	if err := h.store.UpsertMirror(r.Context(), m); err != nil {
		h.log.Error("failed to save mirror data", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// scope authenticates the request and parses the path id. An unparseable id
// gets the same 404 as a miss.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "")
		return uuid.Nil, uuid.Nil, false
	}
	return *userID, id, true
}

func strOrDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}
