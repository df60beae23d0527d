package ledger

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bodycount/backend/internal/middleware"
	"github.com/bodycount/backend/internal/models"
)

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

type balanceResponse struct {
	Credits int                   `json:"credits"`
	Entries []*models.CreditEntry `json:"entries"`
}

// Balance handles GET /api/v1/credits: the current balance plus recent
// ledger entries, newest first.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), *userID)
	if err != nil {
		h.log.Error("failed to read balance", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	entries, err := h.svc.ListEntries(r.Context(), *userID)
	if err != nil {
		h.log.Error("failed to list credit entries", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if entries == nil {
		entries = []*models.CreditEntry{}
	}
	writeJSON(w, http.StatusOK, balanceResponse{Credits: balance, Entries: entries})
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
