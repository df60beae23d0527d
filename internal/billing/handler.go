package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bodycount/backend/internal/middleware"
	"github.com/bodycount/backend/internal/models"
)

type checkoutRequest struct {
	PackID string `json:"pack_id"`
}

type checkoutResponse struct {
	CheckoutRef string            `json:"checkout_ref"`
	Pack        models.CreditPack `json:"pack"`
}

// webhookPayload is the processor's confirmation delivery.
type webhookPayload struct {
	EventID     string `json:"event_id"`
	CheckoutRef string `json:"checkout_ref"`
	Status      string `json:"status"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Handler struct {
	svc           Service
	webhookSecret string
	log           *slog.Logger
}

func NewHandler(svc Service, webhookSecret string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, webhookSecret: webhookSecret, log: log}
}

// Packs handles GET /api/v1/billing/packs.
func (h *Handler) Packs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"packs": models.CreditPacks})
}

// Checkout handles POST /api/v1/billing/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	ev, err := h.svc.Checkout(r.Context(), *userID, req.PackID)
	if err != nil {
		if errors.Is(err, ErrUnknownPack) {
			writeError(w, http.StatusBadRequest, "unknown_pack", "pack_id must be one of the catalog ids")
			return
		}
		h.log.Error("checkout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{CheckoutRef: ev.EventID, Pack: *models.PackByID(ev.PackID)})
}

// Webhook handles POST /api/v1/billing/webhook. The processor signs the raw
// body; an invalid signature is rejected before any parsing side effects.
// Duplicate deliveries are acknowledged with 200 so the processor stops
// retrying, without crediting twice.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "")
		return
	}
	if !VerifySignature(h.webhookSecret, body, r.Header.Get(SignatureHeader)) {
		writeError(w, http.StatusUnauthorized, "invalid_signature", "")
		return
	}
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	if payload.Status != "succeeded" {
		// Failed or cancelled payments never credit; acknowledge and move on.
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	accepted, err := h.svc.HandleConfirmation(r.Context(), payload.CheckoutRef, payload.EventID)
	if err != nil {
		h.log.Error("webhook confirmation failed", "checkout_ref", payload.CheckoutRef, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true, "credited": accepted})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}
