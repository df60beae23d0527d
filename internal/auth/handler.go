package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bodycount/backend/internal/ledger"
	"github.com/bodycount/backend/internal/middleware"
	"github.com/bodycount/backend/internal/models"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Credits     int    `json:"credits"`
	Age         *int   `json:"age,omitempty"`
}

type LoginResponse struct {
	Token        string `json:"token"`
	Credits      int    `json:"credits"`
	BonusGranted bool   `json:"bonus_granted"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Handler struct {
	svc    Service
	ledger ledger.Service
	repo   *Repository
	log    *slog.Logger
}

func NewHandler(svc Service, ledgerSvc ledger.Service, repo *Repository, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, ledger: ledgerSvc, repo: repo, log: log}
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email, password and display_name are required")
		return
	}
	profile, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "duplicate_email", "email already registered")
			return
		}
		h.log.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusCreated, profileToResponse(profile))
}

// Login handles POST /api/v1/auth/login. A successful sign-in attempts the
// daily bonus grant; the grant itself decides idempotence server-side, so
// two tabs logging in concurrently cannot double-grant.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}
	profile, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
			return
		}
		h.log.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	resp := LoginResponse{Token: token, Credits: profile.Credits}
	grant, err := h.ledger.GrantDailyBonus(r.Context(), profile.ID)
	if err != nil {
		// The sign-in itself succeeded; a failed grant must not block it.
		h.log.Error("daily bonus grant failed", "user_id", profile.ID, "error", err)
	} else {
		resp.BonusGranted = grant.Granted
		resp.Credits = grant.NewBalance
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/account/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	profile, err := h.repo.GetByID(r.Context(), *userID)
	if err != nil {
		h.log.Error("get profile failed", "error", err)
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(profile))
}

// UpdateSettings handles PATCH /api/v1/account/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	var req struct {
		DisplayName *string `json:"display_name,omitempty"`
		Age         *int    `json:"age,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	if req.Age != nil && (*req.Age < models.MinAge || *req.Age > models.MaxAge) {
		writeError(w, http.StatusBadRequest, "validation_error", "age must be between 18 and 99")
		return
	}
	if req.DisplayName != nil && *req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "display_name must not be empty")
		return
	}
	if err := h.repo.UpdateSettings(r.Context(), *userID, req.DisplayName, req.Age); err != nil {
		h.log.Error("update settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	profile, err := h.repo.GetByID(r.Context(), *userID)
	if err != nil {
		h.log.Error("reload profile failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(profile))
}

func profileToResponse(p *models.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID.String(),
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Credits:     p.Credits,
		Age:         p.Age,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}
