package insight

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bodycount/backend/internal/ledger"
	"github.com/bodycount/backend/internal/llm"
	"github.com/bodycount/backend/internal/middleware"
	"github.com/bodycount/backend/internal/models"
)

// Wire field names follow the public API contract (camelCase).

type generateRequest struct {
	Relationships    []relationshipInput `json:"relationships"`
	WishlistItems    []wishlistInput     `json:"wishlistItems"`
	MirrorData       *mirrorInput        `json:"mirrorData"`
	UserAge          *int                `json:"userAge,omitempty"`
	PreviousAnalyses []historyInput      `json:"previousAnalyses,omitempty"`
}

type relationshipInput struct {
	Type     string  `json:"type"`
	Rating   *int    `json:"rating,omitempty"`
	Duration *string `json:"duration,omitempty"`
	Location *string `json:"location,omitempty"`
	Feelings *string `json:"feelings,omitempty"`
}

type wishlistInput struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Completed bool   `json:"completed"`
}

type mirrorInput struct {
	Self            []string `json:"self"`
	Others          []string `json:"others"`
	Growth          []string `json:"growth"`
	ConfidenceLevel *int     `json:"confidenceLevel,omitempty"`
}

type historyInput struct {
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Analysis string    `json:"analysis"`
	Tags     []string  `json:"tags,omitempty"`
}

type generateResponse struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis"`
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

// Generate handles POST /api/v1/insights/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	analysis, err := h.svc.Generate(r.Context(), *userID, toRequest(req))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Success: true, Analysis: analysis})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoRelationships), errors.Is(err, ErrInvalidAge):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ledger.ErrInsufficientCredits):
		writeError(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits; purchase a credit pack to continue")
	default:
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			// Provider-side status codes propagate; everything else is a 502.
			// The underlying provider message stays in the server log only.
			status := llm.StatusCode(provErr.Unwrap())
			if status < 400 {
				status = http.StatusBadGateway
			}
			writeError(w, status, "provider_error", "analysis generation failed; your credits were refunded")
			return
		}
		h.log.Error("generate insight failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func toRequest(req generateRequest) Request {
	out := Request{UserAge: req.UserAge}
	for _, r := range req.Relationships {
		out.Relationships = append(out.Relationships, models.Relationship{
			Type:     r.Type,
			Rating:   r.Rating,
			Duration: r.Duration,
			Location: r.Location,
			Feelings: r.Feelings,
		})
	}
	for _, item := range req.WishlistItems {
		out.Wishlist = append(out.Wishlist, models.WishlistItem{
			Title:     item.Title,
			Category:  item.Category,
			Priority:  item.Priority,
			Completed: item.Completed,
		})
	}
	if req.MirrorData != nil {
		out.Mirror = &models.MirrorData{
			Self:            req.MirrorData.Self,
			Others:          req.MirrorData.Others,
			Growth:          req.MirrorData.Growth,
			ConfidenceLevel: req.MirrorData.ConfidenceLevel,
		}
	}
	if req.PreviousAnalyses != nil {
		out.History = make([]models.ContextEntry, 0, len(req.PreviousAnalyses))
		for _, h := range req.PreviousAnalyses {
			out.History = append(out.History, models.ContextEntry{
				Title:    h.Title,
				Date:     h.Date,
				Analysis: h.Analysis,
				Tags:     h.Tags,
			})
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}
