package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bodycount/backend/internal/ledger"
	"github.com/bodycount/backend/internal/models"
)

// contextWindowLimit bounds the history supplied to one generation.
const contextWindowLimit = 5

// ErrNoRelationships is the validation failure for a generation request
// without any relationship records.
var ErrNoRelationships = errors.New("at least one relationship is required")

// ErrInvalidAge is returned when the request carries an age outside [18, 99].
var ErrInvalidAge = errors.New("age must be between 18 and 99")

// ProviderError wraps a failed or empty provider call. By the time the
// caller sees it the debited credits have already been refunded.
type ProviderError struct {
	cause error
}

func (e *ProviderError) Error() string { return "insight generation failed: " + e.cause.Error() }
func (e *ProviderError) Unwrap() error { return e.cause }

// Provider generates one completion for a system+user prompt pair.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// HistorySource supplies the bounded context window of archived analyses.
type HistorySource interface {
	ContextWindow(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContextEntry, error)
}

type Service interface {
	Generate(ctx context.Context, userID uuid.UUID, req Request) (string, error)
	Price() int
}

type service struct {
	ledger   ledger.Service
	provider Provider
	history  HistorySource
	price    int
	log      *slog.Logger
}

// NewService wires the pipeline. price is the fixed per-generation charge
// from configuration.
func NewService(ledgerSvc ledger.Service, provider Provider, history HistorySource, price int, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{ledger: ledgerSvc, provider: provider, history: history, price: price, log: log}
}

var _ Service = (*service)(nil)

func (s *service) Price() int { return s.price }

// Generate runs one request through validate -> charge -> generate. Credits
// are debited before the provider call so a retried hung request cannot
// produce free generations; any provider failure after the debit refunds the
// same amount before the error is reported.
func (s *service) Generate(ctx context.Context, userID uuid.UUID, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	if req.History == nil && s.history != nil {
		entries, err := s.history.ContextWindow(ctx, userID, contextWindowLimit)
		if err != nil {
			return "", fmt.Errorf("load context window: %w", err)
		}
		req.History = entries
	}
	if len(req.History) > contextWindowLimit {
		req.History = req.History[:contextWindowLimit]
	}

	requestID := uuid.New().String()
	if _, err := s.ledger.Debit(ctx, userID, s.price, requestID); err != nil {
		// Insufficient balance is an expected outcome; pass it through typed.
		return "", err
	}

	analysis, err := s.provider.Complete(ctx, SystemPrompt, BuildPrompt(req))
	if err != nil {
		s.log.Error("provider call failed, refunding", "user_id", userID, "request_id", requestID, "error", err)
		if _, refundErr := s.ledger.Refund(ctx, userID, s.price, requestID); refundErr != nil {
			// The user paid for nothing; this must be visible in the logs
			// and reconciled from the credit_entries audit trail.
			s.log.Error("refund after provider failure also failed", "user_id", userID, "request_id", requestID, "error", refundErr)
		}
		return "", &ProviderError{cause: err}
	}
	return analysis, nil
}

func validate(req Request) error {
	if len(req.Relationships) == 0 {
		return ErrNoRelationships
	}
	if req.UserAge != nil && (*req.UserAge < models.MinAge || *req.UserAge > models.MaxAge) {
		return ErrInvalidAge
	}
	return nil
}
