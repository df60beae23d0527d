package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bodycount/backend/internal/models"
)

// ErrInsufficientCredits is an expected business outcome, not a failure:
// callers surface it with a prompt to purchase more credits.
var ErrInsufficientCredits = errInsufficientCredits

// GrantResult reports one daily-bonus attempt. Granted is false when the
// bonus was already applied today.
type GrantResult struct {
	Granted    bool `json:"granted"`
	NewBalance int  `json:"new_balance"`
}

// Store is the persistence contract the service needs. *Repository satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	GrantDailyBonus(ctx context.Context, userID uuid.UUID, amount int) (granted bool, newBalance int, err error)
	Debit(ctx context.Context, userID uuid.UUID, amount int, reference *string) (int, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int, entryType string, reference *string) (int, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]*models.CreditEntry, error)
}

type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	GrantDailyBonus(ctx context.Context, userID uuid.UUID) (GrantResult, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int, reference string) (int, error)
	Refund(ctx context.Context, userID uuid.UUID, amount int, reference string) (int, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int, entryType, reference string) (int, error)
	ListEntries(ctx context.Context, userID uuid.UUID) ([]*models.CreditEntry, error)
}

type service struct {
	store       Store
	bonusAmount int
}

// NewService creates the credit ledger service. bonusAmount is the fixed
// daily grant from configuration.
func NewService(store Store, bonusAmount int) Service {
	return &service{store: store, bonusAmount: bonusAmount}
}

var _ Service = (*service)(nil)

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.GetBalance(ctx, userID)
}

func (s *service) GrantDailyBonus(ctx context.Context, userID uuid.UUID) (GrantResult, error) {
	granted, balance, err := s.store.GrantDailyBonus(ctx, userID, s.bonusAmount)
	if err != nil {
		return GrantResult{}, err
	}
	return GrantResult{Granted: granted, NewBalance: balance}, nil
}

func (s *service) Debit(ctx context.Context, userID uuid.UUID, amount int, reference string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return s.store.Debit(ctx, userID, amount, refPtr(reference))
}

// Refund compensates a failed charge by crediting the same amount back.
// Debits and refunds are plain commutative integer deltas, so concurrent
// requests compose without a read-modify-write window.
func (s *service) Refund(ctx context.Context, userID uuid.UUID, amount int, reference string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("refund amount must be positive, got %d", amount)
	}
	return s.store.Credit(ctx, userID, amount, models.CreditEntryInsightRefund, refPtr(reference))
}

func (s *service) Credit(ctx context.Context, userID uuid.UUID, amount int, entryType, reference string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if entryType == "" {
		return 0, errors.New("credit entry type required")
	}
	return s.store.Credit(ctx, userID, amount, entryType, refPtr(reference))
}

func (s *service) ListEntries(ctx context.Context, userID uuid.UUID) ([]*models.CreditEntry, error) {
	return s.store.ListEntries(ctx, userID, 50)
}

func refPtr(reference string) *string {
	if reference == "" {
		return nil
	}
	return &reference
}
