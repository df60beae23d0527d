package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bodycount/backend/internal/models"
)

// ErrUnknownPack is returned for a checkout against a pack id outside the
// fixed catalog.
var ErrUnknownPack = errors.New("unknown credit pack")

// InsertCreditJobTxFunc enqueues a crediting job within the given
// transaction. Provided by main as a closure over river.Client.InsertTx.
type InsertCreditJobTxFunc func(ctx context.Context, tx pgx.Tx, args CreditPurchaseJobArgs) error

// SessionStore is the persistence contract for checkout sessions.
type SessionStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateSession(ctx context.Context, ev *models.PaymentEvent) error
	ConfirmTx(ctx context.Context, tx pgx.Tx, checkoutRef, processorEventID string) (bool, error)
}

type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, packID string) (*models.PaymentEvent, error)
	HandleConfirmation(ctx context.Context, checkoutRef, processorEventID string) (bool, error)
}

type service struct {
	store           SessionStore
	insertCreditJob InsertCreditJobTxFunc
	log             *slog.Logger
}

func NewService(store SessionStore, insertCreditJob InsertCreditJobTxFunc, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, insertCreditJob: insertCreditJob, log: log}
}

var _ Service = (*service)(nil)

// Checkout validates the pack and records a pending session. The returned
// event id is the reference the processor echoes back in its confirmation.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, packID string) (*models.PaymentEvent, error) {
	pack := models.PackByID(packID)
	if pack == nil {
		return nil, ErrUnknownPack
	}
	ev := &models.PaymentEvent{
		EventID: "cs_" + uuid.NewString(),
		UserID:  userID,
		PackID:  pack.ID,
		Credits: pack.Credits,
		Status:  models.PaymentStatusPending,
	}
	if err := s.store.CreateSession(ctx, ev); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return ev, nil
}

// HandleConfirmation processes one verified webhook delivery. Crediting is
// not done inline: a job is inserted in the same transaction that flips the
// session to received, so confirmation and crediting cannot diverge. The
// processor delivers at least once; repeated deliveries find the session
// already confirmed and return accepted=false without a second job.
func (s *service) HandleConfirmation(ctx context.Context, checkoutRef, processorEventID string) (bool, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	confirmed, err := s.store.ConfirmTx(ctx, tx, checkoutRef, processorEventID)
	if err != nil {
		return false, err
	}
	if !confirmed {
		s.log.Info("duplicate or unknown payment confirmation ignored",
			"checkout_ref", checkoutRef, "processor_event_id", processorEventID)
		return false, nil
	}
	if err := s.insertCreditJob(ctx, tx, CreditPurchaseJobArgs{EventID: checkoutRef}); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
