package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/bodycount/backend/internal/models"
)

type CreditPurchaseJobArgs struct {
	EventID string `json:"event_id"`
}

func (CreditPurchaseJobArgs) Kind() string { return "credit_purchase" }

// PurchaseStore is the subset of the billing repository the worker needs.
type PurchaseStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	MarkCreditedTx(ctx context.Context, tx pgx.Tx, eventID string) (*models.PaymentEvent, error)
}

// CreditApplier applies the purchase to the ledger inside the worker's
// transaction. *ledger.Repository satisfies it.
type CreditApplier interface {
	CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entryType string, reference *string) (int, error)
}

// CreditPurchaseWorker applies a confirmed purchase to the ledger. The
// status transition and the balance credit share one transaction, so a
// River retry after a crash finds the event already credited and does
// nothing.
type CreditPurchaseWorker struct {
	river.WorkerDefaults[CreditPurchaseJobArgs]
	store  PurchaseStore
	ledger CreditApplier
}

func NewCreditPurchaseWorker(store PurchaseStore, ledgerRepo CreditApplier) *CreditPurchaseWorker {
	return &CreditPurchaseWorker{store: store, ledger: ledgerRepo}
}

func (w *CreditPurchaseWorker) Work(ctx context.Context, job *river.Job[CreditPurchaseJobArgs]) error {
	tx, err := w.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ev, err := w.store.MarkCreditedTx(ctx, tx, job.Args.EventID)
	if err != nil {
		return fmt.Errorf("mark payment credited: %w", err)
	}
	if ev == nil {
		// Already credited by an earlier attempt.
		return nil
	}
	if _, err := w.ledger.CreditTx(ctx, tx, ev.UserID, ev.Credits, models.CreditEntryPurchase, &ev.EventID); err != nil {
		return fmt.Errorf("credit purchase %s: %w", ev.EventID, err)
	}
	return tx.Commit(ctx)
}
