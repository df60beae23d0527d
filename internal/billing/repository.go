package billing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodycount/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateSession records a pending checkout keyed by our own reference.
func (r *Repository) CreateSession(ctx context.Context, ev *models.PaymentEvent) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payment_events (event_id, user_id, pack_id, credits, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, ev.EventID, ev.UserID, ev.PackID, ev.Credits, models.PaymentStatusPending).Scan(&ev.CreatedAt)
}

// ConfirmTx marks a pending session received. The status predicate plus the
// unique processor_event_id make redelivered confirmations no-ops: only the
// first delivery flips the row and enqueues crediting.
func (r *Repository) ConfirmTx(ctx context.Context, tx pgx.Tx, checkoutRef, processorEventID string) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE payment_events
		SET status = $3, processor_event_id = $2
		WHERE event_id = $1 AND status = $4
	`, checkoutRef, processorEventID, models.PaymentStatusReceived, models.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// MarkCreditedTx transitions received -> credited and returns the event, or
// nil when the event was already credited (worker retry after a crash
// between credit and ack).
func (r *Repository) MarkCreditedTx(ctx context.Context, tx pgx.Tx, eventID string) (*models.PaymentEvent, error) {
	var ev models.PaymentEvent
	err := tx.QueryRow(ctx, `
		UPDATE payment_events
		SET status = $2
		WHERE event_id = $1 AND status = $3
		RETURNING event_id, user_id, pack_id, credits, status, created_at
	`, eventID, models.PaymentStatusCredited, models.PaymentStatusReceived).
		Scan(&ev.EventID, &ev.UserID, &ev.PackID, &ev.Credits, &ev.Status, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
