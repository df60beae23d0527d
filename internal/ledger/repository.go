package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodycount/backend/internal/models"
)

var errInsufficientCredits = errors.New("insufficient credits")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetBalance reads the stored balance. A user without a profile row has
// balance 0; the balance is never negative (CHECK constraint plus the
// conditional updates below).
func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var credits int
	err := r.pool.QueryRow(ctx, `
		SELECT credits FROM profiles WHERE id = $1
	`, userID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}

// GrantDailyBonus applies the daily bonus at most once per server calendar
// day. The conditional UPDATE is the sole arbiter: two concurrent sign-ins
// race on the same row and exactly one sees last_bonus_date < CURRENT_DATE.
func (r *Repository) GrantDailyBonus(ctx context.Context, userID uuid.UUID, amount int) (granted bool, newBalance int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE profiles
		SET credits = credits + $1, last_bonus_date = CURRENT_DATE, updated_at = now()
		WHERE id = $2 AND (last_bonus_date IS NULL OR last_bonus_date < CURRENT_DATE)
		RETURNING credits
	`, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already granted today: report the current balance unchanged.
		balance, err := r.GetBalance(ctx, userID)
		return false, balance, err
	}
	if err != nil {
		return false, 0, err
	}
	if err := r.insertEntry(ctx, tx, userID, models.CreditEntryDailyBonus, amount, newBalance, nil); err != nil {
		return false, 0, err
	}
	return true, newBalance, tx.Commit(ctx)
}

// Debit atomically decrements the balance if it covers amount. The WHERE
// clause serializes concurrent debits at the store: with balance for one
// charge, two debits yield one success and one errInsufficientCredits.
func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, amount int, reference *string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var newBalance int
	err = tx.QueryRow(ctx, `
		UPDATE profiles
		SET credits = credits - $1, updated_at = now()
		WHERE id = $2 AND credits >= $1
		RETURNING credits
	`, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errInsufficientCredits
	}
	if err != nil {
		return 0, err
	}
	if err := r.insertEntry(ctx, tx, userID, models.CreditEntryInsightCharge, -amount, newBalance, reference); err != nil {
		return 0, err
	}
	return newBalance, tx.Commit(ctx)
}

// Credit adds amount unconditionally and records an audit entry. Used for
// purchases, refunds and the signup grant; never decrements.
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amount int, entryType string, reference *string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	newBalance, err := r.creditInTx(ctx, tx, userID, amount, entryType, reference)
	if err != nil {
		return 0, err
	}
	return newBalance, tx.Commit(ctx)
}

// CreditTx is Credit composed into a caller-owned transaction, so crediting
// can commit atomically with other state (e.g. marking a payment event
// credited).
func (r *Repository) CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entryType string, reference *string) (int, error) {
	return r.creditInTx(ctx, tx, userID, amount, entryType, reference)
}

func (r *Repository) creditInTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entryType string, reference *string) (int, error) {
	var newBalance int
	err := tx.QueryRow(ctx, `
		UPDATE profiles
		SET credits = credits + $1, updated_at = now()
		WHERE id = $2
		RETURNING credits
	`, amount, userID).Scan(&newBalance)
	if err != nil {
		return 0, err
	}
	if err := r.insertEntry(ctx, tx, userID, entryType, amount, newBalance, reference); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (r *Repository) insertEntry(ctx context.Context, tx pgx.Tx, userID uuid.UUID, entryType string, amount, balanceAfter int, reference *string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO credit_entries (id, user_id, entry_type, amount, balance_after, reference)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), userID, entryType, amount, balanceAfter, reference)
	return err
}

// ListEntries returns the newest audit entries for the user.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]*models.CreditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, entry_type, amount, balance_after, reference, created_at
		FROM credit_entries WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditEntry
	for rows.Next() {
		var e models.CreditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
