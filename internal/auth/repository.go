package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
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

// Create inserts a new profile with its starting balance and the matching
// signup_grant audit entry in one transaction.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName string, startingCredits int) (*models.Profile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p := &models.Profile{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: displayName,
		Credits:     startingCredits,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO profiles (id, email, display_name, password_hash, credits)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, p.ID, email, displayName, passwordHash, startingCredits).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if startingCredits > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO credit_entries (id, user_id, entry_type, amount, balance_after)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), p.ID, models.CreditEntrySignupGrant, startingCredits, startingCredits)
		if err != nil {
			return nil, err
		}
	}
	return p, tx.Commit(ctx)
}

// GetByEmail returns the profile and password hash for login, or nil when no
// profile carries that email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Profile, string, error) {
	var p models.Profile
	var passwordHash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, credits, age, last_bonus_date, created_at, updated_at
		FROM profiles WHERE email = $1
	`, email).Scan(&p.ID, &p.Email, &p.DisplayName, &passwordHash, &p.Credits, &p.Age, &p.LastBonusDate, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &p, passwordHash, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	var passwordHash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, credits, age, last_bonus_date, created_at, updated_at
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.Email, &p.DisplayName, &passwordHash, &p.Credits, &p.Age, &p.LastBonusDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.PasswordHash = passwordHash
	return &p, nil
}

// UpdateSettings patches display name and age. Nil means keep.
func (r *Repository) UpdateSettings(ctx context.Context, id uuid.UUID, displayName *string, age *int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET display_name = COALESCE($2, display_name),
		    age = COALESCE($3, age),
		    updated_at = now()
		WHERE id = $1
	`, id, displayName, age)
	return err
}
