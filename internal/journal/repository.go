package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodycount/backend/internal/models"
)

// ErrNotFound covers both a missing row and a row owned by another user;
// callers cannot tell the two apart.
var ErrNotFound = errors.New("journal entry not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// --- Relationships ---

func (r *Repository) CreateRelationship(ctx context.Context, rel *models.Relationship) error {
	rel.ID = uuid.New()
	query := `
		INSERT INTO relationships (id, user_id, type, rating, duration, location, feelings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		rel.ID, rel.UserID, rel.Type, rel.Rating, rel.Duration, rel.Location, rel.Feelings,
	).Scan(&rel.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

func (r *Repository) ListRelationships(ctx context.Context, userID uuid.UUID) ([]*models.Relationship, error) {
	query := `
		SELECT id, user_id, type, rating, duration, location, feelings, created_at
		FROM relationships
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	var rels []*models.Relationship
	for rows.Next() {
		var rel models.Relationship
		if err := rows.Scan(&rel.ID, &rel.UserID, &rel.Type, &rel.Rating,
			&rel.Duration, &rel.Location, &rel.Feelings, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rels = append(rels, &rel)
	}
	return rels, rows.Err()
}

func (r *Repository) UpdateRelationship(ctx context.Context, id, userID uuid.UUID, typ *string, rating *int, duration, location, feelings *string) (*models.Relationship, error) {
	query := `
		UPDATE relationships
		SET type = COALESCE($3, type),
		    rating = COALESCE($4, rating),
		    duration = COALESCE($5, duration),
		    location = COALESCE($6, location),
		    feelings = COALESCE($7, feelings)
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, type, rating, duration, location, feelings, created_at`

	var rel models.Relationship
	err := r.pool.QueryRow(ctx, query, id, userID, typ, rating, duration, location, feelings).Scan(
		&rel.ID, &rel.UserID, &rel.Type, &rel.Rating,
		&rel.Duration, &rel.Location, &rel.Feelings, &rel.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update relationship: %w", err)
	}
	return &rel, nil
}

func (r *Repository) DeleteRelationship(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM relationships WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Wishlist ---

func (r *Repository) CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	item.ID = uuid.New()
	query := `
		INSERT INTO wishlist_items (id, user_id, title, category, priority, completed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		item.ID, item.UserID, item.Title, item.Category, item.Priority, item.Completed,
	).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wishlist item: %w", err)
	}
	return nil
}

func (r *Repository) ListWishlist(ctx context.Context, userID uuid.UUID) ([]*models.WishlistItem, error) {
	query := `
		SELECT id, user_id, title, category, priority, completed, created_at
		FROM wishlist_items
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	var items []*models.WishlistItem
	for rows.Next() {
		var item models.WishlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Category,
			&item.Priority, &item.Completed, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *Repository) UpdateWishlistItem(ctx context.Context, id, userID uuid.UUID, title, category, priority *string, completed *bool) (*models.WishlistItem, error) {
	query := `
		UPDATE wishlist_items
		SET title = COALESCE($3, title),
		    category = COALESCE($4, category),
		    priority = COALESCE($5, priority),
		    completed = COALESCE($6, completed)
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, category, priority, completed, created_at`

	var item models.WishlistItem
	err := r.pool.QueryRow(ctx, query, id, userID, title, category, priority, completed).Scan(
		&item.ID, &item.UserID, &item.Title, &item.Category,
		&item.Priority, &item.Completed, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update wishlist item: %w", err)
	}
	return &item, nil
}

func (r *Repository) DeleteWishlistItem(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM wishlist_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Mirror ---

// GetMirror returns an empty sheet rather than an error when the user has
// never saved one.
func (r *Repository) GetMirror(ctx context.Context, userID uuid.UUID) (*models.MirrorData, error) {
	query := `
		SELECT user_id, self_view, others_view, growth_areas, confidence_level, updated_at
		FROM mirror_data
		WHERE user_id = $1`

	var m models.MirrorData
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&m.UserID, &m.Self, &m.Others, &m.Growth, &m.ConfidenceLevel, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.MirrorData{
			UserID:    userID,
			Self:      []string{},
			Others:    []string{},
			Growth:    []string{},
			UpdatedAt: time.Time{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mirror data: %w", err)
	}
	return &m, nil
}

// UpsertMirror replaces the whole sheet; partial merges happen client-side.
func (r *Repository) UpsertMirror(ctx context.Context, m *models.MirrorData) error {
	query := `
		INSERT INTO mirror_data (user_id, self_view, others_view, growth_areas, confidence_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO UPDATE
		SET self_view = EXCLUDED.self_view,
		    others_view = EXCLUDED.others_view,
		    growth_areas = EXCLUDED.growth_areas,
		    confidence_level = EXCLUDED.confidence_level,
		    updated_at = now()
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		m.UserID, m.Self, m.Others, m.Growth, m.ConfidenceLevel,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save mirror data: %w", err)
	}
	return nil
}
