package archive

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodycount/backend/internal/models"
)

var errNotFound = errors.New("archived insight not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the insight. archived_at comes from the database clock and
// generated_at is clamped to it, so archived_at >= generated_at always holds.
func (r *Repository) Create(ctx context.Context, ins *models.ArchivedInsight) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO archived_insights (id, user_id, title, analysis_text, data_snapshot, tags, folder_name, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, LEAST($8::timestamptz, now()))
		RETURNING generated_at, archived_at
	`, ins.ID, ins.UserID, ins.Title, ins.AnalysisText, ins.DataSnapshot, ins.Tags, ins.FolderName, ins.GeneratedAt).
		Scan(&ins.GeneratedAt, &ins.ArchivedAt)
}

const selectColumns = `id, user_id, title, analysis_text, data_snapshot, tags, folder_name, generated_at, archived_at`

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ArchivedInsight, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM archived_insights WHERE user_id = $1 ORDER BY archived_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanInsights(rows)
}

// Search matches the query case-insensitively against title, analysis text
// and any tag. Owner-scoped like every other read.
func (r *Repository) Search(ctx context.Context, userID uuid.UUID, query string) ([]*models.ArchivedInsight, error) {
	pattern := "%" + query + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM archived_insights
		WHERE user_id = $1
		  AND (title ILIKE $2 OR analysis_text ILIKE $2
		       OR EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE $2))
		ORDER BY archived_at DESC
	`, userID, pattern)
	if err != nil {
		return nil, err
	}
	return scanInsights(rows)
}

// Update edits the mutable fields. Nil means keep the stored value. The
// user_id predicate makes cross-user edits structurally impossible; a miss
// is indistinguishable from a record that does not exist.
func (r *Repository) Update(ctx context.Context, id, userID uuid.UUID, title *string, tags []string, folderName *string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE archived_insights
		SET title = COALESCE($3, title),
		    tags = COALESCE($4, tags),
		    folder_name = COALESCE($5, folder_name)
		WHERE id = $1 AND user_id = $2
	`, id, userID, title, tags, folderName)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM archived_insights WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

// Recent returns the newest insights for context assembly. Truncation to the
// context window's character budget happens in the service.
func (r *Repository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ArchivedInsight, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM archived_insights WHERE user_id = $1 ORDER BY archived_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanInsights(rows)
}

func (r *Repository) Folders(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT folder_name FROM archived_insights WHERE user_id = $1 ORDER BY folder_name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var folders []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func scanInsights(rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}) ([]*models.ArchivedInsight, error) {
	defer rows.Close()
	var list []*models.ArchivedInsight
	for rows.Next() {
		var ins models.ArchivedInsight
		if err := rows.Scan(&ins.ID, &ins.UserID, &ins.Title, &ins.AnalysisText, &ins.DataSnapshot,
			&ins.Tags, &ins.FolderName, &ins.GeneratedAt, &ins.ArchivedAt); err != nil {
			return nil, err
		}
		list = append(list, &ins)
	}
	return list, rows.Err()
}
