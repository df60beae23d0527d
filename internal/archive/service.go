package archive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bodycount/backend/internal/models"
)

// ErrNotFound covers both a genuinely missing record and a record owned by
// another user: callers must not be able to tell the difference.
var ErrNotFound = errNotFound

// ErrInvalidInput is a validation failure on archive input.
var ErrInvalidInput = errors.New("title and analysis text are required")

const (
	// contextWindowLimit is the default and maximum history size.
	contextWindowLimit = 5
	// contextAnalysisLimit caps each entry's analysis text in the context
	// window. The prompt builder applies its own 200-character excerpt later.
	contextAnalysisLimit = 1000
)

// Store is the persistence contract; *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, ins *models.ArchivedInsight) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ArchivedInsight, error)
	Search(ctx context.Context, userID uuid.UUID, query string) ([]*models.ArchivedInsight, error)
	Update(ctx context.Context, id, userID uuid.UUID, title *string, tags []string, folderName *string) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ArchivedInsight, error)
	Folders(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type Service interface {
	Archive(ctx context.Context, userID uuid.UUID, title, analysisText string, snapshot json.RawMessage, generatedAt time.Time, tags []string, folderName string) (*models.ArchivedInsight, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.ArchivedInsight, error)
	Search(ctx context.Context, userID uuid.UUID, query string) ([]*models.ArchivedInsight, error)
	Update(ctx context.Context, id, userID uuid.UUID, title *string, tags []string, folderName *string) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	ContextWindow(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContextEntry, error)
	Folders(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

func (s *service) Archive(ctx context.Context, userID uuid.UUID, title, analysisText string, snapshot json.RawMessage, generatedAt time.Time, tags []string, folderName string) (*models.ArchivedInsight, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(analysisText) == "" {
		return nil, ErrInvalidInput
	}
	if folderName = strings.TrimSpace(folderName); folderName == "" {
		folderName = models.DefaultFolderName
	}
	if tags == nil {
		tags = []string{}
	}
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	ins := &models.ArchivedInsight{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        title,
		AnalysisText: analysisText,
		DataSnapshot: snapshot,
		Tags:         tags,
		FolderName:   folderName,
		GeneratedAt:  generatedAt,
	}
	if err := s.store.Create(ctx, ins); err != nil {
		return nil, err
	}
	return ins, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]*models.ArchivedInsight, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *service) Search(ctx context.Context, userID uuid.UUID, query string) ([]*models.ArchivedInsight, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.store.ListByUser(ctx, userID)
	}
	return s.store.Search(ctx, userID, query)
}

func (s *service) Update(ctx context.Context, id, userID uuid.UUID, title *string, tags []string, folderName *string) error {
	if title == nil && tags == nil && folderName == nil {
		return nil
	}
	if title != nil && strings.TrimSpace(*title) == "" {
		return ErrInvalidInput
	}
	return s.store.Update(ctx, id, userID, title, tags, folderName)
}

func (s *service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.Delete(ctx, id, userID)
}

// ContextWindow returns at most limit (default and cap 5) recent analyses,
// each cut to 1000 characters, in the exact shape the insight pipeline
// consumes.
func (s *service) ContextWindow(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContextEntry, error) {
	if limit <= 0 || limit > contextWindowLimit {
		limit = contextWindowLimit
	}
	recent, err := s.store.Recent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]models.ContextEntry, 0, len(recent))
	for _, ins := range recent {
		entries = append(entries, models.ContextEntry{
			Title:    ins.Title,
			Date:     ins.GeneratedAt,
			Analysis: truncate(ins.AnalysisText, contextAnalysisLimit),
			Tags:     ins.Tags,
		})
	}
	return entries, nil
}

func (s *service) Folders(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.store.Folders(ctx, userID)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
