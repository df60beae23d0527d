package archive

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bodycount/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory Store mock. Every read and write filters by user_id the way the
// SQL predicates do, so ownership behavior can be exercised without Postgres.
// ---------------------------------------------------------------------------

type memStore struct {
	mu       sync.Mutex
	insights map[uuid.UUID]*models.ArchivedInsight
	now      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		insights: make(map[uuid.UUID]*models.ArchivedInsight),
		now:      time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) Create(_ context.Context, ins *models.ArchivedInsight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(time.Second)
	ins.ArchivedAt = m.now
	if ins.GeneratedAt.After(m.now) {
		ins.GeneratedAt = m.now
	}
	cp := *ins
	m.insights[ins.ID] = &cp
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.ArchivedInsight, error) {
	return m.filter(userID, func(*models.ArchivedInsight) bool { return true }, 0), nil
}

func (m *memStore) Search(_ context.Context, userID uuid.UUID, query string) ([]*models.ArchivedInsight, error) {
	q := strings.ToLower(query)
	return m.filter(userID, func(ins *models.ArchivedInsight) bool {
		if strings.Contains(strings.ToLower(ins.Title), q) || strings.Contains(strings.ToLower(ins.AnalysisText), q) {
			return true
		}
		for _, tag := range ins.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true
			}
		}
		return false
	}, 0), nil
}

func (m *memStore) Update(_ context.Context, id, userID uuid.UUID, title *string, tags []string, folderName *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, ok := m.insights[id]
	if !ok || ins.UserID != userID {
		return errNotFound
	}
	if title != nil {
		ins.Title = *title
	}
	if tags != nil {
		ins.Tags = tags
	}
	if folderName != nil {
		ins.FolderName = *folderName
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, ok := m.insights[id]
	if !ok || ins.UserID != userID {
		return errNotFound
	}
	delete(m.insights, id)
	return nil
}

func (m *memStore) Recent(_ context.Context, userID uuid.UUID, limit int) ([]*models.ArchivedInsight, error) {
	return m.filter(userID, func(*models.ArchivedInsight) bool { return true }, limit), nil
}

func (m *memStore) Folders(_ context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, ins := range m.insights {
		if ins.UserID == userID && !seen[ins.FolderName] {
			seen[ins.FolderName] = true
			out = append(out, ins.FolderName)
		}
	}
	return out, nil
}

// filter returns the user's insights newest-first, optionally limited.
func (m *memStore) filter(userID uuid.UUID, keep func(*models.ArchivedInsight) bool, limit int) []*models.ArchivedInsight {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ArchivedInsight
	for _, ins := range m.insights {
		if ins.UserID == userID && keep(ins) {
			cp := *ins
			out = append(out, &cp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ArchivedAt.After(out[i].ArchivedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func mustArchive(t *testing.T, svc Service, userID uuid.UUID, title, text string, tags []string) *models.ArchivedInsight {
	t.Helper()
	ins, err := svc.Archive(context.Background(), userID, title, text, json.RawMessage(`{}`), time.Now(), tags, "")
	if err != nil {
		t.Fatalf("archive %q: %v", title, err)
	}
	return ins
}

func TestArchive_DefaultsAndValidation(t *testing.T) {
	svc := NewService(newMemStore())
	user := uuid.New()

	ins := mustArchive(t, svc, user, "My first analysis", "text", nil)
	if ins.FolderName != models.DefaultFolderName {
		t.Fatalf("folder = %q, want %q", ins.FolderName, models.DefaultFolderName)
	}
	if ins.Tags == nil || len(ins.Tags) != 0 {
		t.Fatalf("tags = %#v, want empty non-nil slice", ins.Tags)
	}
	if ins.ArchivedAt.Before(ins.GeneratedAt) {
		t.Fatal("archived_at must not precede generated_at")
	}

	if _, err := svc.Archive(context.Background(), user, "  ", "text", nil, time.Now(), nil, ""); err != ErrInvalidInput {
		t.Fatalf("blank title: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Archive(context.Background(), user, "title", "", nil, time.Now(), nil, ""); err != ErrInvalidInput {
		t.Fatalf("blank analysis: err = %v, want ErrInvalidInput", err)
	}
}

func TestArchive_ClampsFutureGeneratedAt(t *testing.T) {
	svc := NewService(newMemStore())
	ins, err := svc.Archive(context.Background(), uuid.New(), "t", "text", nil, time.Now().Add(48*time.Hour), nil, "")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if ins.GeneratedAt.After(ins.ArchivedAt) {
		t.Fatal("future generated_at must be clamped so archived_at >= generated_at")
	}
}

func TestOwnershipIsolation(t *testing.T) {
	svc := NewService(newMemStore())
	userA, userB := uuid.New(), uuid.New()

	insB := mustArchive(t, svc, userB, "B's analysis", "private text", []string{"secret"})

	// A cannot see it.
	listA, err := svc.List(context.Background(), userA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listA) != 0 {
		t.Fatalf("user A sees %d of user B's insights", len(listA))
	}
	found, err := svc.Search(context.Background(), userA, "private")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 0 {
		t.Fatal("search leaked another user's insight")
	}

	// A cannot edit or delete it; the miss reads as not-found.
	title := "hijacked"
	if err := svc.Update(context.Background(), insB.ID, userA, &title, nil, nil); err != ErrNotFound {
		t.Fatalf("cross-user update: err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), insB.ID, userA); err != ErrNotFound {
		t.Fatalf("cross-user delete: err = %v, want ErrNotFound", err)
	}

	// B still owns an unmodified record.
	listB, _ := svc.List(context.Background(), userB)
	if len(listB) != 1 || listB[0].Title != "B's analysis" {
		t.Fatalf("user B's insight was modified: %+v", listB)
	}
}

func TestSearch_CaseInsensitiveOverTitleTextAndTags(t *testing.T) {
	svc := NewService(newMemStore())
	user := uuid.New()
	mustArchive(t, svc, user, "Spring Patterns", "analysis body", nil)
	mustArchive(t, svc, user, "other", "Deep ATTACHMENT themes", nil)
	mustArchive(t, svc, user, "third", "body", []string{"Growth"})
	mustArchive(t, svc, user, "unrelated", "nothing here", nil)

	for query, want := range map[string]int{"pattern": 1, "attachment": 1, "growth": 1, "": 4} {
		got, err := svc.Search(context.Background(), user, query)
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}
		if len(got) != want {
			t.Fatalf("search %q returned %d results, want %d", query, len(got), want)
		}
	}
}

func TestContextWindow_BoundAndTruncation(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	user := uuid.New()

	long := strings.Repeat("x", 2500)
	for i := 0; i < 7; i++ {
		mustArchive(t, svc, user, "analysis", long, nil)
	}

	entries, err := svc.ContextWindow(context.Background(), user, 0)
	if err != nil {
		t.Fatalf("context window: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("context window size = %d, want 5", len(entries))
	}
	for i, e := range entries {
		if n := len([]rune(e.Analysis)); n > 1000 {
			t.Fatalf("entry %d analysis length = %d, want <= 1000", i, n)
		}
	}

	// A smaller explicit limit is honored; larger ones are capped.
	two, _ := svc.ContextWindow(context.Background(), user, 2)
	if len(two) != 2 {
		t.Fatalf("limit 2 returned %d entries", len(two))
	}
	ten, _ := svc.ContextWindow(context.Background(), user, 10)
	if len(ten) != 5 {
		t.Fatalf("limit 10 returned %d entries, want capped at 5", len(ten))
	}
}

func TestFolders_DistinctPerUser(t *testing.T) {
	svc := NewService(newMemStore())
	user := uuid.New()
	other := uuid.New()

	if _, err := svc.Archive(context.Background(), user, "a", "t", nil, time.Now(), nil, "Work"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Archive(context.Background(), user, "b", "t", nil, time.Now(), nil, "Work"); err != nil {
		t.Fatal(err)
	}
	mustArchive(t, svc, user, "c", "t", nil) // Uncategorized
	if _, err := svc.Archive(context.Background(), other, "d", "t", nil, time.Now(), nil, "Private"); err != nil {
		t.Fatal(err)
	}

	folders, err := svc.Folders(context.Background(), user)
	if err != nil {
		t.Fatalf("folders: %v", err)
	}
	if len(folders) != 2 {
		t.Fatalf("folders = %v, want 2 distinct values", folders)
	}
	for _, f := range folders {
		if f == "Private" {
			t.Fatal("folders leaked another user's folder")
		}
	}
}
