package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/bodycount/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory Store mock. Mirrors the repository's atomicity: every mutation
// holds the lock for the whole check-and-update, the way a single conditional
// UPDATE does in Postgres.
// ---------------------------------------------------------------------------

type mockStore struct {
	mu        sync.Mutex
	balances  map[uuid.UUID]int
	lastBonus map[uuid.UUID]string
	entries   []*models.CreditEntry
	today     string
}

func newMockStore() *mockStore {
	return &mockStore{
		balances:  make(map[uuid.UUID]int),
		lastBonus: make(map[uuid.UUID]string),
		today:     "2026-08-30",
	}
}

func (m *mockStore) GetBalance(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *mockStore) GrantDailyBonus(_ context.Context, userID uuid.UUID, amount int) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastBonus[userID] == m.today {
		return false, m.balances[userID], nil
	}
	m.lastBonus[userID] = m.today
	m.balances[userID] += amount
	m.record(userID, models.CreditEntryDailyBonus, amount)
	return true, m.balances[userID], nil
}

func (m *mockStore) Debit(_ context.Context, userID uuid.UUID, amount int, _ *string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID] < amount {
		return 0, errInsufficientCredits
	}
	m.balances[userID] -= amount
	m.record(userID, models.CreditEntryInsightCharge, -amount)
	return m.balances[userID], nil
}

func (m *mockStore) Credit(_ context.Context, userID uuid.UUID, amount int, entryType string, _ *string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	m.record(userID, entryType, amount)
	return m.balances[userID], nil
}

func (m *mockStore) ListEntries(_ context.Context, userID uuid.UUID, limit int) ([]*models.CreditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CreditEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *mockStore) record(userID uuid.UUID, entryType string, amount int) {
	m.entries = append(m.entries, &models.CreditEntry{
		ID:           uuid.New(),
		UserID:       userID,
		EntryType:    entryType,
		Amount:       amount,
		BalanceAfter: m.balances[userID],
	})
}

func (m *mockStore) balance(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGetBalance_NoProfileIsZero(t *testing.T) {
	svc := NewService(newMockStore(), 5)
	got, err := svc.GetBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 balance for unknown user, got %d", got)
	}
}

func TestGrantDailyBonus_OncePerDay(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, 5)
	user := uuid.New()

	first, err := svc.GrantDailyBonus(context.Background(), user)
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if !first.Granted || first.NewBalance != 5 {
		t.Fatalf("first grant = %+v, want granted with balance 5", first)
	}

	second, err := svc.GrantDailyBonus(context.Background(), user)
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}
	if second.Granted {
		t.Fatal("second grant on the same day must be a no-op")
	}
	if second.NewBalance != 5 {
		t.Fatalf("balance after same-day retry = %d, want 5", second.NewBalance)
	}

	// Next calendar day: the bonus is available again.
	store.mu.Lock()
	store.today = "2026-08-31"
	store.mu.Unlock()

	third, err := svc.GrantDailyBonus(context.Background(), user)
	if err != nil {
		t.Fatalf("next-day grant: %v", err)
	}
	if !third.Granted || third.NewBalance != 10 {
		t.Fatalf("next-day grant = %+v, want granted with balance 10", third)
	}
}

func TestGrantDailyBonus_ConcurrentSignIns(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, 5)
	user := uuid.New()

	const signIns = 8
	results := make(chan GrantResult, signIns)
	var wg sync.WaitGroup
	for i := 0; i < signIns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.GrantDailyBonus(context.Background(), user)
			if err != nil {
				t.Errorf("grant: %v", err)
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for res := range results {
		if res.Granted {
			granted++
		}
	}
	if granted != 1 {
		t.Fatalf("%d concurrent sign-ins granted the bonus %d times, want exactly 1", signIns, granted)
	}
	if got := store.balance(user); got != 5 {
		t.Fatalf("balance = %d, want 5", got)
	}
}

func TestDebit_Insufficient(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, 5)
	user := uuid.New()
	store.balances[user] = 5

	_, err := svc.Debit(context.Background(), user, 10, "insight")
	if err != ErrInsufficientCredits {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if got := store.balance(user); got != 5 {
		t.Fatalf("failed debit changed balance to %d, want 5", got)
	}
}

func TestDebit_RejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(newMockStore(), 5)
	for _, amount := range []int{0, -10} {
		if _, err := svc.Debit(context.Background(), uuid.New(), amount, ""); err == nil {
			t.Fatalf("Debit(%d) succeeded, want error", amount)
		}
	}
}

func TestDebit_ConcurrentDoubleSpend(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, 5)
	user := uuid.New()
	store.balances[user] = 10 // exactly one charge's worth

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Debit(context.Background(), user, 10, "insight")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch err {
		case nil:
			ok++
		case ErrInsufficientCredits:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("got %d successes and %d rejections, want exactly 1 of each", ok, insufficient)
	}
	if got := store.balance(user); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestRefund_CompensatesDebit(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, 5)
	user := uuid.New()
	store.balances[user] = 25

	if _, err := svc.Debit(context.Background(), user, 10, "req-1"); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := svc.Refund(context.Background(), user, 10, "req-1"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := store.balance(user); got != 25 {
		t.Fatalf("balance after debit+refund = %d, want 25", got)
	}

	var refunds int
	for _, e := range store.entries {
		if e.EntryType == models.CreditEntryInsightRefund {
			refunds++
		}
	}
	if refunds != 1 {
		t.Fatalf("refund entries = %d, want 1", refunds)
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, 5)
	user := uuid.New()

	ops := []struct {
		kind   string
		amount int
	}{
		{"credit", 15},
		{"debit", 10},
		{"debit", 10}, // rejected: only 5 left
		{"credit", 5},
		{"debit", 10},
		{"debit", 1}, // rejected: 0 left
	}
	for i, op := range ops {
		var err error
		switch op.kind {
		case "credit":
			_, err = svc.Credit(context.Background(), user, op.amount, models.CreditEntryPurchase, fmt.Sprintf("op-%d", i))
		case "debit":
			_, err = svc.Debit(context.Background(), user, op.amount, fmt.Sprintf("op-%d", i))
		}
		if err != nil && err != ErrInsufficientCredits {
			t.Fatalf("op %d: %v", i, err)
		}
		if got := store.balance(user); got < 0 {
			t.Fatalf("balance went negative (%d) after op %d", got, i)
		}
	}
	if got := store.balance(user); got != 0 {
		t.Fatalf("final balance = %d, want 0", got)
	}
}
