package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubValidator struct {
	userID uuid.UUID
	err    error
}

func (s *stubValidator) ValidateToken(_ context.Context, _ string) (uuid.UUID, error) {
	return s.userID, s.err
}

// okHandler writes 200 and the user id (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id := UserIDFromCtx(r.Context()); id != nil {
		w.Write([]byte(id.String()))
	}
	w.WriteHeader(http.StatusOK)
})

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestJWTAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	mw := JWTAuth(&stubValidator{userID: userID})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer valid-test-token")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); body != userID.String() {
		t.Errorf("expected user id %q in body, got %q", userID, body)
	}
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	mw := JWTAuth(&stubValidator{userID: uuid.New()})(okHandler)

	cases := []struct {
		name   string
		header string
	}{
		{"no header at all", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	mw := JWTAuth(&stubValidator{err: errors.New("expired")})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUserIDFromCtx_Empty(t *testing.T) {
	if id := UserIDFromCtx(context.Background()); id != nil {
		t.Fatalf("expected nil user id, got %v", id)
	}
}
