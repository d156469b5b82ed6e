package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"greektutor/internal/credentials"
	"greektutor/internal/database"
	"greektutor/internal/models"
	"greektutor/internal/security"
	"greektutor/internal/service"
)

func newTestMiddleware(t *testing.T) (*Middleware, *service.AuthService, *security.CSRFGenerator) {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("Failed to open users store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			email TEXT,
			level TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(username),
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	auth := service.NewAuthService(credentials.NewSQLStore(db), time.Hour)
	csrf := security.NewCSRFGenerator("test-secret")
	limiter := security.NewRateLimiter(2, time.Minute)
	return NewMiddleware(auth, csrf, limiter), auth, csrf
}

func loginTestUser(t *testing.T, auth *service.AuthService) *models.Session {
	t.Helper()

	if _, err := auth.Register("maria", "κατὰ Ἰωάννην", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, session, err := auth.Login("maria", "κατὰ Ἰωάννην")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return session
}

func TestRequireAuthRedirectsWithoutSession(t *testing.T) {
	m, _, _ := newTestMiddleware(t)

	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run without a session")
	})

	req := httptest.NewRequest("GET", "/dashboard", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireAuthPutsUserInContext(t *testing.T) {
	m, auth, _ := newTestMiddleware(t)
	session := loginTestUser(t, auth)

	var got *models.User
	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserFromContext(r.Context())
	})

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.ID})
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got == nil || got.Username != "maria" {
		t.Errorf("User in context = %+v, want maria", got)
	}
}

func TestCSRFProtect(t *testing.T) {
	m, auth, csrf := newTestMiddleware(t)
	session := loginTestUser(t, auth)

	handler := m.CSRFProtect(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	post := func(token string) *httptest.ResponseRecorder {
		form := url.Values{"csrf_token": {token}}
		req := httptest.NewRequest("POST", "/dashboard/level", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.ID})
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	if rec := post("bogus"); rec.Code != http.StatusForbidden {
		t.Errorf("Bad token status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	token, err := csrf.GenerateToken(session.ID)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if rec := post(token); rec.Code != http.StatusOK {
		t.Errorf("Valid token status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRateLimit(t *testing.T) {
	m, _, _ := newTestMiddleware(t)

	handler := m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Request %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// A different client is unaffected.
	req = httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.2:4000"
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Other client status = %d, want %d", rec.Code, http.StatusOK)
	}
}
