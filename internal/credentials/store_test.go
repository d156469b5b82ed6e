package credentials

import (
	"path/filepath"
	"testing"
	"time"

	"greektutor/internal/apierr"
	"greektutor/internal/database"
)

func newTestStore(t *testing.T) *SQLStore {
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

	return NewSQLStore(db)
}

func TestCreateAndLookup(t *testing.T) {
	store := newTestStore(t)

	user, err := store.Create("maria", "κατὰ Ἰωάννην", "maria@example.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID != "maria" {
		t.Errorf("Create() ID = %q, want maria", user.ID)
	}

	found, err := store.Lookup("maria")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found == nil {
		t.Fatal("Lookup() returned nil for existing user")
	}
	if found.Email != "maria@example.com" {
		t.Errorf("Lookup() email = %q", found.Email)
	}

	missing, err := store.Lookup("nobody")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if missing != nil {
		t.Error("Lookup() returned a user for unknown username")
	}
}

func TestCreateDuplicateConflicts(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Create("maria", "pw1", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := store.Create("maria", "pw2", "")
	if err == nil {
		t.Fatal("Create() allowed duplicate username")
	}
	if !apierr.IsKind(err, apierr.KindConflict) {
		t.Errorf("Create() duplicate error kind = %v, want conflict", apierr.KindOf(err))
	}
}

// Wrong password and unknown user must be indistinguishable to the caller.
func TestVerifyDoesNotLeakUsernames(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Create("maria", "correct-horse", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, wrongPassErr := store.Verify("maria", "wrong-password")
	_, unknownUserErr := store.Verify("nobody", "wrong-password")

	if wrongPassErr == nil || unknownUserErr == nil {
		t.Fatal("Verify() should fail for wrong password and unknown user")
	}
	if apierr.KindOf(wrongPassErr) != apierr.KindAuthentication {
		t.Errorf("wrong password kind = %v, want authentication", apierr.KindOf(wrongPassErr))
	}
	if wrongPassErr.Error() != unknownUserErr.Error() {
		t.Errorf("error messages differ: %q vs %q", wrongPassErr, unknownUserErr)
	}

	user, err := store.Verify("maria", "correct-horse")
	if err != nil {
		t.Fatalf("Verify() with correct password error = %v", err)
	}
	if user.Username != "maria" {
		t.Errorf("Verify() username = %q", user.Username)
	}
}

func TestSetLevel(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Create("maria", "pw", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.SetLevel("maria", "beginner"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	user, _ := store.Lookup("maria")
	if user.Level != "beginner" {
		t.Errorf("level = %q, want beginner", user.Level)
	}

	// Overwrite, no history
	if err := store.SetLevel("maria", "intermediate"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	user, _ = store.Lookup("maria")
	if user.Level != "intermediate" {
		t.Errorf("level = %q, want intermediate", user.Level)
	}

	err := store.SetLevel("nobody", "beginner")
	if !apierr.IsKind(err, apierr.KindNotFound) {
		t.Errorf("SetLevel() unknown user kind = %v, want not_found", apierr.KindOf(err))
	}
}

func TestSessions(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Create("maria", "pw", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	expires := time.Now().Add(time.Hour).UTC()
	session, err := store.CreateSession("sess-1", "maria", expires)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.UserID != "maria" {
		t.Errorf("session user = %q", session.UserID)
	}

	found, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if found == nil || found.ID != "sess-1" {
		t.Fatalf("GetSession() = %+v", found)
	}

	if err := store.DeleteSession("sess-1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	gone, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if gone != nil {
		t.Error("GetSession() returned deleted session")
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Create("maria", "pw", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := store.CreateSession("old", "maria", time.Now().Add(-time.Hour).UTC()); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := store.CreateSession("fresh", "maria", time.Now().Add(time.Hour).UTC()); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := store.DeleteExpiredSessions(); err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}

	if s, _ := store.GetSession("old"); s != nil {
		t.Error("expired session survived cleanup")
	}
	if s, _ := store.GetSession("fresh"); s == nil {
		t.Error("valid session removed by cleanup")
	}
}
