package database

import (
	"os"
	"path/filepath"
	"testing"
)

// TestStoreLifecycle opens a sqlite store, runs migrations from a temp
// directory, and verifies tracking behaves on re-run.
func TestStoreLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()

	migration := `
		CREATE TABLE IF NOT EXISTS vocabulary_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			vocab_word TEXT NOT NULL
		);
	`
	if err := os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte(migration), 0644); err != nil {
		t.Fatalf("Failed to write migration: %v", err)
	}

	db, err := OpenSQLite(filepath.Join(dir, "vocab.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(dir); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Running again must be a no-op
	if err := db.RunMigrations(dir); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", "vocabulary_progress").Scan(&name)
	if err != nil {
		t.Fatalf("Table vocabulary_progress not found: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 recorded migration, got %d", count)
	}
}

func TestExecReturningID(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	id, err := db.ExecReturningID("INSERT INTO items (name) VALUES (?)", "first")
	if err != nil {
		t.Fatalf("ExecReturningID failed: %v", err)
	}
	if id != 1 {
		t.Errorf("Expected id 1, got %d", id)
	}

	id, err = db.ExecReturningID("INSERT INTO items (name) VALUES (?)", "second")
	if err != nil {
		t.Fatalf("ExecReturningID failed: %v", err)
	}
	if id != 2 {
		t.Errorf("Expected id 2, got %d", id)
	}
}
