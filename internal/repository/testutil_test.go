package repository

import (
	"path/filepath"
	"testing"

	"greektutor/internal/database"
)

// newVocabDB opens a throwaway progress store with the production schema.
func newVocabDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "vocab.db"))
	if err != nil {
		t.Fatalf("Failed to open vocab store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE vocabulary_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			vocab_word TEXT NOT NULL,
			times_reviewed INTEGER NOT NULL DEFAULT 0,
			mastery_score REAL NOT NULL DEFAULT 0.0,
			last_reviewed TEXT,
			ease_factor REAL NOT NULL DEFAULT 2.5,
			interval_days REAL NOT NULL DEFAULT 0,
			next_review_date TEXT
		);
		CREATE UNIQUE INDEX idx_vocab_user_word ON vocabulary_progress(user_id, vocab_word);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create vocab schema: %v", err)
	}
	return db
}

// newConceptsDB opens a throwaway mastery store with the production schema.
func newConceptsDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "concepts.db"))
	if err != nil {
		t.Fatalf("Failed to open concepts store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE concepts_mastery (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			concept_name TEXT NOT NULL,
			mastered_at TEXT NOT NULL
		);
		CREATE UNIQUE INDEX idx_concepts_user_name ON concepts_mastery(user_id, concept_name);
		CREATE TABLE user_interests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			interest_type TEXT NOT NULL,
			topic TEXT,
			book TEXT,
			chapter INTEGER,
			passage_ref TEXT,
			created_at TEXT NOT NULL
		);
		CREATE TABLE vocab_sets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			book TEXT,
			chapter INTEGER,
			count_requested INTEGER NOT NULL,
			count_inserted INTEGER NOT NULL,
			source TEXT,
			created_at TEXT NOT NULL
		);
		CREATE TABLE vocab_set_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			set_id INTEGER NOT NULL,
			vocab_word TEXT NOT NULL
		);
		CREATE TABLE gloss_cache (
			word TEXT PRIMARY KEY,
			glosses TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create concepts schema: %v", err)
	}
	return db
}
