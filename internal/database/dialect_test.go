package database

import (
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		if got := dialect.DriverName(); got != "sqlite3" {
			t.Errorf("DriverName() = %v, want sqlite3", got)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("RewriteQuery", func(t *testing.T) {
		query := "SELECT * FROM vocabulary_progress WHERE user_id = ?"
		if got := dialect.RewriteQuery(query); got != query {
			t.Errorf("RewriteQuery() = %v, want unchanged query", got)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		if got := dialect.DriverName(); got != "postgres" {
			t.Errorf("DriverName() = %v, want postgres", got)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("RewriteQuery", func(t *testing.T) {
		query := "INSERT INTO concepts_mastery (user_id, concept_name) VALUES (?, ?)"
		want := "INSERT INTO concepts_mastery (user_id, concept_name) VALUES ($1, $2)"
		if got := dialect.RewriteQuery(query); got != want {
			t.Errorf("RewriteQuery() = %v, want %v", got, want)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		if got := dialect.DriverName(); got != "mysql" {
			t.Errorf("DriverName() = %v, want mysql", got)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})
}

func TestTrimStatement(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"trailing semicolon", "INSERT INTO t (a) VALUES (?);", "INSERT INTO t (a) VALUES (?)"},
		{"trailing whitespace", "INSERT INTO t (a) VALUES (?)  \n", "INSERT INTO t (a) VALUES (?)"},
		{"clean statement", "INSERT INTO t (a) VALUES (?)", "INSERT INTO t (a) VALUES (?)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trimStatement(tt.query); got != tt.want {
				t.Errorf("trimStatement(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
