package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// DB wraps one store's connection with dialect support. The application opens
// three independent stores (users, vocab, concepts); each DB is its own
// transactional domain and nothing coordinates writes across them.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open creates and configures a store connection for the given database type.
// For sqlite the config carries a file path; for postgres/mysql a URL.
func Open(databaseType string, config DialectConfig) (*DB, error) {
	var dialect Dialect

	switch strings.ToLower(databaseType) {
	case "postgres", "postgresql":
		dialect = NewPostgresDialect()
	case "mysql":
		dialect = NewMySQLDialect()
	case "sqlite", "sqlite3", "":
		dialect = NewSQLiteDialect()
	default:
		return nil, fmt.Errorf("unsupported database type: %s", databaseType)
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DSN(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := dialect.ConfigureConnection(db); err != nil {
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// OpenSQLite opens a sqlite store at the given path.
func OpenSQLite(path string) (*DB, error) {
	return Open("sqlite", DialectConfig{Path: path})
}

// Close closes the store connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Query executes a query with automatic placeholder rewriting
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.DB.Query(db.Dialect.RewriteQuery(query), args...)
}

// QueryRow executes a query that returns a single row with automatic placeholder rewriting
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRow(db.Dialect.RewriteQuery(query), args...)
}

// Exec executes a query that doesn't return rows with automatic placeholder rewriting
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.DB.Exec(db.Dialect.RewriteQuery(query), args...)
}

// ExecReturningID executes an INSERT query and returns the new row's ID.
// PostgreSQL has no LastInsertId() and needs a RETURNING clause instead.
func (db *DB) ExecReturningID(query string, args ...interface{}) (int64, error) {
	rewritten := db.Dialect.RewriteQuery(query)

	if db.Dialect.SupportsLastInsertId() {
		result, err := db.DB.Exec(rewritten, args...)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}

	rewritten = strings.TrimSuffix(strings.TrimSpace(rewritten), ";") + " RETURNING id"

	var id int64
	if err := db.DB.QueryRow(rewritten, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
