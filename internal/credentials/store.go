// Package credentials is the user-credential store. It hides the storage
// format behind the Store interface: callers look up, verify and create
// accounts without knowing how hashes are persisted.
package credentials

import (
	"database/sql"
	"fmt"
	"time"

	"greektutor/internal/apierr"
	"greektutor/internal/database"
	"greektutor/internal/models"
	"greektutor/internal/security"
)

// Store is the credential-store contract. Verify must not reveal whether a
// username exists: unknown user and wrong password fail identically.
type Store interface {
	Lookup(username string) (*models.User, error)
	Verify(username, password string) (*models.User, error)
	Create(username, password, email string) (*models.User, error)
	SetLevel(username, level string) error
	SetPasswordHash(username, passwordHash string) error

	CreateSession(sessionID, userID string, expiresAt time.Time) (*models.Session, error)
	GetSession(sessionID string) (*models.Session, error)
	DeleteSession(sessionID string) error
	DeleteExpiredSessions() error
}

// SQLStore implements Store over the users database.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore creates a credential store backed by the given users database.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Lookup retrieves a user by username. Returns (nil, nil) when absent so
// callers decide whether absence is an error.
func (s *SQLStore) Lookup(username string) (*models.User, error) {
	query := `
		SELECT username, password_hash, COALESCE(email, ''), COALESCE(level, ''), created_at, updated_at
		FROM users
		WHERE username = ?
	`
	user := &models.User{}
	err := s.db.QueryRow(query, username).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.Level,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.ID = user.Username
	return user, nil
}

// Verify authenticates a login attempt. Both unknown usernames and wrong
// passwords return the same generic AuthenticationError; for unknown users a
// dummy bcrypt comparison still runs so timing matches.
func (s *SQLStore) Verify(username, password string) (*models.User, error) {
	user, err := s.Lookup(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		security.BurnComparison(password)
		return nil, apierr.Authentication()
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, apierr.Authentication()
	}
	return user, nil
}

// Create registers a new account. Fails with Conflict if the username exists.
func (s *SQLStore) Create(username, password, email string) (*models.User, error) {
	if username == "" {
		return nil, apierr.Validation("username is required")
	}
	if password == "" {
		return nil, apierr.Validation("password is required")
	}

	existing, err := s.Lookup(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, apierr.Conflict("username %q already exists", username)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO users (username, password_hash, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, username, passwordHash, email, now, now); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:           username,
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SetLevel overwrites the user's level. No history is kept.
func (s *SQLStore) SetLevel(username, level string) error {
	query := "UPDATE users SET level = ?, updated_at = ? WHERE username = ?"
	result, err := s.db.Exec(query, level, time.Now().UTC(), username)
	if err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check level update: %w", err)
	}
	if rows == 0 {
		return apierr.NotFound("user %q not found", username)
	}
	return nil
}

// SetPasswordHash replaces the stored hash, used by out-of-band reset.
func (s *SQLStore) SetPasswordHash(username, passwordHash string) error {
	query := "UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?"
	result, err := s.db.Exec(query, passwordHash, time.Now().UTC(), username)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check password update: %w", err)
	}
	if rows == 0 {
		return apierr.NotFound("user %q not found", username)
	}
	return nil
}

// CreateSession creates a new session for a user
func (s *SQLStore) CreateSession(sessionID, userID string, expiresAt time.Time) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now().UTC()
	if _, err := s.db.Exec(query, sessionID, userID, expiresAt, now); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when absent.
func (s *SQLStore) GetSession(sessionID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := s.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session
func (s *SQLStore) DeleteSession(sessionID string) error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions
func (s *SQLStore) DeleteExpiredSessions() error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
