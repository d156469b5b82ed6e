package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"greektutor/internal/apierr"
	"greektutor/internal/credentials"
	"greektutor/internal/models"
	"greektutor/internal/security"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService handles web authentication: account registration, login,
// and the session lifecycle behind the session cookie.
type AuthService struct {
	users           credentials.Store
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(users credentials.Store, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		users:           users,
		sessionDuration: sessionDuration,
	}
}

// Register creates a new account. The username doubles as the user ID in
// the progress stores, so it is normalized to lowercase.
func (s *AuthService) Register(username, password, email string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)

	if len(username) < 3 {
		return nil, fmt.Errorf("username must be at least 3 characters")
	}
	if strings.ContainsAny(username, " \t/") {
		return nil, fmt.Errorf("username cannot contain spaces or slashes")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	user, err := s.users.Create(username, password, email)
	if apierr.IsKind(err, apierr.KindConflict) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and opens a session. Unknown usernames and
// wrong passwords both come back as ErrInvalidCredentials.
func (s *AuthService) Login(username, password string) (*models.User, *models.Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.users.Verify(username, password)
	if apierr.IsKind(err, apierr.KindAuthentication) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	session, err := s.users.CreateSession(
		security.GenerateSessionID(),
		user.ID,
		time.Now().UTC().Add(s.sessionDuration),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	return user, session, nil
}

// Logout removes the session. Unknown sessions are not an error.
func (s *AuthService) Logout(sessionID string) error {
	return s.users.DeleteSession(sessionID)
}

// ValidateSession returns the user behind a session cookie. Expired
// sessions are deleted on sight.
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.users.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		if err := s.users.DeleteSession(session.ID); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, ErrSessionExpired
	}

	user, err := s.users.Lookup(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// CleanupExpiredSessions removes all expired sessions.
func (s *AuthService) CleanupExpiredSessions() error {
	return s.users.DeleteExpiredSessions()
}
