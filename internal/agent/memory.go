package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"greektutor/internal/apierr"
)

// Sessions keep at most this many messages; older ones fall off.
const maxSessionMessages = 50

// ChatMessage is one stored turn of a tutoring session.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	TS      string `json:"ts,omitempty"`
}

// Session is one tutoring conversation.
type Session struct {
	ID        string        `json:"id"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
	Messages  []ChatMessage `json:"messages"`
	Summary   string        `json:"summary,omitempty"`
	Title     string        `json:"title,omitempty"`
}

// QuizQuestion is the question currently awaiting an answer.
type QuizQuestion struct {
	Token   string   `json:"token"`
	Glosses []string `json:"glosses"`
}

// QuizState tracks an in-progress vocabulary quiz.
type QuizState struct {
	Active    bool          `json:"active"`
	Mode      string        `json:"mode,omitempty"`
	Book      string        `json:"book,omitempty"`
	Chapter   int           `json:"chapter,omitempty"`
	Normalize bool          `json:"normalize,omitempty"`
	Queue     []string      `json:"queue,omitempty"`
	Asked     int           `json:"asked"`
	Correct   int           `json:"correct"`
	Total     int           `json:"total"`
	Current   *QuizQuestion `json:"current,omitempty"`
}

// Memory is everything remembered about one learner between chats:
// the cached level, their sessions, and any quiz in flight.
type Memory struct {
	Level           string     `json:"level,omitempty"`
	Sessions        []*Session `json:"sessions"`
	ActiveSessionID string     `json:"active_session_id,omitempty"`
	Quiz            *QuizState `json:"quiz,omitempty"`
}

// Session returns the session with the given ID, or nil.
func (m *Memory) Session(id string) *Session {
	for _, s := range m.Sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Active returns the active session, or nil when none is set.
func (m *Memory) Active() *Session {
	if m.ActiveSessionID == "" {
		return nil
	}
	return m.Session(m.ActiveSessionID)
}

// MemoryStore persists per-user agent memory as one JSON file per user.
type MemoryStore struct {
	dir string
}

// NewMemoryStore creates a store rooted at dir, creating it if needed.
func NewMemoryStore(dir string) (*MemoryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create memory dir: %w", err)
	}
	return &MemoryStore{dir: dir}, nil
}

func (s *MemoryStore) path(userID string) string {
	return filepath.Join(s.dir, userID+".json")
}

// Load reads the user's memory. A user with no file gets a fresh one.
func (s *MemoryStore) Load(userID string) (*Memory, error) {
	raw, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return &Memory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory for %s: %w", userID, err)
	}
	var mem Memory
	if err := json.Unmarshal(raw, &mem); err != nil {
		return nil, fmt.Errorf("failed to parse memory for %s: %w", userID, err)
	}
	return &mem, nil
}

// Save writes the user's memory back to disk.
func (s *MemoryStore) Save(userID string, mem *Memory) error {
	raw, err := json.MarshalIndent(mem, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode memory for %s: %w", userID, err)
	}
	if err := os.WriteFile(s.path(userID), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write memory for %s: %w", userID, err)
	}
	return nil
}

// newSessionID derives an ID from the current UTC time down to
// microseconds, which keeps session files human-sortable.
func newSessionID(now time.Time) string {
	return now.UTC().Format("20060102150405") + fmt.Sprintf("%06d", now.Nanosecond()/1000)
}

// NewSession creates a session and makes it active.
func (s *MemoryStore) NewSession(userID string) (*Session, error) {
	mem, err := s.Load(userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	sess := &Session{
		ID:        newSessionID(time.Now()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	mem.Sessions = append(mem.Sessions, sess)
	mem.ActiveSessionID = sess.ID
	if err := s.Save(userID, mem); err != nil {
		return nil, err
	}
	return sess, nil
}

// SetActiveSession switches the active session.
func (s *MemoryStore) SetActiveSession(userID, sessionID string) error {
	mem, err := s.Load(userID)
	if err != nil {
		return err
	}
	if mem.Session(sessionID) == nil {
		return apierr.NotFound("no session %s", sessionID)
	}
	mem.ActiveSessionID = sessionID
	return s.Save(userID, mem)
}

// ListSessions returns the user's sessions, most recently updated first.
func (s *MemoryStore) ListSessions(userID string) ([]*Session, error) {
	mem, err := s.Load(userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, len(mem.Sessions))
	copy(sessions, mem.Sessions)
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		ak, bk := a.UpdatedAt, b.UpdatedAt
		if ak == "" {
			ak = a.CreatedAt
		}
		if bk == "" {
			bk = b.CreatedAt
		}
		return ak > bk
	})
	return sessions, nil
}

// RenameSession sets or clears a session's title.
func (s *MemoryStore) RenameSession(userID, sessionID, title string) error {
	mem, err := s.Load(userID)
	if err != nil {
		return err
	}
	sess := mem.Session(sessionID)
	if sess == nil {
		return apierr.NotFound("no session %s", sessionID)
	}
	sess.Title = title
	sess.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return s.Save(userID, mem)
}

// SetSummary stores a summary on a session.
func (s *MemoryStore) SetSummary(userID, sessionID, summary string) error {
	mem, err := s.Load(userID)
	if err != nil {
		return err
	}
	sess := mem.Session(sessionID)
	if sess == nil {
		return apierr.NotFound("no session %s", sessionID)
	}
	sess.Summary = summary
	sess.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return s.Save(userID, mem)
}

// DeleteSession removes a session; the active pointer is cleared if it
// pointed at the deleted one.
func (s *MemoryStore) DeleteSession(userID, sessionID string) error {
	mem, err := s.Load(userID)
	if err != nil {
		return err
	}
	kept := mem.Sessions[:0]
	found := false
	for _, sess := range mem.Sessions {
		if sess.ID == sessionID {
			found = true
			continue
		}
		kept = append(kept, sess)
	}
	if !found {
		return apierr.NotFound("no session %s", sessionID)
	}
	mem.Sessions = kept
	if mem.ActiveSessionID == sessionID {
		mem.ActiveSessionID = ""
	}
	return s.Save(userID, mem)
}

// AppendExchange records one user/assistant exchange in the active
// session, creating a session when none is active. Returns the session
// ID written to.
func (s *MemoryStore) AppendExchange(userID, userText, answer string) (string, error) {
	mem, err := s.Load(userID)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	sess := mem.Active()
	if sess == nil {
		sess = &Session{
			ID:        newSessionID(time.Now()),
			CreatedAt: now,
		}
		mem.Sessions = append(mem.Sessions, sess)
		mem.ActiveSessionID = sess.ID
	}

	sess.Messages = append(sess.Messages,
		ChatMessage{Role: "user", Content: userText, TS: now},
		ChatMessage{Role: "assistant", Content: answer, TS: now},
	)
	if n := len(sess.Messages); n > maxSessionMessages {
		sess.Messages = sess.Messages[n-maxSessionMessages:]
	}
	sess.UpdatedAt = now

	if err := s.Save(userID, mem); err != nil {
		return "", err
	}
	return sess.ID, nil
}
