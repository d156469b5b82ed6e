package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greektutor/internal/credentials"
	"greektutor/internal/database"
	"greektutor/internal/models"
	"greektutor/internal/repository"
)

func newTestServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	users, err := database.OpenSQLite(filepath.Join(dir, "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { users.Close() })
	_, err = users.Exec(`
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
			user_id TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);
	`)
	require.NoError(t, err)

	vocab, err := database.OpenSQLite(filepath.Join(dir, "vocab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { vocab.Close() })
	_, err = vocab.Exec(`
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
	`)
	require.NoError(t, err)

	concepts, err := database.OpenSQLite(filepath.Join(dir, "concepts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { concepts.Close() })
	_, err = concepts.Exec(`
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
	`)
	require.NoError(t, err)

	srv := NewServer(
		credentials.NewSQLStore(users),
		repository.NewVocabRepository(vocab),
		repository.NewConceptRepository(concepts),
		repository.NewInterestRepository(concepts),
		repository.NewVocabSetRepository(concepts),
		repository.NewGlossRepository(concepts),
		secret,
	)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func errorKind(t *testing.T, resp *http.Response) string {
	t.Helper()
	var env struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, resp, &env)
	return env.Error.Kind
}

func registerUser(t *testing.T, ts *httptest.Server, username string) {
	t.Helper()
	resp := postJSON(t, ts.URL+"/users", map[string]string{
		"username": username,
		"password": "correct horse battery staple",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestUpsertVocabMerges(t *testing.T) {
	ts := newTestServer(t, "")
	registerUser(t, ts, "u1")

	first := postJSON(t, ts.URL+"/vocab", map[string]interface{}{
		"user_id": "u1", "vocab_word": "λόγος", "mastery_score": 0.4, "times_reviewed": 1,
	})
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second := postJSON(t, ts.URL+"/vocab", map[string]interface{}{
		"user_id": "u1", "vocab_word": "λόγος", "mastery_score": 0.7, "times_reviewed": 1,
	})
	var merged models.VocabularyProgress
	decodeBody(t, second, &merged)
	assert.Equal(t, 0.7, merged.MasteryScore)
	assert.Equal(t, 2, merged.TimesReviewed)

	resp, err := http.Get(ts.URL + "/vocab/u1")
	require.NoError(t, err)
	var rows []models.VocabularyProgress
	decodeBody(t, resp, &rows)
	require.Len(t, rows, 1)
}

func TestUpsertVocabRejectsBadMastery(t *testing.T) {
	ts := newTestServer(t, "")
	registerUser(t, ts, "u1")

	for _, score := range []float64{-0.1, 1.5} {
		resp := postJSON(t, ts.URL+"/vocab", map[string]interface{}{
			"user_id": "u1", "vocab_word": "λόγος", "mastery_score": score,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation", errorKind(t, resp))
	}
}

func TestWritesRequireKnownUser(t *testing.T) {
	ts := newTestServer(t, "")

	resp := postJSON(t, ts.URL+"/vocab", map[string]interface{}{
		"user_id": "ghost", "vocab_word": "λόγος", "mastery_score": 0.5,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, resp))

	get, err := http.Get(ts.URL + "/relevant_vocab?user_id=ghost")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, get))
}

func TestDuplicateUserConflicts(t *testing.T) {
	ts := newTestServer(t, "")
	registerUser(t, ts, "maria")

	resp := postJSON(t, ts.URL+"/users", map[string]string{
		"username": "maria", "password": "something else",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", errorKind(t, resp))
}

func TestConceptsIdempotent(t *testing.T) {
	ts := newTestServer(t, "")
	registerUser(t, ts, "u1")

	for i := 0; i < 2; i++ {
		resp := postJSON(t, ts.URL+"/concepts", map[string]string{
			"user_id": "u1", "concept_name": "aorist passive",
		})
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/concepts/u1")
	require.NoError(t, err)
	var rows []models.ConceptMastery
	decodeBody(t, resp, &rows)
	assert.Len(t, rows, 1)
}

func TestInterestsNewestFirst(t *testing.T) {
	ts := newTestServer(t, "")
	registerUser(t, ts, "u1")

	for _, topic := range []string{"parables", "miracles"} {
		resp := postJSON(t, ts.URL+"/interests", map[string]string{
			"user_id": "u1", "interest_type": "topic", "topic": topic,
		})
		var saved models.UserInterest
		decodeBody(t, resp, &saved)
		assert.NotEmpty(t, saved.CreatedAt)
	}

	resp, err := http.Get(ts.URL + "/interests/u1")
	require.NoError(t, err)
	var rows []models.UserInterest
	decodeBody(t, resp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "miracles", rows[0].Topic)
}

func TestSetLevel(t *testing.T) {
	ts := newTestServer(t, "")
	registerUser(t, ts, "u1")

	resp := postJSON(t, ts.URL+"/users/u1/level", map[string]string{"level": "intermediate"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	missing := postJSON(t, ts.URL+"/users/ghost/level", map[string]string{"level": "beginner"})
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, missing))
}

func TestVocabSetEndpoints(t *testing.T) {
	ts := newTestServer(t, "")
	registerUser(t, ts, "u1")

	resp := postJSON(t, ts.URL+"/vocab_sets", map[string]interface{}{
		"user_id": "u1", "mode": "chapter", "book": "John", "chapter": 1,
		"count_requested": 5, "count_inserted": 5, "source": "sample",
	})
	var set models.VocabSet
	decodeBody(t, resp, &set)
	require.NotZero(t, set.ID)

	items := postJSON(t, ts.URL+"/vocab_set_items", map[string]interface{}{
		"user_id": "u1", "set_id": set.ID, "words": []string{"λόγος", "θεός"},
	})
	items.Body.Close()
	require.Equal(t, http.StatusOK, items.StatusCode)

	list, err := http.Get(fmt.Sprintf("%s/vocab_set_items/u1?set_ids=%d", ts.URL, set.ID))
	require.NoError(t, err)
	var got []models.VocabSetItem
	decodeBody(t, list, &got)
	assert.Len(t, got, 2)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/vocab_sets/u1/%d", ts.URL, set.ID), nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusOK, del.StatusCode)

	again, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, again.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, again))
}

func TestGlossEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	resp := postJSON(t, ts.URL+"/glosses", map[string]interface{}{
		"entries": []models.GlossEntry{{Word: "λογος", Glosses: []string{"word"}}},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	get, err := http.Get(ts.URL + "/glosses?words=λογος,αγαπη")
	require.NoError(t, err)
	var entries []models.GlossEntry
	decodeBody(t, get, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"word"}, entries[0].Glosses)

	empty, err := http.Get(ts.URL + "/glosses")
	require.NoError(t, err)
	decodeBody(t, empty, &entries)
	assert.Empty(t, entries)
}

func TestServiceTokenMiddleware(t *testing.T) {
	const secret = "test-shared-secret"
	ts := newTestServer(t, secret)

	// Health stays open
	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	// Anything else needs a token
	bare, err := http.Get(ts.URL + "/vocab/u1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, bare.StatusCode)
	assert.Equal(t, "authentication", errorKind(t, bare))

	token, err := SignServiceToken(secret, "web", time.Minute)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/vocab/u1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	// Token accepted; the unknown user is now the only complaint
	assert.Equal(t, http.StatusNotFound, authed.StatusCode)

	forged, err := SignServiceToken("wrong-secret", "web", time.Minute)
	require.NoError(t, err)
	req2, err := http.NewRequest(http.MethodGet, ts.URL+"/vocab/u1", nil)
	require.NoError(t, err)
	req2.Header.Set("Authorization", "Bearer "+forged)
	rejected, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rejected.StatusCode)
	assert.Equal(t, "authentication", errorKind(t, rejected))
}
