// Package tutorapi is the typed client for the data API. The web UI and
// the agent tool layer go through it; neither touches the stores directly.
package tutorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"greektutor/internal/apierr"
	"greektutor/internal/httpapi"
	"greektutor/internal/models"
)

// Client calls the data API over HTTP. With a non-empty secret it signs
// a fresh service token per request.
type Client struct {
	baseURL string
	secret  string
	caller  string
	http    *http.Client
}

// NewClient creates a client for the data API at baseURL. caller names
// this service in the token subject.
func NewClient(baseURL, secret, caller string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		caller:  caller,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// do runs one request and decodes the response into out (when non-nil).
// Non-2xx responses come back as typed apierr errors.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		token, err := httpapi.SignServiceToken(c.secret, c.caller, time.Minute)
		if err != nil {
			return fmt.Errorf("failed to sign service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("data API unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierr.FromResponse(resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Health reports whether the data API is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, username, password, email string) (*models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPost, "/users", map[string]string{
		"username": username, "password": password, "email": email,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetLevel overwrites the user's proficiency level.
func (c *Client) SetLevel(ctx context.Context, userID, level string) error {
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/level",
		map[string]string{"level": level}, nil)
}

// ListVocab returns all progress rows for the user.
func (c *Client) ListVocab(ctx context.Context, userID string) ([]models.VocabularyProgress, error) {
	var items []models.VocabularyProgress
	err := c.do(ctx, http.MethodGet, "/vocab/"+url.PathEscape(userID), nil, &items)
	return items, err
}

// DueVocab returns cards due for review.
func (c *Client) DueVocab(ctx context.Context, userID string, limit int) ([]models.VocabularyProgress, error) {
	var items []models.VocabularyProgress
	path := fmt.Sprintf("/vocab/%s/due?limit=%d", url.PathEscape(userID), limit)
	err := c.do(ctx, http.MethodGet, path, nil, &items)
	return items, err
}

// UpsertVocab inserts or merges one progress row.
func (c *Client) UpsertVocab(ctx context.Context, item *models.VocabularyProgress) (*models.VocabularyProgress, error) {
	var saved models.VocabularyProgress
	if err := c.do(ctx, http.MethodPost, "/vocab", item, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// IncrementReview bumps the review count and nudges mastery by delta.
// A quality of 0-5 additionally reschedules the card; pass a negative
// quality to skip scheduling.
func (c *Client) IncrementReview(ctx context.Context, userID, word string, delta float64, quality int) (*models.VocabularyProgress, error) {
	body := map[string]interface{}{
		"user_id": userID, "vocab_word": word, "mastery_delta": delta,
	}
	if quality >= 0 {
		body["quality"] = quality
	}
	var saved models.VocabularyProgress
	if err := c.do(ctx, http.MethodPost, "/vocab/increment_review", body, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// RelevantVocab returns weakest-first vocabulary, optionally biased
// toward a concept.
func (c *Client) RelevantVocab(ctx context.Context, userID, concept string, limit int) ([]models.VocabularyProgress, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if concept != "" {
		q.Set("concept", concept)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var items []models.VocabularyProgress
	err := c.do(ctx, http.MethodGet, "/relevant_vocab?"+q.Encode(), nil, &items)
	return items, err
}

// ListConcepts returns mastered concepts, newest first.
func (c *Client) ListConcepts(ctx context.Context, userID string) ([]models.ConceptMastery, error) {
	var items []models.ConceptMastery
	err := c.do(ctx, http.MethodGet, "/concepts/"+url.PathEscape(userID), nil, &items)
	return items, err
}

// AddConcept records a mastered concept; repeats are no-ops.
func (c *Client) AddConcept(ctx context.Context, userID, conceptName string) (*models.ConceptMastery, error) {
	var saved models.ConceptMastery
	err := c.do(ctx, http.MethodPost, "/concepts", map[string]string{
		"user_id": userID, "concept_name": conceptName,
	}, &saved)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// AddInterest appends one interest record.
func (c *Client) AddInterest(ctx context.Context, item *models.UserInterest) (*models.UserInterest, error) {
	var saved models.UserInterest
	if err := c.do(ctx, http.MethodPost, "/interests", item, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListInterests returns the user's interests, newest first.
func (c *Client) ListInterests(ctx context.Context, userID string, limit int) ([]models.UserInterest, error) {
	path := fmt.Sprintf("/interests/%s?limit=%d", url.PathEscape(userID), limit)
	var items []models.UserInterest
	err := c.do(ctx, http.MethodGet, path, nil, &items)
	return items, err
}

// CreateVocabSet logs one generated vocabulary batch.
func (c *Client) CreateVocabSet(ctx context.Context, set *models.VocabSet) (*models.VocabSet, error) {
	var saved models.VocabSet
	if err := c.do(ctx, http.MethodPost, "/vocab_sets", set, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListVocabSets returns the generation log, newest first.
func (c *Client) ListVocabSets(ctx context.Context, userID string, limit int) ([]models.VocabSet, error) {
	path := fmt.Sprintf("/vocab_sets/%s?limit=%d", url.PathEscape(userID), limit)
	var items []models.VocabSet
	err := c.do(ctx, http.MethodGet, path, nil, &items)
	return items, err
}

// DeleteVocabSet removes a set the user owns.
func (c *Client) DeleteVocabSet(ctx context.Context, userID string, setID int64) error {
	path := fmt.Sprintf("/vocab_sets/%s/%d", url.PathEscape(userID), setID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// AddVocabSetItems records the words chosen within a set.
func (c *Client) AddVocabSetItems(ctx context.Context, userID string, setID int64, words []string) error {
	return c.do(ctx, http.MethodPost, "/vocab_set_items", map[string]interface{}{
		"user_id": userID, "set_id": setID, "words": words,
	}, nil)
}

// ListVocabSetItems returns set items, optionally filtered by set IDs.
func (c *Client) ListVocabSetItems(ctx context.Context, userID string, setIDs []int64) ([]models.VocabSetItem, error) {
	path := "/vocab_set_items/" + url.PathEscape(userID)
	if len(setIDs) > 0 {
		parts := make([]string, len(setIDs))
		for i, id := range setIDs {
			parts[i] = strconv.FormatInt(id, 10)
		}
		path += "?set_ids=" + strings.Join(parts, ",")
	}
	var items []models.VocabSetItem
	err := c.do(ctx, http.MethodGet, path, nil, &items)
	return items, err
}

// GetGlosses returns cached glosses for the given tokens.
func (c *Client) GetGlosses(ctx context.Context, words []string) ([]models.GlossEntry, error) {
	if len(words) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("words", strings.Join(words, ","))
	var entries []models.GlossEntry
	err := c.do(ctx, http.MethodGet, "/glosses?"+q.Encode(), nil, &entries)
	return entries, err
}

// UpsertGlosses caches glosses for future lookups.
func (c *Client) UpsertGlosses(ctx context.Context, entries []models.GlossEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/glosses", map[string]interface{}{"entries": entries}, nil)
}
