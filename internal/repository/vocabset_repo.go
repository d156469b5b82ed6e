package repository

import (
	"fmt"
	"strings"
	"time"

	"greektutor/internal/apierr"
	"greektutor/internal/database"
	"greektutor/internal/models"
)

// VocabSetRepository logs generated vocabulary batches so the dashboard can
// show where a user's words came from.
type VocabSetRepository struct {
	db *database.DB
}

// NewVocabSetRepository creates a new vocab set repository
func NewVocabSetRepository(db *database.DB) *VocabSetRepository {
	return &VocabSetRepository{db: db}
}

// Create records one generation batch and returns it with its ID.
func (r *VocabSetRepository) Create(set *models.VocabSet) (*models.VocabSet, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO vocab_sets (user_id, mode, book, chapter, count_requested, count_inserted, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		set.UserID, set.Mode, set.Book, set.Chapter, set.CountRequested, set.CountInserted, set.Source, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert vocab set: %w", err)
	}

	created := *set
	created.ID = id
	created.CreatedAt = now
	return &created, nil
}

// AddItems records the words chosen within a set.
func (r *VocabSetRepository) AddItems(userID string, setID int64, words []string) (int, error) {
	inserted := 0
	for _, word := range words {
		if word == "" {
			continue
		}
		query := "INSERT INTO vocab_set_items (user_id, set_id, vocab_word) VALUES (?, ?, ?)"
		if _, err := r.db.Exec(query, userID, setID, word); err != nil {
			return inserted, fmt.Errorf("failed to insert vocab set item: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// ListByUser returns the user's generation log, most recent first.
func (r *VocabSetRepository) ListByUser(userID string, limit int) ([]models.VocabSet, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, mode, COALESCE(book, ''), COALESCE(chapter, 0),
		       count_requested, count_inserted, COALESCE(source, ''), created_at
		FROM vocab_sets
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocab sets: %w", err)
	}
	defer rows.Close()

	var sets []models.VocabSet
	for rows.Next() {
		var s models.VocabSet
		if err := rows.Scan(&s.ID, &s.UserID, &s.Mode, &s.Book, &s.Chapter,
			&s.CountRequested, &s.CountInserted, &s.Source, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vocab set row: %w", err)
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// ListItems returns set items for the user, optionally restricted to setIDs.
func (r *VocabSetRepository) ListItems(userID string, setIDs []int64) ([]models.VocabSetItem, error) {
	query := "SELECT id, user_id, set_id, vocab_word FROM vocab_set_items WHERE user_id = ?"
	args := []interface{}{userID}

	if len(setIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(setIDs)), ",")
		query += " AND set_id IN (" + placeholders + ")"
		for _, id := range setIDs {
			args = append(args, id)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocab set items: %w", err)
	}
	defer rows.Close()

	var items []models.VocabSetItem
	for rows.Next() {
		var i models.VocabSetItem
		if err := rows.Scan(&i.ID, &i.UserID, &i.SetID, &i.VocabWord); err != nil {
			return nil, fmt.Errorf("failed to scan vocab set item: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// Delete removes a set and its items. NotFound unless the set exists and
// belongs to the user.
func (r *VocabSetRepository) Delete(userID string, setID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow("SELECT id FROM vocab_sets WHERE id = ? AND user_id = ?", setID, userID).Scan(&id)
	if err != nil {
		return apierr.NotFound("vocab set %d not found", setID)
	}

	if _, err := tx.Exec("DELETE FROM vocab_set_items WHERE set_id = ? AND user_id = ?", setID, userID); err != nil {
		return fmt.Errorf("failed to delete vocab set items: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM vocab_sets WHERE id = ? AND user_id = ?", setID, userID); err != nil {
		return fmt.Errorf("failed to delete vocab set: %w", err)
	}

	return tx.Commit()
}
