package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"greektutor/internal/database"
	"greektutor/internal/models"
)

// GlossRepository caches English glosses per Greek token in the mastery
// store, so repeated quiz questions don't re-query the language model.
type GlossRepository struct {
	db *database.DB
}

// NewGlossRepository creates a new gloss repository
func NewGlossRepository(db *database.DB) *GlossRepository {
	return &GlossRepository{db: db}
}

// GetBatch returns cached entries for the given words; misses are absent.
func (r *GlossRepository) GetBatch(words []string) ([]models.GlossEntry, error) {
	if len(words) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(words)), ",")
	query := "SELECT word, glosses FROM gloss_cache WHERE word IN (" + placeholders + ")"
	args := make([]interface{}, len(words))
	for i, w := range words {
		args[i] = w
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query glosses: %w", err)
	}
	defer rows.Close()

	var entries []models.GlossEntry
	for rows.Next() {
		var word, raw string
		if err := rows.Scan(&word, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan gloss row: %w", err)
		}
		var glosses []string
		if err := json.Unmarshal([]byte(raw), &glosses); err != nil {
			// Skip corrupt cache entries rather than failing the batch
			continue
		}
		entries = append(entries, models.GlossEntry{Word: word, Glosses: glosses})
	}
	return entries, rows.Err()
}

// UpsertBatch stores or replaces gloss entries, returning how many landed.
func (r *GlossRepository) UpsertBatch(entries []models.GlossEntry) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	count := 0

	for _, e := range entries {
		if e.Word == "" || len(e.Glosses) == 0 {
			continue
		}
		raw, err := json.Marshal(e.Glosses)
		if err != nil {
			return count, fmt.Errorf("failed to encode glosses for %q: %w", e.Word, err)
		}

		tx, err := r.db.Begin()
		if err != nil {
			return count, fmt.Errorf("failed to begin gloss upsert: %w", err)
		}

		var existing string
		err = tx.QueryRow("SELECT word FROM gloss_cache WHERE word = ?", e.Word).Scan(&existing)
		if err == nil {
			_, err = tx.Exec("UPDATE gloss_cache SET glosses = ?, updated_at = ? WHERE word = ?", string(raw), now, e.Word)
		} else {
			_, err = tx.Exec("INSERT INTO gloss_cache (word, glosses, updated_at) VALUES (?, ?, ?)", e.Word, string(raw), now)
		}
		if err != nil {
			tx.Rollback()
			return count, fmt.Errorf("failed to upsert gloss for %q: %w", e.Word, err)
		}
		if err := tx.Commit(); err != nil {
			return count, fmt.Errorf("failed to commit gloss upsert: %w", err)
		}
		count++
	}
	return count, nil
}
