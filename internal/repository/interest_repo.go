package repository

import (
	"fmt"
	"time"

	"greektutor/internal/database"
	"greektutor/internal/models"
)

// InterestRepository handles the append-only user-interest log in the
// mastery store.
type InterestRepository struct {
	db *database.DB
}

// NewInterestRepository creates a new interest repository
func NewInterestRepository(db *database.DB) *InterestRepository {
	return &InterestRepository{db: db}
}

// Insert appends an interest and returns the created record with its
// generated timestamp.
func (r *InterestRepository) Insert(item *models.UserInterest) (*models.UserInterest, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO user_interests (user_id, interest_type, topic, book, chapter, passage_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		item.UserID, item.InterestType, item.Topic, item.Book, item.Chapter, item.PassageRef, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert interest: %w", err)
	}

	created := *item
	created.ID = id
	created.CreatedAt = now
	return &created, nil
}

// ListByUser returns the user's interests, most recent first, in a single
// full read.
func (r *InterestRepository) ListByUser(userID string, limit int) ([]models.UserInterest, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, interest_type, COALESCE(topic, ''), COALESCE(book, ''),
		       COALESCE(chapter, 0), COALESCE(passage_ref, ''), created_at
		FROM user_interests
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interests: %w", err)
	}
	defer rows.Close()

	var items []models.UserInterest
	for rows.Next() {
		var i models.UserInterest
		if err := rows.Scan(&i.ID, &i.UserID, &i.InterestType, &i.Topic, &i.Book, &i.Chapter, &i.PassageRef, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interest row: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
