package repository

import (
	"fmt"
	"time"

	"greektutor/internal/database"
	"greektutor/internal/models"
)

// ConceptRepository handles concept mastery rows in the mastery store.
type ConceptRepository struct {
	db *database.DB
}

// NewConceptRepository creates a new concept repository
func NewConceptRepository(db *database.DB) *ConceptRepository {
	return &ConceptRepository{db: db}
}

// Upsert records a mastered concept. Idempotent: inserting the same
// (user_id, concept_name) again returns the existing row untouched.
func (r *ConceptRepository) Upsert(userID, conceptName string) (*models.ConceptMastery, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin concept upsert: %w", err)
	}
	defer tx.Rollback()

	var existing models.ConceptMastery
	query := `
		SELECT id, user_id, concept_name, mastered_at
		FROM concepts_mastery
		WHERE user_id = ? AND concept_name = ?
	`
	err = tx.QueryRow(query, userID, conceptName).Scan(
		&existing.ID, &existing.UserID, &existing.ConceptName, &existing.MasteredAt)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit concept upsert: %w", err)
		}
		return &existing, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	insert := "INSERT INTO concepts_mastery (user_id, concept_name, mastered_at) VALUES (?, ?, ?)"
	id, err := tx.ExecReturningID(insert, userID, conceptName, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert concept mastery: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit concept upsert: %w", err)
	}

	return &models.ConceptMastery{
		ID:          id,
		UserID:      userID,
		ConceptName: conceptName,
		MasteredAt:  now,
	}, nil
}

// ListByUser returns mastered concepts, most recent first.
func (r *ConceptRepository) ListByUser(userID string) ([]models.ConceptMastery, error) {
	query := `
		SELECT id, user_id, concept_name, mastered_at
		FROM concepts_mastery
		WHERE user_id = ?
		ORDER BY mastered_at DESC, id DESC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query concepts: %w", err)
	}
	defer rows.Close()

	var items []models.ConceptMastery
	for rows.Next() {
		var c models.ConceptMastery
		if err := rows.Scan(&c.ID, &c.UserID, &c.ConceptName, &c.MasteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan concept row: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
