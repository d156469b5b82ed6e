package repository

import (
	"database/sql"
	"fmt"
	"time"

	"greektutor/internal/database"
	"greektutor/internal/models"
	"greektutor/internal/srs"
)

// VocabRepository handles vocabulary progress rows in the progress store.
// There is one logical row per (user_id, vocab_word); all writes go through
// a per-record transaction so concurrent upserts for the same key cannot
// lose updates.
type VocabRepository struct {
	db *database.DB
}

// NewVocabRepository creates a new vocabulary repository
func NewVocabRepository(db *database.DB) *VocabRepository {
	return &VocabRepository{db: db}
}

const vocabColumns = `id, user_id, vocab_word, times_reviewed, mastery_score,
	COALESCE(last_reviewed, ''), ease_factor, interval_days, COALESCE(next_review_date, '')`

func scanVocab(scanner interface{ Scan(...interface{}) error }) (*models.VocabularyProgress, error) {
	v := &models.VocabularyProgress{}
	err := scanner.Scan(
		&v.ID,
		&v.UserID,
		&v.VocabWord,
		&v.TimesReviewed,
		&v.MasteryScore,
		&v.LastReviewed,
		&v.EaseFactor,
		&v.IntervalDays,
		&v.NextReviewDate,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Get retrieves one progress row. Returns (nil, nil) when absent.
func (r *VocabRepository) Get(userID, vocabWord string) (*models.VocabularyProgress, error) {
	query := fmt.Sprintf("SELECT %s FROM vocabulary_progress WHERE user_id = ? AND vocab_word = ?", vocabColumns)
	v, err := scanVocab(r.db.QueryRow(query, userID, vocabWord))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vocabulary progress: %w", err)
	}
	return v, nil
}

// Upsert applies insert_vocabulary_progress semantics: if a row exists for
// (user_id, vocab_word), increment times_reviewed and replace the mastery
// score; otherwise create the row with the submitted values.
func (r *VocabRepository) Upsert(item *models.VocabularyProgress) (*models.VocabularyProgress, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	lastReviewed := item.LastReviewed
	if lastReviewed == "" {
		lastReviewed = now
	}
	nextReview := item.NextReviewDate
	if nextReview == "" {
		nextReview = now
	}
	easeFactor := item.EaseFactor
	if easeFactor == 0 {
		easeFactor = 2.5
	}

	query := fmt.Sprintf("SELECT %s FROM vocabulary_progress WHERE user_id = ? AND vocab_word = ?", vocabColumns)
	existing, err := scanVocab(tx.QueryRow(query, item.UserID, item.VocabWord))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing progress: %w", err)
	}

	var result *models.VocabularyProgress
	if err == sql.ErrNoRows {
		insert := `
			INSERT INTO vocabulary_progress
				(user_id, vocab_word, times_reviewed, mastery_score, last_reviewed, ease_factor, interval_days, next_review_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err := tx.ExecReturningID(insert,
			item.UserID, item.VocabWord, item.TimesReviewed, item.MasteryScore,
			lastReviewed, easeFactor, item.IntervalDays, nextReview)
		if err != nil {
			return nil, fmt.Errorf("failed to insert vocabulary progress: %w", err)
		}
		result = &models.VocabularyProgress{
			ID:             id,
			UserID:         item.UserID,
			VocabWord:      item.VocabWord,
			TimesReviewed:  item.TimesReviewed,
			MasteryScore:   item.MasteryScore,
			LastReviewed:   lastReviewed,
			EaseFactor:     easeFactor,
			IntervalDays:   item.IntervalDays,
			NextReviewDate: nextReview,
		}
	} else {
		update := `
			UPDATE vocabulary_progress
			SET times_reviewed = ?, mastery_score = ?, last_reviewed = ?,
			    ease_factor = ?, interval_days = ?, next_review_date = ?
			WHERE id = ?
		`
		timesReviewed := existing.TimesReviewed + 1
		if _, err := tx.Exec(update,
			timesReviewed, item.MasteryScore, now,
			easeFactor, item.IntervalDays, nextReview, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to update vocabulary progress: %w", err)
		}
		result = &models.VocabularyProgress{
			ID:             existing.ID,
			UserID:         item.UserID,
			VocabWord:      item.VocabWord,
			TimesReviewed:  timesReviewed,
			MasteryScore:   item.MasteryScore,
			LastReviewed:   now,
			EaseFactor:     easeFactor,
			IntervalDays:   item.IntervalDays,
			NextReviewDate: nextReview,
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return result, nil
}

// IncrementReview bumps times_reviewed and adjusts mastery by delta, clamped
// to [0,1]. Creates the row with an initial review when absent. A quality
// rating of 0-5 additionally reschedules the card with SM-2; pass a negative
// quality to leave the schedule untouched.
func (r *VocabRepository) IncrementReview(userID, vocabWord string, masteryDelta float64, quality int) (*models.VocabularyProgress, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin review update: %w", err)
	}
	defer tx.Rollback()

	nowT := time.Now().UTC()
	now := nowT.Format(time.RFC3339)

	query := fmt.Sprintf("SELECT %s FROM vocabulary_progress WHERE user_id = ? AND vocab_word = ?", vocabColumns)
	existing, err := scanVocab(tx.QueryRow(query, userID, vocabWord))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing progress: %w", err)
	}

	var result *models.VocabularyProgress
	if err == sql.ErrNoRows {
		row := &models.VocabularyProgress{
			UserID: userID, VocabWord: vocabWord,
			TimesReviewed: 1, MasteryScore: clampMastery(masteryDelta),
			LastReviewed: now, EaseFactor: 2.5,
		}
		if quality >= 0 {
			rev := srs.Next(quality, row.EaseFactor, 0, 0, nowT)
			row.EaseFactor = rev.EaseFactor
			row.IntervalDays = rev.IntervalDays
			row.NextReviewDate = rev.NextReviewDate.Format(time.RFC3339)
		}
		insert := `
			INSERT INTO vocabulary_progress
				(user_id, vocab_word, times_reviewed, mastery_score, last_reviewed, ease_factor, interval_days, next_review_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err := tx.ExecReturningID(insert, userID, vocabWord,
			row.TimesReviewed, row.MasteryScore, row.LastReviewed,
			row.EaseFactor, row.IntervalDays, row.NextReviewDate)
		if err != nil {
			return nil, fmt.Errorf("failed to insert review: %w", err)
		}
		row.ID = id
		result = row
	} else {
		existing.TimesReviewed++
		existing.MasteryScore = clampMastery(existing.MasteryScore + masteryDelta)
		existing.LastReviewed = now
		if quality >= 0 {
			rev := srs.Next(quality, existing.EaseFactor, existing.IntervalDays, existing.TimesReviewed-1, nowT)
			existing.EaseFactor = rev.EaseFactor
			existing.IntervalDays = rev.IntervalDays
			existing.NextReviewDate = rev.NextReviewDate.Format(time.RFC3339)
		}
		update := `
			UPDATE vocabulary_progress
			SET times_reviewed = ?, mastery_score = ?, last_reviewed = ?,
			    ease_factor = ?, interval_days = ?, next_review_date = ?
			WHERE id = ?
		`
		if _, err := tx.Exec(update,
			existing.TimesReviewed, existing.MasteryScore, existing.LastReviewed,
			existing.EaseFactor, existing.IntervalDays, existing.NextReviewDate,
			existing.ID); err != nil {
			return nil, fmt.Errorf("failed to update review: %w", err)
		}
		result = existing
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}
	return result, nil
}

// ListByUser returns all progress rows, most recently reviewed first.
func (r *VocabRepository) ListByUser(userID string) ([]models.VocabularyProgress, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM vocabulary_progress
		WHERE user_id = ?
		ORDER BY (last_reviewed IS NULL OR last_reviewed = '') ASC, last_reviewed DESC, id DESC
	`, vocabColumns)
	return r.queryVocab(query, userID)
}

// Relevant returns vocabulary for tutoring: weakest mastery first so the
// least-known words surface, with the most recently reviewed first among
// ties. An optional concept filters by substring match.
func (r *VocabRepository) Relevant(userID, concept string, limit int) ([]models.VocabularyProgress, error) {
	if limit <= 0 {
		limit = 20
	}
	if concept != "" {
		query := fmt.Sprintf(`
			SELECT %s FROM vocabulary_progress
			WHERE user_id = ? AND (vocab_word LIKE ? OR mastery_score < 0.7)
			ORDER BY mastery_score ASC, times_reviewed ASC, (last_reviewed IS NULL OR last_reviewed = '') ASC, last_reviewed DESC, id DESC
			LIMIT ?
		`, vocabColumns)
		return r.queryVocab(query, userID, "%"+concept+"%", limit)
	}
	query := fmt.Sprintf(`
		SELECT %s FROM vocabulary_progress
		WHERE user_id = ?
		ORDER BY mastery_score ASC, times_reviewed ASC, (last_reviewed IS NULL OR last_reviewed = '') ASC, last_reviewed DESC, id DESC
		LIMIT ?
	`, vocabColumns)
	return r.queryVocab(query, userID, limit)
}

// Due returns cards whose next review date has passed, never-scheduled first.
func (r *VocabRepository) Due(userID string, now time.Time, limit int) ([]models.VocabularyProgress, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT %s FROM vocabulary_progress
		WHERE user_id = ? AND (next_review_date IS NULL OR next_review_date = '' OR next_review_date <= ?)
		ORDER BY (next_review_date IS NULL OR next_review_date = '') DESC, next_review_date ASC, id ASC
		LIMIT ?
	`, vocabColumns)
	return r.queryVocab(query, userID, now.UTC().Format(time.RFC3339), limit)
}

// CountByUser returns the user's total vocabulary size.
func (r *VocabRepository) CountByUser(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM vocabulary_progress WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vocabulary: %w", err)
	}
	return count, nil
}

func (r *VocabRepository) queryVocab(query string, args ...interface{}) ([]models.VocabularyProgress, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocabulary: %w", err)
	}
	defer rows.Close()

	var items []models.VocabularyProgress
	for rows.Next() {
		v, err := scanVocab(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vocabulary row: %w", err)
		}
		items = append(items, *v)
	}
	return items, rows.Err()
}

func clampMastery(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
