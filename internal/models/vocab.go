package models

// VocabularyProgress is one learner's record for a single Greek word.
// There is exactly one logical row per (user_id, vocab_word); writes upsert.
type VocabularyProgress struct {
	ID             int64   `json:"id"`
	UserID         string  `json:"user_id"`
	VocabWord      string  `json:"vocab_word"`
	TimesReviewed  int     `json:"times_reviewed"`
	MasteryScore   float64 `json:"mastery_score"`
	LastReviewed   string  `json:"last_reviewed,omitempty"`
	EaseFactor     float64 `json:"ease_factor"`
	IntervalDays   float64 `json:"interval_days"`
	NextReviewDate string  `json:"next_review_date,omitempty"`
}

// VocabSet logs one batch of generated vocabulary for the dashboard
type VocabSet struct {
	ID             int64  `json:"id"`
	UserID         string `json:"user_id"`
	Mode           string `json:"mode"` // global|book|chapter
	Book           string `json:"book,omitempty"`
	Chapter        int    `json:"chapter,omitempty"`
	CountRequested int    `json:"count_requested"`
	CountInserted  int    `json:"count_inserted"`
	Source         string `json:"source,omitempty"` // full|sample
	CreatedAt      string `json:"created_at"`
}

// VocabSetItem is one word chosen within a generated set
type VocabSetItem struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	SetID     int64  `json:"set_id"`
	VocabWord string `json:"vocab_word"`
}

// GlossEntry caches English glosses for a Greek token so repeated
// lookups don't round-trip through the language model.
type GlossEntry struct {
	Word    string   `json:"word"`
	Glosses []string `json:"glosses"`
}
