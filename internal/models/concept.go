package models

// ConceptMastery marks a grammar concept a learner has mastered.
// One row per (user_id, concept_name); repeat inserts are no-ops.
type ConceptMastery struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id"`
	ConceptName string `json:"concept_name"`
	MasteredAt  string `json:"mastered_at"`
}

// UserInterest is one expressed interest in a topic, book, chapter or passage.
// The log is append-only.
type UserInterest struct {
	ID           int64  `json:"id"`
	UserID       string `json:"user_id"`
	InterestType string `json:"interest_type"` // topic|book|chapter|passage
	Topic        string `json:"topic,omitempty"`
	Book         string `json:"book,omitempty"`
	Chapter      int    `json:"chapter,omitempty"`
	PassageRef   string `json:"passage_ref,omitempty"`
	CreatedAt    string `json:"created_at"`
}
