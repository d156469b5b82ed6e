package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"greektutor/internal/apierr"
	"greektutor/internal/models"
)

func (s *Server) handleListVocab(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if err := s.requireUser(userID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	items, err := s.vocab.ListByUser(userID)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if items == nil {
		items = []models.VocabularyProgress{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDueVocab(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if err := s.requireUser(userID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	limit := queryInt(r, "limit", 20)
	items, err := s.vocab.Due(userID, time.Now().UTC(), limit)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if items == nil {
		items = []models.VocabularyProgress{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleUpsertVocab(w http.ResponseWriter, r *http.Request) {
	var item models.VocabularyProgress
	if err := decodeJSON(r, &item); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if item.VocabWord == "" {
		apierr.WriteJSON(w, apierr.Validation("vocab_word is required"))
		return
	}
	if item.MasteryScore < 0 || item.MasteryScore > 1 {
		apierr.WriteJSON(w, apierr.Validation("mastery_score must be between 0 and 1"))
		return
	}
	if err := s.requireUser(item.UserID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	saved, err := s.vocab.Upsert(&item)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type reviewUpdate struct {
	UserID       string  `json:"user_id"`
	VocabWord    string  `json:"vocab_word"`
	MasteryDelta float64 `json:"mastery_delta"`
	// Quality is an optional SM-2 rating (0-5). When present the review also
	// reschedules the card.
	Quality *int `json:"quality,omitempty"`
}

func (s *Server) handleIncrementReview(w http.ResponseWriter, r *http.Request) {
	var payload reviewUpdate
	if err := decodeJSON(r, &payload); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if payload.VocabWord == "" {
		apierr.WriteJSON(w, apierr.Validation("vocab_word is required"))
		return
	}
	quality := -1
	if payload.Quality != nil {
		if *payload.Quality < 0 || *payload.Quality > 5 {
			apierr.WriteJSON(w, apierr.Validation("quality must be between 0 and 5"))
			return
		}
		quality = *payload.Quality
	}
	if err := s.requireUser(payload.UserID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	saved, err := s.vocab.IncrementReview(payload.UserID, payload.VocabWord, payload.MasteryDelta, quality)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleRelevantVocab(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if err := s.requireUser(userID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	concept := r.URL.Query().Get("concept")
	limit := queryInt(r, "limit", 20)

	items, err := s.vocab.Relevant(userID, concept, limit)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if items == nil {
		items = []models.VocabularyProgress{}
	}
	writeJSON(w, http.StatusOK, items)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
