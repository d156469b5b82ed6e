package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"greektutor/internal/apierr"
	"greektutor/internal/models"
)

func (s *Server) handleListConcepts(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if err := s.requireUser(userID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	items, err := s.concepts.ListByUser(userID)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if items == nil {
		items = []models.ConceptMastery{}
	}
	writeJSON(w, http.StatusOK, items)
}

type conceptRequest struct {
	UserID      string `json:"user_id"`
	ConceptName string `json:"concept_name"`
}

func (s *Server) handleAddConcept(w http.ResponseWriter, r *http.Request) {
	var payload conceptRequest
	if err := decodeJSON(r, &payload); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if payload.ConceptName == "" {
		apierr.WriteJSON(w, apierr.Validation("concept_name is required"))
		return
	}
	if err := s.requireUser(payload.UserID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	saved, err := s.concepts.Upsert(payload.UserID, payload.ConceptName)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleAddInterest(w http.ResponseWriter, r *http.Request) {
	var item models.UserInterest
	if err := decodeJSON(r, &item); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if item.InterestType == "" {
		apierr.WriteJSON(w, apierr.Validation("interest_type is required"))
		return
	}
	if err := s.requireUser(item.UserID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	saved, err := s.interests.Insert(&item)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleListInterests(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if err := s.requireUser(userID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	items, err := s.interests.ListByUser(userID, queryInt(r, "limit", 50))
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if items == nil {
		items = []models.UserInterest{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddVocabSet(w http.ResponseWriter, r *http.Request) {
	var set models.VocabSet
	if err := decodeJSON(r, &set); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if set.Mode == "" {
		apierr.WriteJSON(w, apierr.Validation("mode is required"))
		return
	}
	if err := s.requireUser(set.UserID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	saved, err := s.sets.Create(&set)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleListVocabSets(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if err := s.requireUser(userID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	sets, err := s.sets.ListByUser(userID, queryInt(r, "limit", 50))
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if sets == nil {
		sets = []models.VocabSet{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleDeleteVocabSet(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	setID, err := strconv.ParseInt(r.PathValue("setID"), 10, 64)
	if err != nil {
		apierr.WriteJSON(w, apierr.Validation("invalid set id"))
		return
	}
	if err := s.requireUser(userID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	if err := s.sets.Delete(userID, setID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type vocabSetItemsRequest struct {
	UserID string   `json:"user_id"`
	SetID  int64    `json:"set_id"`
	Words  []string `json:"words"`
}

func (s *Server) handleAddVocabSetItems(w http.ResponseWriter, r *http.Request) {
	var payload vocabSetItemsRequest
	if err := decodeJSON(r, &payload); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if err := s.requireUser(payload.UserID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	inserted, err := s.sets.AddItems(payload.UserID, payload.SetID, payload.Words)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "inserted": inserted})
}

func (s *Server) handleListVocabSetItems(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if err := s.requireUser(userID); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	var setIDs []int64
	if raw := r.URL.Query().Get("set_ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				setIDs = append(setIDs, id)
			}
		}
	}

	items, err := s.sets.ListItems(userID, setIDs)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if items == nil {
		items = []models.VocabSetItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetGlosses(w http.ResponseWriter, r *http.Request) {
	var words []string
	for _, part := range strings.Split(r.URL.Query().Get("words"), ",") {
		if part != "" {
			words = append(words, part)
		}
	}
	if len(words) == 0 {
		writeJSON(w, http.StatusOK, []models.GlossEntry{})
		return
	}

	entries, err := s.glosses.GetBatch(words)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if entries == nil {
		entries = []models.GlossEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type glossBatch struct {
	Entries []models.GlossEntry `json:"entries"`
}

func (s *Server) handleUpsertGlosses(w http.ResponseWriter, r *http.Request) {
	var batch glossBatch
	if err := decodeJSON(r, &batch); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	count, err := s.glosses.UpsertBatch(batch.Entries)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "upserted": count})
}
