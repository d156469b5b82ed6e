// Package httpapi is the data API: a JSON-over-HTTP service owning the
// progress and mastery stores. The web UI and the agent tool layer talk
// to it through the tutorapi client, never to the databases directly.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"greektutor/internal/apierr"
	"greektutor/internal/credentials"
	"greektutor/internal/repository"
)

// Server wires the repositories behind the HTTP surface.
type Server struct {
	users     credentials.Store
	vocab     *repository.VocabRepository
	concepts  *repository.ConceptRepository
	interests *repository.InterestRepository
	sets      *repository.VocabSetRepository
	glosses   *repository.GlossRepository
	secret    string
}

// NewServer creates a data API server. With a non-empty secret, every
// request except /health must carry a signed service token.
func NewServer(
	users credentials.Store,
	vocab *repository.VocabRepository,
	concepts *repository.ConceptRepository,
	interests *repository.InterestRepository,
	sets *repository.VocabSetRepository,
	glosses *repository.GlossRepository,
	secret string,
) *Server {
	return &Server{
		users:     users,
		vocab:     vocab,
		concepts:  concepts,
		interests: interests,
		sets:      sets,
		glosses:   glosses,
		secret:    secret,
	}
}

// Routes builds the full handler chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /vocab/{userID}", s.handleListVocab)
	mux.HandleFunc("GET /vocab/{userID}/due", s.handleDueVocab)
	mux.HandleFunc("POST /vocab", s.handleUpsertVocab)
	mux.HandleFunc("POST /vocab/increment_review", s.handleIncrementReview)
	mux.HandleFunc("GET /relevant_vocab", s.handleRelevantVocab)

	mux.HandleFunc("GET /concepts/{userID}", s.handleListConcepts)
	mux.HandleFunc("POST /concepts", s.handleAddConcept)

	mux.HandleFunc("POST /interests", s.handleAddInterest)
	mux.HandleFunc("GET /interests/{userID}", s.handleListInterests)

	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("POST /users/{userID}/level", s.handleSetLevel)

	mux.HandleFunc("POST /vocab_sets", s.handleAddVocabSet)
	mux.HandleFunc("GET /vocab_sets/{userID}", s.handleListVocabSets)
	mux.HandleFunc("DELETE /vocab_sets/{userID}/{setID}", s.handleDeleteVocabSet)
	mux.HandleFunc("POST /vocab_set_items", s.handleAddVocabSetItems)
	mux.HandleFunc("GET /vocab_set_items/{userID}", s.handleListVocabSetItems)

	mux.HandleFunc("GET /glosses", s.handleGetGlosses)
	mux.HandleFunc("POST /glosses", s.handleUpsertGlosses)

	return Logging(s.requireServiceToken(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireUser checks the referential invariant: progress and mastery
// rows may only be written for users the user store knows about.
func (s *Server) requireUser(userID string) error {
	if userID == "" {
		return apierr.Validation("user_id is required")
	}
	user, err := s.users.Lookup(userID)
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	if user == nil {
		return apierr.NotFound("user %s not found", userID)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing to do but note it
		return
	}
}

// decodeJSON rejects bodies that don't parse with a validation error.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierr.Validation("invalid request body: %v", err)
	}
	return nil
}
