package handlers

import (
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"greektutor/internal/security"
	"greektutor/internal/tutorapi"
)

// dueCountLimit is the fetch limit behind the dashboard's due counter,
// far above any realistic per-day review queue.
const dueCountLimit = 10000

// DashboardHandler renders the learner's overview page from the data API.
type DashboardHandler struct {
	api       *tutorapi.Client
	csrf      *security.CSRFGenerator
	templates *template.Template
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(api *tutorapi.Client, csrf *security.CSRFGenerator, templates *template.Template) *DashboardHandler {
	return &DashboardHandler{
		api:       api,
		csrf:      csrf,
		templates: templates,
	}
}

// Dashboard shows level, vocabulary counts, interests and generated sets.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	ctx := r.Context()

	data := DashboardViewData{
		Title:  "Dashboard - Greek Tutor",
		User:   user,
		Level:  user.Level,
		Levels: []string{"A1", "A2", "B1", "B2", "C1", "C2"},
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		token, err := h.csrf.GenerateToken(cookie.Value)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Internal server error", "CSRF token generation failed", err)
			return
		}
		data.CSRFToken = token
	}

	// The page stays useful when the data API is down: render what we
	// have and show one error banner.
	vocab, err := h.api.ListVocab(ctx, user.ID)
	if err != nil {
		log.Printf("Dashboard vocab fetch failed for %s: %v", user.ID, err)
		data.Error = "Some progress data is unavailable right now."
	}
	data.VocabCount = len(vocab)

	// The due figure is a count, not a page; a zero limit would let the
	// data API default it to 20.
	if due, err := h.api.DueVocab(ctx, user.ID, dueCountLimit); err == nil {
		data.DueCount = len(due)
	} else {
		log.Printf("Dashboard due fetch failed for %s: %v", user.ID, err)
		data.Error = "Some progress data is unavailable right now."
	}
	if interests, err := h.api.ListInterests(ctx, user.ID, 10); err == nil {
		data.Interests = interests
	} else {
		log.Printf("Dashboard interests fetch failed for %s: %v", user.ID, err)
	}
	if concepts, err := h.api.ListConcepts(ctx, user.ID); err == nil {
		data.Concepts = concepts
	} else {
		log.Printf("Dashboard concepts fetch failed for %s: %v", user.ID, err)
	}
	if sets, err := h.api.ListVocabSets(ctx, user.ID, 10); err == nil {
		data.VocabSets = sets
	} else {
		log.Printf("Dashboard sets fetch failed for %s: %v", user.ID, err)
	}

	if err := h.templates.ExecuteTemplate(w, "dashboard.tmpl", data); err != nil {
		log.Printf("Error rendering dashboard template: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// SetLevel stores the level chosen on the dashboard form.
func (h *DashboardHandler) SetLevel(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	level := strings.TrimSpace(r.FormValue("level"))
	if level == "" {
		respondWithError(w, http.StatusBadRequest, "Level is required", "", nil)
		return
	}
	if err := h.api.SetLevel(r.Context(), user.ID, level); err != nil {
		respondUpstreamError(w, "Could not save level", err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// DeleteVocabSet removes one generated set from the log.
func (h *DashboardHandler) DeleteVocabSet(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	setID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid set ID", "", err)
		return
	}
	if err := h.api.DeleteVocabSet(r.Context(), user.ID, setID); err != nil {
		respondUpstreamError(w, "Could not delete set", err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
