package handlers

import (
	"html/template"
	"log"
	"net/http"
	"strings"

	"greektutor/internal/agent"
	"greektutor/internal/bible"
	"greektutor/internal/llm"
	"greektutor/internal/security"
	"greektutor/internal/tutorapi"
)

// TutorHandler serves the chat page and the session management actions.
type TutorHandler struct {
	api       *tutorapi.Client
	completer llm.Completer
	corpus    *bible.Corpus
	memory    *agent.MemoryStore
	csrf      *security.CSRFGenerator
	templates *template.Template
}

// NewTutorHandler creates a new tutor handler
func NewTutorHandler(api *tutorapi.Client, completer llm.Completer, corpus *bible.Corpus, memory *agent.MemoryStore, csrf *security.CSRFGenerator, templates *template.Template) *TutorHandler {
	return &TutorHandler{
		api:       api,
		completer: completer,
		corpus:    corpus,
		memory:    memory,
		csrf:      csrf,
		templates: templates,
	}
}

// agentFor builds a per-request agent. Agents are not safe for concurrent
// use, so each request gets its own.
func (h *TutorHandler) agentFor(userID string) *agent.Agent {
	return agent.New(userID, h.api, h.completer, h.corpus, h.memory)
}

// Show renders the tutor chat page with the session list and the active
// transcript.
func (h *TutorHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := TutorViewData{
		Title: "Tutor - Greek Tutor",
		User:  user,
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		token, err := h.csrf.GenerateToken(cookie.Value)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Internal server error", "CSRF token generation failed", err)
			return
		}
		data.CSRFToken = token
	}

	mem, err := h.memory.Load(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load chat history", "memory load failed", err)
		return
	}
	sessions, err := h.memory.ListSessions(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load chat history", "session list failed", err)
		return
	}
	data.Sessions = sessions
	data.Active = mem.Active()

	if err := h.templates.ExecuteTemplate(w, "tutor.tmpl", data); err != nil {
		log.Printf("Error rendering tutor template: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Chat sends one user message through the agent and redirects back to the
// chat page, whose transcript now includes the reply.
func (h *TutorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		http.Redirect(w, r, "/tutor", http.StatusSeeOther)
		return
	}

	if _, err := h.agentFor(user.ID).Chat(r.Context(), message); err != nil {
		respondUpstreamError(w, "The tutor is unavailable right now. Please try again.", err)
		return
	}
	http.Redirect(w, r, "/tutor", http.StatusSeeOther)
}

// NewSession starts a fresh chat session and makes it active.
func (h *TutorHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if _, err := h.memory.NewSession(user.ID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not create session", "new session failed", err)
		return
	}
	http.Redirect(w, r, "/tutor", http.StatusSeeOther)
}

// SwitchSession makes the named session active.
func (h *TutorHandler) SwitchSession(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := h.memory.SetActiveSession(user.ID, r.PathValue("id")); err != nil {
		respondWithError(w, http.StatusNotFound, "Session not found", "switch session failed", err)
		return
	}
	http.Redirect(w, r, "/tutor", http.StatusSeeOther)
}

// RenameSession sets the session title shown in the sidebar.
func (h *TutorHandler) RenameSession(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondWithError(w, http.StatusBadRequest, "Title is required", "", nil)
		return
	}
	if err := h.memory.RenameSession(user.ID, r.PathValue("id"), title); err != nil {
		respondWithError(w, http.StatusNotFound, "Session not found", "rename session failed", err)
		return
	}
	http.Redirect(w, r, "/tutor", http.StatusSeeOther)
}

// DeleteSession removes a session and its transcript.
func (h *TutorHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := h.memory.DeleteSession(user.ID, r.PathValue("id")); err != nil {
		respondWithError(w, http.StatusNotFound, "Session not found", "delete session failed", err)
		return
	}
	http.Redirect(w, r, "/tutor", http.StatusSeeOther)
}

// SummarizeSession asks the model for a short recap and stores it on the
// session.
func (h *TutorHandler) SummarizeSession(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if _, err := h.agentFor(user.ID).SummarizeSession(r.Context(), r.PathValue("id")); err != nil {
		respondUpstreamError(w, "Could not summarize session", err)
		return
	}
	http.Redirect(w, r, "/tutor", http.StatusSeeOther)
}
