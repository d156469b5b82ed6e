// Package agent is the tutoring agent: an LLM chat loop with an
// explicit catalog of tools that read the Greek corpus, call the data
// API, and run vocabulary quizzes. Per-user state between chats lives
// in a JSON memory store.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"greektutor/internal/apierr"
	"greektutor/internal/bible"
	"greektutor/internal/llm"
	"greektutor/internal/tutorapi"
)

// The model gets this many rounds to call tools before the loop gives up.
const maxToolRounds = 3

const systemPrompt = "You are a friendly, concise Biblical Greek tutor. " +
	"You can call tools to explain concepts, show Greek NT examples, retrieve/store vocab progress, record interests, and run a lightweight vocab quiz. " +
	"Quiz flow: when the user asks to be quizzed, call start_quiz with appropriate scope, then next_quiz_question, then on user reply call grade_quiz_answer, then either next_quiz_question or end_quiz if done. " +
	"Only call set_user_level if the user explicitly requests a level change. Do not infer from quiz answers."

// Agent tutors one user. It is not safe for concurrent use; create one
// per request or serialize access per user.
type Agent struct {
	userID  string
	api     *tutorapi.Client
	llm     llm.Completer
	corpus  *bible.Corpus
	memory  *MemoryStore
	catalog *Catalog

	// lastUserText backs the explicit-level guard on set_user_level.
	lastUserText string
}

// New builds an agent for userID with its full tool catalog.
func New(userID string, api *tutorapi.Client, completer llm.Completer, corpus *bible.Corpus, memory *MemoryStore) *Agent {
	a := &Agent{
		userID:  userID,
		api:     api,
		llm:     completer,
		corpus:  corpus,
		memory:  memory,
		catalog: NewCatalog(),
	}
	a.registerTools()
	a.registerQuizTools()
	return a
}

// Catalog exposes the tool registry, mainly for tests and diagnostics.
func (a *Agent) Catalog() *Catalog { return a.catalog }

// Chat runs one user turn: the model may call tools for a bounded
// number of rounds before producing the answer, which is stored in the
// active session.
func (a *Agent) Chat(ctx context.Context, userText string) (string, error) {
	mem, err := a.memory.Load(a.userID)
	if err != nil {
		return "", err
	}
	a.lastUserText = userText

	preamble := "Student level unknown; you may ask."
	if mem.Level != "" {
		preamble = fmt.Sprintf("Student level: %s.", mem.Level)
	}
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: preamble},
		{Role: llm.RoleUser, Content: userText},
	}
	specs := a.catalog.Specs()

	for round := 0; round < maxToolRounds; round++ {
		reply, err := a.llm.Complete(ctx, messages, specs)
		if err != nil {
			return "", fmt.Errorf("completion failed: %w", err)
		}

		if len(reply.ToolCalls) > 0 {
			messages = append(messages, *reply)
			for _, tc := range reply.ToolCalls {
				result, err := a.catalog.Dispatch(ctx, tc.Name, tc.Arguments)
				if err != nil {
					result = toolErrorJSON(err)
				}
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					ToolCallID: tc.ID,
					Name:       tc.Name,
					Content:    result,
				})
			}
			continue
		}

		answer := reply.Content
		if _, err := a.memory.AppendExchange(a.userID, userText, answer); err != nil {
			return "", err
		}
		return answer, nil
	}

	return "Let's continue. What would you like to learn in Koine Greek today?", nil
}

// toolErrorJSON renders a tool failure in the same envelope the data
// API uses on the wire, so the model sees the error kind.
func toolErrorJSON(err error) string {
	payload := map[string]interface{}{
		"error": map[string]string{
			"kind":    string(apierr.KindOf(err)),
			"message": err.Error(),
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

// NewSession starts a fresh tutoring session for the user.
func (a *Agent) NewSession() (*Session, error) { return a.memory.NewSession(a.userID) }

// SwitchSession makes an existing session active.
func (a *Agent) SwitchSession(sessionID string) error {
	return a.memory.SetActiveSession(a.userID, sessionID)
}

// Sessions lists the user's sessions, most recently updated first.
func (a *Agent) Sessions() ([]*Session, error) { return a.memory.ListSessions(a.userID) }

// RenameSession sets a session title.
func (a *Agent) RenameSession(sessionID, title string) error {
	return a.memory.RenameSession(a.userID, sessionID, title)
}

// DeleteSession removes a session.
func (a *Agent) DeleteSession(sessionID string) error {
	return a.memory.DeleteSession(a.userID, sessionID)
}

// SummarizeSession asks the model for a one-line summary of a session
// and stores it on the session.
func (a *Agent) SummarizeSession(ctx context.Context, sessionID string) (string, error) {
	mem, err := a.memory.Load(a.userID)
	if err != nil {
		return "", err
	}
	sess := mem.Session(sessionID)
	if sess == nil {
		return "", apierr.NotFound("no session %s", sessionID)
	}

	msgs := sess.Messages
	if len(msgs) > 20 {
		msgs = msgs[len(msgs)-20:]
	}
	var transcript strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}

	reply, err := a.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You write brief, helpful chat summaries."},
		{Role: llm.RoleUser, Content: "Summarize this tutoring chat in one short sentence (<=12 words) highlighting topic or goal. Return only the summary text, no quotes.\n\n" + transcript.String()},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("summary failed: %w", err)
	}

	summary := strings.TrimSpace(reply.Content)
	if err := a.memory.SetSummary(a.userID, sessionID, summary); err != nil {
		return "", err
	}
	return summary, nil
}

var levelRequestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bset (my )?level to\b`),
	regexp.MustCompile(`\bchange (my )?level to\b`),
	regexp.MustCompile(`\bmy level is\b`),
	regexp.MustCompile(`\bi am (a |an )?(beginner|intermediate|advanced)\b`),
	regexp.MustCompile(`\bi'm (a |an )?(beginner|intermediate|advanced)\b`),
	regexp.MustCompile(`\bi am (a1|a2|b1|b2|c1|c2)\b`),
	regexp.MustCompile(`\bi'm (a1|a2|b1|b2|c1|c2)\b`),
}

// explicitLevelRequest reports whether the user's own words asked for a
// level change. The model sometimes tries to set the level from quiz
// performance; that must not stick.
func explicitLevelRequest(text, levelArg string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)
	for _, p := range levelRequestPatterns {
		if p.MatchString(t) {
			return true
		}
	}
	return levelArg != "" && strings.Contains(t, strings.ToLower(levelArg))
}
