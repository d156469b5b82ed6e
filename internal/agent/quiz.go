package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"greektutor/internal/apierr"
	"greektutor/internal/bible"
	"greektutor/internal/llm"
	"greektutor/internal/srs"
)

// Mastery adjustments per grading verdict.
const (
	deltaCorrect   = 0.05
	deltaPartial   = 0.02
	deltaIncorrect = -0.02
)

func (a *Agent) registerQuizTools() {
	tools := []Tool{
		{
			Spec: llm.ToolSpec{
				Name:        "start_quiz",
				Description: "Start a lightweight vocab quiz over Greek tokens (global/book/chapter).",
				Parameters: objectSchema(map[string]interface{}{
					"mode":      map[string]interface{}{"type": "string", "enum": []string{"global", "book", "chapter"}},
					"count":     map[string]interface{}{"type": "integer"},
					"book":      map[string]interface{}{"type": "string"},
					"chapter":   map[string]interface{}{"type": "integer"},
					"normalize": map[string]interface{}{"type": "boolean"},
				}),
			},
			Handler: a.startQuiz,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "start_quiz_from_words",
				Description: "Start a vocab quiz from an explicit list of Greek tokens.",
				Parameters: objectSchema(map[string]interface{}{
					"words": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"count": map[string]interface{}{"type": "integer"},
				}, "words"),
			},
			Required: []string{"words"},
			Handler:  a.startQuizFromWords,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "next_quiz_question",
				Description: "Advance to the next quiz question and return it.",
				Parameters:  objectSchema(map[string]interface{}{}),
			},
			Handler: a.nextQuizQuestion,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "grade_quiz_answer",
				Description: "Grade the user's answer for the current quiz question.",
				Parameters: objectSchema(map[string]interface{}{
					"user_answer": map[string]interface{}{"type": "string"},
				}, "user_answer"),
			},
			Required: []string{"user_answer"},
			Handler:  a.gradeQuizAnswer,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "end_quiz",
				Description: "End the quiz and return a summary.",
				Parameters:  objectSchema(map[string]interface{}{}),
			},
			Handler: a.endQuiz,
		},
	}
	for _, t := range tools {
		if err := a.catalog.Register(t); err != nil {
			panic(err)
		}
	}
}

func (a *Agent) startQuiz(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	mode, book, chapter, normalize, err := scopeArgs(args)
	if err != nil {
		return nil, err
	}
	count := intArg(args, "count", 10)

	freq := a.corpus.Frequency(book, chapter, normalize)
	if len(freq) == 0 {
		return nil, apierr.NotFound("no Greek text for the requested scope")
	}

	queue := make([]string, 0, count)
	for _, wc := range freq {
		if len(queue) >= count {
			break
		}
		queue = append(queue, wc.Word)
	}

	mem, err := a.memory.Load(a.userID)
	if err != nil {
		return nil, err
	}
	mem.Quiz = &QuizState{
		Active:    true,
		Mode:      mode,
		Book:      book,
		Chapter:   chapter,
		Normalize: normalize,
		Queue:     queue,
		Total:     len(queue),
	}
	if err := a.memory.Save(a.userID, mem); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status": "started", "total": len(queue),
		"mode": mode, "book": book, "chapter": chapter,
	}, nil
}

func (a *Agent) startQuizFromWords(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var unique []string
	seen := make(map[string]bool)
	for _, w := range stringSliceArg(args, "words") {
		if w == "" {
			continue
		}
		key := bible.StripDiacritics(strings.ToLower(w))
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, w)
	}
	if count := intArg(args, "count", 0); count > 0 && count < len(unique) {
		unique = unique[:count]
	}
	if len(unique) == 0 {
		return nil, apierr.Validation("no usable words for quiz")
	}

	mem, err := a.memory.Load(a.userID)
	if err != nil {
		return nil, err
	}
	mem.Quiz = &QuizState{
		Active:    true,
		Mode:      "custom",
		Normalize: true,
		Queue:     unique,
		Total:     len(unique),
	}
	if err := a.memory.Save(a.userID, mem); err != nil {
		return nil, err
	}
	return map[string]interface{}{"status": "started", "total": len(unique)}, nil
}

func (a *Agent) nextQuizQuestion(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	mem, err := a.memory.Load(a.userID)
	if err != nil {
		return nil, err
	}
	q := mem.Quiz
	if q == nil || !q.Active {
		return nil, apierr.Validation("no active quiz")
	}
	if len(q.Queue) == 0 {
		return map[string]interface{}{"done": true, "message": "Quiz complete."}, nil
	}

	token := q.Queue[0]
	q.Queue = q.Queue[1:]

	glosses := a.glossesForToken(ctx, token)
	q.Current = &QuizQuestion{Token: token, Glosses: glosses}
	if err := a.memory.Save(a.userID, mem); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"question":     fmt.Sprintf("What does '%s' mean?", token),
		"token":        token,
		"glosses_hint": glosses[:1],
	}, nil
}

// glossesForToken asks the model for common glosses; grading falls back
// to "unknown" when the model returns nothing usable.
func (a *Agent) glossesForToken(ctx context.Context, token string) []string {
	reply, err := a.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "Given a Koine Greek token from the NT, list 3-6 common English glosses (lowercase), " +
			`short words/phrases only. Reply as JSON: {"glosses":[...]}`},
		{Role: llm.RoleUser, Content: "Token: " + token},
	}, nil)
	if err != nil {
		log.Printf("gloss lookup failed for %q: %v", token, err)
		return []string{"unknown"}
	}
	var parsed struct {
		Glosses []string `json:"glosses"`
	}
	if err := json.Unmarshal([]byte(reply.Content), &parsed); err != nil {
		return []string{"unknown"}
	}
	glosses := normalizeGlosses(parsed.Glosses)
	if len(glosses) == 0 {
		return []string{"unknown"}
	}
	return glosses
}

func (a *Agent) gradeQuizAnswer(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	mem, err := a.memory.Load(a.userID)
	if err != nil {
		return nil, err
	}
	q := mem.Quiz
	if q == nil || !q.Active || q.Current == nil {
		return nil, apierr.Validation("no current question")
	}
	token := q.Current.Token
	answer := strings.TrimSpace(stringArg(args, "user_answer"))

	verdict, explanation := a.judgeAnswer(ctx, token, q.Current.Glosses, answer)

	q.Asked++
	var delta float64
	switch verdict {
	case "correct":
		q.Correct++
		delta = deltaCorrect
	case "partial":
		delta = deltaPartial
	default:
		verdict = "incorrect"
		delta = deltaIncorrect
	}

	// The quiz keeps going even when the progress write fails.
	quality := srs.QualityFromVerdict(verdict)
	if _, err := a.api.IncrementReview(ctx, a.userID, token, delta, quality); err != nil {
		log.Printf("review update failed for %s %q: %v", a.userID, token, err)
	}

	q.Current = nil
	if err := a.memory.Save(a.userID, mem); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"verdict":     verdict,
		"explanation": explanation,
		"asked":       q.Asked,
		"correct":     q.Correct,
		"remaining":   len(q.Queue),
	}, nil
}

// judgeAnswer asks the model to compare the answer against the glosses.
// Anything unparseable grades as incorrect.
func (a *Agent) judgeAnswer(ctx context.Context, token string, glosses []string, answer string) (string, string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"token": token, "glosses": glosses, "answer": answer,
	})
	reply, err := a.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You are grading a vocab quiz. Compare the user's answer to acceptable glosses. " +
			`Return JSON: {"verdict": "correct|partial|incorrect", "explanation": short rationale}. Be lenient with synonyms.`},
		{Role: llm.RoleUser, Content: string(payload)},
	}, nil)
	if err != nil {
		log.Printf("grading failed for %q: %v", token, err)
		return "incorrect", ""
	}
	var parsed struct {
		Verdict     string `json:"verdict"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(reply.Content), &parsed); err != nil {
		return "incorrect", ""
	}
	verdict := strings.ToLower(strings.TrimSpace(parsed.Verdict))
	if verdict == "" {
		verdict = "incorrect"
	}
	return verdict, parsed.Explanation
}

func (a *Agent) endQuiz(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	mem, err := a.memory.Load(a.userID)
	if err != nil {
		return nil, err
	}
	asked, correct, total := 0, 0, 0
	if mem.Quiz != nil {
		asked = mem.Quiz.Asked
		correct = mem.Quiz.Correct
		total = mem.Quiz.Total
		if total == 0 {
			total = asked
		}
	}
	mem.Quiz = &QuizState{}
	if err := a.memory.Save(a.userID, mem); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":  "ended",
		"asked":   asked,
		"correct": correct,
		"total":   total,
	}, nil
}
