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
	"greektutor/internal/models"
)

// registerTools wires the non-quiz tools into the catalog. Registration
// only fails on programmer error (duplicate or empty names), so this
// panics rather than returning.
func (a *Agent) registerTools() {
	tools := []Tool{
		{
			Spec: llm.ToolSpec{
				Name:        "explain_concept",
				Description: "Explain a Koine Greek concept tailored to a level.",
				Parameters: objectSchema(map[string]interface{}{
					"concept": map[string]interface{}{"type": "string"},
					"level":   map[string]interface{}{"type": "string"},
				}, "concept"),
			},
			Required: []string{"concept"},
			Handler:  a.explainConcept,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "provide_gnt_examples",
				Description: "Return example verses from a small GNT sample matching a query.",
				Parameters: objectSchema(map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
				}, "query"),
			},
			Required: []string{"query"},
			Handler:  a.provideGNTExamples,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "get_relevant_vocabulary",
				Description: "Fetch relevant vocabulary for the user from their progress records.",
				Parameters: objectSchema(map[string]interface{}{
					"concept": map[string]interface{}{"type": "string"},
					"limit":   map[string]interface{}{"type": "integer"},
				}),
			},
			Handler: a.getRelevantVocabulary,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "set_user_level",
				Description: "Set and persist the user's Koine Greek level. Only call this if the user explicitly requests to set/change level (e.g., 'Set my level to beginner', 'I am B1'). Do NOT infer from quiz answers.",
				Parameters: objectSchema(map[string]interface{}{
					"level": map[string]interface{}{"type": "string"},
				}, "level"),
			},
			Required: []string{"level"},
			Handler:  a.setUserLevel,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "insert_vocabulary_progress",
				Description: "Insert or update a vocabulary progress row for the user.",
				Parameters: objectSchema(map[string]interface{}{
					"vocab_word":     map[string]interface{}{"type": "string"},
					"mastery_score":  map[string]interface{}{"type": "number"},
					"times_reviewed": map[string]interface{}{"type": "integer"},
				}, "vocab_word", "mastery_score", "times_reviewed"),
			},
			Required: []string{"vocab_word", "mastery_score", "times_reviewed"},
			Handler:  a.insertVocabularyProgress,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "insert_concept_mastery",
				Description: "Insert a mastered concept for the user.",
				Parameters: objectSchema(map[string]interface{}{
					"concept_name": map[string]interface{}{"type": "string"},
				}, "concept_name"),
			},
			Required: []string{"concept_name"},
			Handler:  a.insertConceptMastery,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "get_gnt_verses",
				Description: "Fetch specific verses from the Greek NT.",
				Parameters:  verseLookupSchema(),
			},
			Handler: a.getGNTVerses,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "get_kjv_verses",
				Description: "Fetch specific verses from the English KJV NT.",
				Parameters:  verseLookupSchema(),
			},
			Handler: a.getKJVVerses,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "explain_verse_alignment",
				Description: "Explain Greek-to-English (KJV) mapping for a verse reference.",
				Parameters: objectSchema(map[string]interface{}{
					"ref": map[string]interface{}{"type": "string"},
				}, "ref"),
			},
			Required: []string{"ref"},
			Handler:  a.explainVerseAlignment,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "insert_user_interest",
				Description: "Record a user's interest (topic/book/chapter/passage).",
				Parameters: objectSchema(map[string]interface{}{
					"interest_type": map[string]interface{}{"type": "string", "enum": []string{"topic", "book", "chapter", "passage"}},
					"topic":         map[string]interface{}{"type": "string"},
					"book":          map[string]interface{}{"type": "string"},
					"chapter":       map[string]interface{}{"type": "integer"},
					"passage_ref":   map[string]interface{}{"type": "string"},
				}, "interest_type"),
			},
			Required: []string{"interest_type"},
			Handler:  a.insertUserInterest,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "generate_and_insert_vocab",
				Description: "Generate high-frequency Greek tokens from the NT (global/book/chapter) and insert them into the user's vocabulary.",
				Parameters: objectSchema(map[string]interface{}{
					"mode":      map[string]interface{}{"type": "string", "enum": []string{"global", "book", "chapter"}},
					"count":     map[string]interface{}{"type": "integer"},
					"book":      map[string]interface{}{"type": "string"},
					"chapter":   map[string]interface{}{"type": "integer"},
					"normalize": map[string]interface{}{"type": "boolean"},
				}),
			},
			Handler: a.generateAndInsertVocab,
		},
		{
			Spec: llm.ToolSpec{
				Name:        "gloss_tokens",
				Description: "Suggest English glosses for a batch of Greek tokens, using the gloss cache first.",
				Parameters: objectSchema(map[string]interface{}{
					"words": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				}, "words"),
			},
			Required: []string{"words"},
			Handler:  a.glossTokens,
		},
	}
	for _, t := range tools {
		if err := a.catalog.Register(t); err != nil {
			panic(err)
		}
	}
}

func verseLookupSchema() json.RawMessage {
	return objectSchema(map[string]interface{}{
		"ref":     map[string]interface{}{"type": "string", "description": "e.g., 'John 1:1-3'"},
		"book":    map[string]interface{}{"type": "string"},
		"chapter": map[string]interface{}{"type": "integer"},
		"verses":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "integer"}},
	})
}

func (a *Agent) explainConcept(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	concept := stringArg(args, "concept")
	level := stringArg(args, "level")
	if level == "" {
		if mem, err := a.memory.Load(a.userID); err == nil && mem.Level != "" {
			level = mem.Level
		}
	}
	if level == "" {
		level = "unknown"
	}

	prompt := fmt.Sprintf(
		"You are a concise Biblical Greek tutor. Explain the concept clearly, "+
			"step-by-step, with 1-2 simple examples. Use Koine Greek terminology when useful.\n"+
			"Concept: %s\nStudent level: %s\n", concept, level)
	reply, err := a.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You explain Koine Greek concepts succinctly for learners."},
		{Role: llm.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("explanation failed: %w", err)
	}
	return map[string]string{"explanation": reply.Content}, nil
}

func (a *Agent) provideGNTExamples(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	examples := a.corpus.SearchSamples(stringArg(args, "query"), 5)
	return map[string]interface{}{"examples": examples}, nil
}

func (a *Agent) getRelevantVocabulary(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	limit := intArg(args, "limit", 20)
	items, err := a.api.RelevantVocab(ctx, a.userID, stringArg(args, "concept"), limit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"vocabulary": items}, nil
}

func (a *Agent) setUserLevel(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	level := strings.TrimSpace(stringArg(args, "level"))
	if !explicitLevelRequest(a.lastUserText, level) {
		return map[string]string{"status": "ignored", "reason": "no explicit level request"}, nil
	}
	if err := a.api.SetLevel(ctx, a.userID, level); err != nil {
		return nil, err
	}
	mem, err := a.memory.Load(a.userID)
	if err != nil {
		return nil, err
	}
	mem.Level = level
	if err := a.memory.Save(a.userID, mem); err != nil {
		return nil, err
	}
	return map[string]string{"status": fmt.Sprintf("Level set to %s", level)}, nil
}

func (a *Agent) insertVocabularyProgress(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	item := &models.VocabularyProgress{
		UserID:        a.userID,
		VocabWord:     stringArg(args, "vocab_word"),
		MasteryScore:  floatArg(args, "mastery_score"),
		TimesReviewed: intArg(args, "times_reviewed", 0),
	}
	if _, err := a.api.UpsertVocab(ctx, item); err != nil {
		return nil, err
	}
	return map[string]string{"status": "ok"}, nil
}

func (a *Agent) insertConceptMastery(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if _, err := a.api.AddConcept(ctx, a.userID, stringArg(args, "concept_name")); err != nil {
		return nil, err
	}
	return map[string]string{"status": "ok"}, nil
}

// resolveRef builds a verse reference from either a free-form ref
// string or explicit book/chapter/verses arguments.
func resolveRef(args map[string]interface{}) (*bible.Ref, error) {
	if ref := strings.TrimSpace(stringArg(args, "ref")); ref != "" {
		return bible.ParseRef(ref)
	}
	book := bible.CanonicalBook(stringArg(args, "book"))
	if book == "" {
		return nil, apierr.NotFound("no book named %q", stringArg(args, "book"))
	}
	chapter := intArg(args, "chapter", 1)
	verses := intSliceArg(args, "verses")
	if chapter < 1 || len(verses) == 0 {
		return nil, apierr.Validation("chapter and verses are required without a ref")
	}
	return &bible.Ref{Book: book, Chapter: chapter, Verses: verses}, nil
}

func (a *Agent) getGNTVerses(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ref, err := resolveRef(args)
	if err != nil {
		return nil, err
	}
	verses, err := a.corpus.GreekVerses(ref)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"verses": verses}, nil
}

func (a *Agent) getKJVVerses(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ref, err := resolveRef(args)
	if err != nil {
		return nil, err
	}
	verses, err := a.corpus.EnglishVerses(ref)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"verses": verses}, nil
}

func (a *Agent) explainVerseAlignment(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ref, err := bible.ParseRef(stringArg(args, "ref"))
	if err != nil {
		return nil, err
	}
	greek, err := a.corpus.GreekVerses(ref)
	if err != nil {
		return nil, err
	}
	english, err := a.corpus.EnglishVerses(ref)
	if err != nil {
		return nil, err
	}

	var g, k strings.Builder
	for _, v := range greek {
		fmt.Fprintf(&g, "%s %d:%d — %s\n", v.Book, v.Chapter, v.Verse, v.Greek)
	}
	for _, v := range english {
		fmt.Fprintf(&k, "%s %d:%d — %s\n", v.Book, v.Chapter, v.Verse, v.English)
	}
	prompt := "You are a Biblical Greek tutor. For the passage, provide a word-by-word alignment " +
		"from the Greek text to the English KJV, explaining for each notable Greek word " +
		"its typical gloss, morphology where helpful (e.g., case/number/tense), and why the KJV renders it so. " +
		"Keep explanations concise, but complete. Then provide a brief translation check.\n\n" +
		"Greek (GNT):\n" + g.String() + "\nKJV:\n" + k.String() + "\n" +
		"Format as a list: for each verse, list Greek tokens with short rationale."

	reply, err := a.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You align Greek NT verses with KJV and explain translation choices succinctly."},
		{Role: llm.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("alignment failed: %w", err)
	}
	return map[string]string{"explanation": reply.Content}, nil
}

func (a *Agent) insertUserInterest(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	item := &models.UserInterest{
		UserID:       a.userID,
		InterestType: stringArg(args, "interest_type"),
		Topic:        stringArg(args, "topic"),
		Book:         bible.CanonicalBook(stringArg(args, "book")),
		Chapter:      intArg(args, "chapter", 0),
		PassageRef:   stringArg(args, "passage_ref"),
	}
	if _, err := a.api.AddInterest(ctx, item); err != nil {
		return nil, err
	}
	return map[string]string{"status": "ok"}, nil
}

// scopeArgs extracts and validates the shared mode/book/chapter scope
// used by vocabulary generation and quizzes.
func scopeArgs(args map[string]interface{}) (mode, book string, chapter int, normalize bool, err error) {
	mode = stringArg(args, "mode")
	if mode == "" {
		mode = "global"
	}
	book = bible.CanonicalBook(stringArg(args, "book"))
	chapter = intArg(args, "chapter", 0)
	normalize = boolArg(args, "normalize", true)

	switch mode {
	case "global":
	case "book":
		if book == "" {
			err = apierr.Validation("book mode requires book")
		}
	case "chapter":
		if book == "" || chapter < 1 {
			err = apierr.Validation("chapter mode requires book and chapter")
		}
	default:
		err = apierr.Validation("unknown mode %q", mode)
	}
	if mode != "chapter" {
		chapter = 0
	}
	if mode == "global" {
		book = ""
	}
	return mode, book, chapter, normalize, err
}

func (a *Agent) generateAndInsertVocab(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	mode, book, chapter, normalize, err := scopeArgs(args)
	if err != nil {
		return nil, err
	}
	count := intArg(args, "count", 20)

	freq := a.corpus.Frequency(book, chapter, normalize)
	if len(freq) == 0 {
		return nil, apierr.NotFound("no Greek text for the requested scope")
	}
	source := "sample"
	if a.corpus.HasFullGNT() {
		source = "full"
	}

	existing, err := a.api.ListVocab(ctx, a.userID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	haveNorm := make(map[string]bool, len(existing))
	for _, row := range existing {
		have[row.VocabWord] = true
		if normalize {
			haveNorm[bible.StripDiacritics(strings.ToLower(row.VocabWord))] = true
		}
	}

	var selected []string
	for _, wc := range freq {
		if have[wc.Word] {
			continue
		}
		if normalize && haveNorm[bible.StripDiacritics(strings.ToLower(wc.Word))] {
			continue
		}
		selected = append(selected, wc.Word)
		if len(selected) >= count {
			break
		}
	}

	for _, w := range selected {
		item := &models.VocabularyProgress{UserID: a.userID, VocabWord: w}
		if _, err := a.api.UpsertVocab(ctx, item); err != nil {
			return nil, err
		}
	}

	// The set log feeds the dashboard; failing to record it should not
	// undo the inserts above.
	set, err := a.api.CreateVocabSet(ctx, &models.VocabSet{
		UserID:         a.userID,
		Mode:           mode,
		Book:           book,
		Chapter:        chapter,
		CountRequested: count,
		CountInserted:  len(selected),
		Source:         source,
	})
	if err != nil {
		log.Printf("vocab set log failed for %s: %v", a.userID, err)
	} else if len(selected) > 0 {
		if err := a.api.AddVocabSetItems(ctx, a.userID, set.ID, selected); err != nil {
			log.Printf("vocab set items log failed for %s: %v", a.userID, err)
		}
	}

	return map[string]interface{}{
		"inserted": selected,
		"count":    len(selected),
		"mode":     mode,
		"book":     book,
		"chapter":  chapter,
		"source":   source,
	}, nil
}

func (a *Agent) glossTokens(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var tokens []string
	for _, w := range stringSliceArg(args, "words") {
		if w != "" {
			tokens = append(tokens, w)
		}
	}
	if len(tokens) == 0 {
		return map[string][]string{}, nil
	}

	result := make(map[string][]string)
	cached, err := a.api.GetGlosses(ctx, tokens)
	if err != nil {
		log.Printf("gloss cache lookup failed for %s: %v", a.userID, err)
	}
	for _, entry := range cached {
		if len(entry.Glosses) > 0 {
			result[entry.Word] = normalizeGlosses(entry.Glosses)
		}
	}

	var missing []string
	for _, t := range tokens {
		if _, ok := result[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	payload, _ := json.Marshal(map[string][]string{"tokens": missing})
	reply, err := a.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "For each Koine Greek token, provide 2-5 common English glosses (lowercase). " +
			`Return strictly JSON mapping tokens to lists, e.g., {"λόγος":["word","message"]}.`},
		{Role: llm.RoleUser, Content: string(payload)},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("gloss lookup failed: %w", err)
	}

	fresh := make(map[string][]string)
	if err := json.Unmarshal([]byte(reply.Content), &fresh); err != nil {
		fresh = nil
	}
	var entries []models.GlossEntry
	for word, glosses := range fresh {
		glosses = normalizeGlosses(glosses)
		if len(glosses) == 0 {
			continue
		}
		result[word] = glosses
		entries = append(entries, models.GlossEntry{Word: word, Glosses: glosses})
	}
	if len(entries) > 0 {
		if err := a.api.UpsertGlosses(ctx, entries); err != nil {
			log.Printf("gloss cache write failed for %s: %v", a.userID, err)
		}
	}
	return result, nil
}

func normalizeGlosses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}
