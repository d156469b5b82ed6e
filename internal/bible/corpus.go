package bible

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"greektutor/internal/apierr"
)

// Verse is one verse of text. Greek holds the SBLGNT text, English the
// KJV rendering; only one is populated depending on the source corpus.
type Verse struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
	Greek   string `json:"text_grc,omitempty"`
	English string `json:"text_eng,omitempty"`
}

// sampleVerse is the compact schema used by the bundled sample file:
// a reference string plus parallel Greek and English text.
type sampleVerse struct {
	Ref     string `json:"ref"`
	Greek   string `json:"grc"`
	English string `json:"eng"`
}

// Corpus serves verse lookups from JSON data files in a directory. The
// full GNT and KJV files are optional downloads; when the full GNT is
// absent, the bundled samples stand in for Greek lookups and word
// frequency so the tools degrade instead of failing.
type Corpus struct {
	dir string

	gnt     []Verse
	kjv     []Verse
	samples []Verse
}

// LoadCorpus reads the available data files under dir. Missing files are
// not an error; a file that exists but cannot be parsed is.
func LoadCorpus(dir string) (*Corpus, error) {
	c := &Corpus{dir: dir}

	if err := loadVerseFile(filepath.Join(dir, "gnt_full.json"), &c.gnt); err != nil {
		return nil, err
	}
	if err := loadVerseFile(filepath.Join(dir, "kjv_nt.json"), &c.kjv); err != nil {
		return nil, err
	}

	samples, err := loadSampleFile(filepath.Join(dir, "gnt_samples.json"))
	if err != nil {
		return nil, err
	}
	c.samples = samples

	return c, nil
}

func loadVerseFile(path string, dst *[]Verse) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// loadSampleFile expands each sample's reference into one Verse per
// verse number so samples can serve the same lookups as the full text.
func loadSampleFile(path string) ([]Verse, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var samples []sampleVerse
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var out []Verse
	for _, s := range samples {
		ref, err := ParseRef(s.Ref)
		if err != nil {
			continue
		}
		for _, v := range ref.Verses {
			out = append(out, Verse{
				Book:    ref.Book,
				Chapter: ref.Chapter,
				Verse:   v,
				Greek:   s.Greek,
				English: s.English,
			})
		}
	}
	return out, nil
}

// HasFullGNT reports whether the complete Greek text is loaded, as
// opposed to the bundled samples.
func (c *Corpus) HasFullGNT() bool { return len(c.gnt) > 0 }

// HasKJV reports whether the KJV text is loaded.
func (c *Corpus) HasKJV() bool { return len(c.kjv) > 0 }

// greekVerses returns the best available Greek dataset.
func (c *Corpus) greekVerses() []Verse {
	if len(c.gnt) > 0 {
		return c.gnt
	}
	return c.samples
}

// GreekVerses returns the Greek text of the referenced verses, sorted
// by verse number. NotFound when none of the verses are in the corpus.
func (c *Corpus) GreekVerses(ref *Ref) ([]Verse, error) {
	got := selectVerses(c.greekVerses(), ref)
	if len(got) == 0 {
		return nil, apierr.NotFound("no Greek text for %s", ref)
	}
	return got, nil
}

// EnglishVerses returns the KJV text of the referenced verses.
func (c *Corpus) EnglishVerses(ref *Ref) ([]Verse, error) {
	data := c.kjv
	if len(data) == 0 {
		// Samples carry an English rendering too
		data = c.samples
	}
	got := selectVerses(data, ref)
	if len(got) == 0 {
		return nil, apierr.NotFound("no English text for %s", ref)
	}
	return got, nil
}

func selectVerses(data []Verse, ref *Ref) []Verse {
	want := make(map[int]bool, len(ref.Verses))
	for _, v := range ref.Verses {
		want[v] = true
	}

	var out []Verse
	for _, row := range data {
		if row.Book == ref.Book && row.Chapter == ref.Chapter && want[row.Verse] {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Verse < out[j].Verse })
	return out
}

// SearchSamples returns bundled sample verses whose Greek text, English
// text, or reference contains the query, case-insensitively. An empty
// query returns the first few samples.
func (c *Corpus) SearchSamples(query string, limit int) []Verse {
	if limit <= 0 {
		limit = 3
	}
	q := strings.ToLower(strings.TrimSpace(query))

	var out []Verse
	for _, v := range c.samples {
		if q != "" {
			ref := fmt.Sprintf("%s %d:%d", v.Book, v.Chapter, v.Verse)
			if !strings.Contains(strings.ToLower(v.Greek), q) &&
				!strings.Contains(strings.ToLower(v.English), q) &&
				!strings.Contains(strings.ToLower(ref), q) {
				continue
			}
		}
		out = append(out, v)
		if len(out) >= limit {
			break
		}
	}
	if len(out) == 0 && q != "" {
		end := limit
		if end > len(c.samples) {
			end = len(c.samples)
		}
		out = c.samples[:end]
	}
	return out
}

// WordCount is one entry of a frequency table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Frequency tallies Greek token counts across the corpus, optionally
// restricted to a book or a single chapter. With normalize set, tokens
// are diacritic-stripped before counting. Results are sorted by count
// descending, ties alphabetical.
func (c *Corpus) Frequency(book string, chapter int, normalize bool) []WordCount {
	counts := make(map[string]int)
	for _, row := range c.greekVerses() {
		if book != "" && row.Book != book {
			continue
		}
		if chapter > 0 && row.Chapter != chapter {
			continue
		}
		for _, tok := range TokenizeGreek(row.Greek, normalize) {
			counts[tok]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out
}
