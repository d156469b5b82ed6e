package bible

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"greektutor/internal/apierr"
)

func TestCanonicalBook(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john", "John"},
		{"John", "John"},
		{" 1 corinthians ", "1 Corinthians"},
		{"1Corinthians", "1 Corinthians"},
		{"II Peter", "2 Peter"},
		{"apocalypse", "Revelation"},
		{"genesis", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalBook(tt.in); got != tt.want {
			t.Errorf("CanonicalBook(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in      string
		book    string
		chapter int
		verses  []int
		errKind apierr.Kind
	}{
		{in: "John 1:1", book: "John", chapter: 1, verses: []int{1}},
		{in: "John 1:1-3,5", book: "John", chapter: 1, verses: []int{1, 2, 3, 5}},
		{in: "1 Corinthians 13:4-7", book: "1 Corinthians", chapter: 13, verses: []int{4, 5, 6, 7}},
		{in: "John 1:3-1", book: "John", chapter: 1, verses: []int{1, 2, 3}},
		{in: "John 1:1,1,2", book: "John", chapter: 1, verses: []int{1, 2}},
		{in: "John 1:x,2", book: "John", chapter: 1, verses: []int{2}},
		{in: "John", errKind: apierr.KindValidation},
		// Well-formed, but the book is not in the canon.
		{in: "Genesis 1:1", errKind: apierr.KindNotFound},
		{in: "Isaiah 53:5", errKind: apierr.KindNotFound},
		{in: "John one:1", errKind: apierr.KindValidation},
		{in: "John 1:x", errKind: apierr.KindValidation},
		{in: "", errKind: apierr.KindValidation},
	}
	for _, tt := range tests {
		got, err := ParseRef(tt.in)
		if tt.errKind != "" {
			if !apierr.IsKind(err, tt.errKind) {
				t.Errorf("ParseRef(%q) error = %v, want kind %s", tt.in, err, tt.errKind)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRef(%q) error = %v", tt.in, err)
			continue
		}
		if got.Book != tt.book || got.Chapter != tt.chapter || !reflect.DeepEqual(got.Verses, tt.verses) {
			t.Errorf("ParseRef(%q) = %+v, want {%s %d %v}", tt.in, got, tt.book, tt.chapter, tt.verses)
		}
	}
}

func TestRefString(t *testing.T) {
	r := &Ref{Book: "John", Chapter: 1, Verses: []int{1, 2, 3, 5}}
	if got := r.String(); got != "John 1:1-3,5" {
		t.Errorf("Ref.String() = %q, want %q", got, "John 1:1-3,5")
	}
}

func TestStripDiacritics(t *testing.T) {
	tests := []struct{ in, want string }{
		{"λόγος", "λογος"},
		{"Ἐν ἀρχῇ", "Εν αρχη"},
		{"αγαπη", "αγαπη"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripDiacritics(tt.in); got != tt.want {
			t.Errorf("StripDiacritics(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenizeGreek(t *testing.T) {
	text := "Ἐν ἀρχῇ ἦν ὁ λόγος, καὶ ὁ λόγος ἦν πρὸς τὸν θεόν."

	normalized := TokenizeGreek(text, true)
	want := []string{"εν", "αρχη", "ην", "ο", "λογος", "και", "ο", "λογος", "ην", "προς", "τον", "θεον"}
	if !reflect.DeepEqual(normalized, want) {
		t.Errorf("TokenizeGreek(normalize) = %v, want %v", normalized, want)
	}

	raw := TokenizeGreek("λόγος logos 123", false)
	if !reflect.DeepEqual(raw, []string{"λόγος"}) {
		t.Errorf("TokenizeGreek(raw) = %v, want [λόγος]", raw)
	}

	if got := TokenizeGreek("", true); got != nil {
		t.Errorf("TokenizeGreek(empty) = %v, want nil", got)
	}
}

func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	samples := `[
		{"ref": "John 1:1-2", "grc": "Ἐν ἀρχῇ ἦν ὁ λόγος", "eng": "In the beginning was the Word"},
		{"ref": "John 3:16", "grc": "Οὕτως γὰρ ἠγάπησεν ὁ θεὸς τὸν κόσμον", "eng": "For God so loved the world"}
	]`
	if err := os.WriteFile(filepath.Join(dir, "gnt_samples.json"), []byte(samples), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCorpusFallsBackToSamples(t *testing.T) {
	corpus, err := LoadCorpus(writeTestCorpus(t))
	if err != nil {
		t.Fatalf("LoadCorpus() error = %v", err)
	}
	if corpus.HasFullGNT() {
		t.Error("HasFullGNT() = true with only samples on disk")
	}

	ref, err := ParseRef("John 1:1-2")
	if err != nil {
		t.Fatal(err)
	}
	verses, err := corpus.GreekVerses(ref)
	if err != nil {
		t.Fatalf("GreekVerses() error = %v", err)
	}
	if len(verses) != 2 || verses[0].Verse != 1 || verses[1].Verse != 2 {
		t.Errorf("GreekVerses() = %+v, want verses 1 and 2", verses)
	}

	eng, err := corpus.EnglishVerses(ref)
	if err != nil {
		t.Fatalf("EnglishVerses() error = %v", err)
	}
	if len(eng) != 2 || eng[0].English == "" {
		t.Errorf("EnglishVerses() = %+v", eng)
	}

	missing, _ := ParseRef("Mark 1:1")
	if _, err := corpus.GreekVerses(missing); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Errorf("GreekVerses(missing) kind = %v, want not_found", apierr.KindOf(err))
	}
}

func TestCorpusFrequency(t *testing.T) {
	corpus, err := LoadCorpus(writeTestCorpus(t))
	if err != nil {
		t.Fatalf("LoadCorpus() error = %v", err)
	}

	freq := corpus.Frequency("John", 0, true)
	counts := make(map[string]int, len(freq))
	for _, wc := range freq {
		counts[wc.Word] = wc.Count
	}
	// "ὁ λόγος" appears in both verses of the John 1:1-2 sample entry,
	// and ὁ once more in John 3:16
	if counts["ο"] != 3 {
		t.Errorf(`counts["ο"] = %d, want 3`, counts["ο"])
	}
	if counts["λογος"] != 2 {
		t.Errorf(`counts["λογος"] = %d, want 2`, counts["λογος"])
	}

	// Sorted by count descending
	for i := 1; i < len(freq); i++ {
		if freq[i].Count > freq[i-1].Count {
			t.Fatalf("Frequency() not sorted: %v", freq)
		}
	}

	if got := corpus.Frequency("Mark", 0, true); len(got) != 0 {
		t.Errorf("Frequency(Mark) = %v, want empty", got)
	}

	ch3 := corpus.Frequency("John", 3, true)
	c3 := make(map[string]int)
	for _, wc := range ch3 {
		c3[wc.Word] = wc.Count
	}
	if c3["λογος"] != 0 || c3["κοσμον"] != 1 {
		t.Errorf("Frequency(John, 3) = %v", c3)
	}
}
