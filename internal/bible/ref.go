package bible

import (
	"sort"
	"strconv"
	"strings"

	"greektutor/internal/apierr"
)

// Ref is a parsed scripture reference: one book, one chapter, and an
// explicit sorted list of verse numbers.
type Ref struct {
	Book    string
	Chapter int
	Verses  []int
}

// ParseRef parses references like "John 1:1-3,5" or "1 Corinthians 13:4".
// Verse segments may be single numbers or ranges; duplicates collapse and
// the result is sorted. Malformed segments are skipped, but a reference
// that yields no verses at all is a validation error. A well-formed
// reference naming a book outside the canon is a not-found error.
func ParseRef(ref string) (*Ref, error) {
	parts := strings.Fields(strings.TrimSpace(ref))
	if len(parts) < 2 {
		return nil, apierr.Validation("could not parse reference %q", ref)
	}

	cv := parts[len(parts)-1]
	colon := strings.Index(cv, ":")
	if colon < 0 {
		return nil, apierr.Validation("could not parse reference %q", ref)
	}

	name := strings.Join(parts[:len(parts)-1], " ")
	book := CanonicalBook(name)
	if book == "" {
		return nil, apierr.NotFound("no book named %q", name)
	}

	chapter, err := strconv.Atoi(cv[:colon])
	if err != nil {
		return nil, apierr.Validation("could not parse reference %q", ref)
	}

	seen := make(map[int]bool)
	for _, seg := range strings.Split(cv[colon+1:], ",") {
		if a, b, ok := strings.Cut(seg, "-"); ok {
			lo, errA := strconv.Atoi(a)
			hi, errB := strconv.Atoi(b)
			if errA != nil || errB != nil {
				continue
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			for v := lo; v <= hi; v++ {
				seen[v] = true
			}
		} else if v, err := strconv.Atoi(seg); err == nil {
			seen[v] = true
		}
	}
	if len(seen) == 0 {
		return nil, apierr.Validation("reference %q names no verses", ref)
	}

	verses := make([]int, 0, len(seen))
	for v := range seen {
		verses = append(verses, v)
	}
	sort.Ints(verses)

	return &Ref{Book: book, Chapter: chapter, Verses: verses}, nil
}

// String renders the reference back to "Book C:v,v-v" form with
// consecutive verses collapsed into ranges.
func (r *Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(r.Chapter))
	sb.WriteByte(':')

	for i := 0; i < len(r.Verses); {
		j := i
		for j+1 < len(r.Verses) && r.Verses[j+1] == r.Verses[j]+1 {
			j++
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(r.Verses[i]))
		if j > i {
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(r.Verses[j]))
		}
		i = j + 1
	}
	return sb.String()
}
