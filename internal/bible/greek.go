package bible

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// isGreekLetter reports whether r falls in the Greek and Coptic or
// Greek Extended blocks.
func isGreekLetter(r rune) bool {
	return (r >= 0x0370 && r <= 0x03FF) || (r >= 0x1F00 && r <= 0x1FFF)
}

// StripDiacritics removes accents, breathings, and other combining marks
// by decomposing to NFD and dropping the mark runes.
func StripDiacritics(text string) string {
	decomposed := norm.NFD.String(text)
	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.In(r, unicode.Mn, unicode.Mc, unicode.Me) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// TokenizeGreek splits text into lowercase Greek word runs, discarding
// punctuation, Latin text, and digits. With normalize set, diacritics
// are stripped so that accent variants of a word collapse together.
func TokenizeGreek(text string, normalize bool) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := strings.ToLower(cur.String())
		if normalize {
			tok = StripDiacritics(tok)
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
		cur.Reset()
	}

	for _, r := range text {
		if isGreekLetter(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
