package bible

import "strings"

// bookMap maps lowercase aliases to the canonical New Testament book
// names used in the verse data files.
var bookMap = map[string]string{
	"matthew": "Matthew",
	"mark":    "Mark",
	"luke":    "Luke",
	"john":    "John",
	"acts":    "Acts",
	"romans":  "Romans",
	"1 corinthians": "1 Corinthians", "1corinthians": "1 Corinthians", "i corinthians": "1 Corinthians",
	"2 corinthians": "2 Corinthians", "2corinthians": "2 Corinthians", "ii corinthians": "2 Corinthians",
	"galatians":   "Galatians",
	"ephesians":   "Ephesians",
	"philippians": "Philippians",
	"colossians":  "Colossians",
	"1 thessalonians": "1 Thessalonians", "1thessalonians": "1 Thessalonians", "i thessalonians": "1 Thessalonians",
	"2 thessalonians": "2 Thessalonians", "2thessalonians": "2 Thessalonians", "ii thessalonians": "2 Thessalonians",
	"1 timothy": "1 Timothy", "1timothy": "1 Timothy", "i timothy": "1 Timothy",
	"2 timothy": "2 Timothy", "2timothy": "2 Timothy", "ii timothy": "2 Timothy",
	"titus":    "Titus",
	"philemon": "Philemon",
	"hebrews":  "Hebrews",
	"james":    "James",
	"1 peter": "1 Peter", "1peter": "1 Peter", "i peter": "1 Peter",
	"2 peter": "2 Peter", "2peter": "2 Peter", "ii peter": "2 Peter",
	"1 john": "1 John", "1john": "1 John", "i john": "1 John",
	"2 john": "2 John", "2john": "2 John", "ii john": "2 John",
	"3 john": "3 John", "3john": "3 John", "iii john": "3 John",
	"jude":       "Jude",
	"revelation": "Revelation", "apocalypse": "Revelation", "revelation of john": "Revelation",
}

// CanonicalBook resolves a user-supplied book name ("1John", "i peter",
// "Matt." with the period dropped) to its canonical form. Returns the
// empty string when the name is not a New Testament book.
func CanonicalBook(name string) string {
	if name == "" {
		return ""
	}
	key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, ".", "")))
	return bookMap[key]
}
