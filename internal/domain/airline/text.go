package airline

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// stopwords are generic "airline"/"aviation" tokens that carry no identity.
var stopwords = map[string]struct{}{
	"airline":  {},
	"airlines": {},
	"air":      {},
	"aviation": {},
	"خطوط":     {},
	"جوية":     {},
	"الخطوط":   {},
	"طيران":    {},
	"شركة":     {},
	"الطيران":  {},
}

// nonWord matches everything that is neither a word rune nor whitespace.
var nonWord = runes.Predicate(func(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r))
})

// diacritic matches Arabic harakat (fathatan..sukun) and tatweel.
var diacritic = runes.Predicate(func(r rune) bool {
	return (r >= '\u064B' && r <= '\u0652') || r == '\u0640'
})

// CleanText normalizes an airline name for embedding.
// Lower-casing runs first so the result is a fixed point: CleanText(CleanText(s)) == CleanText(s).
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	t := transform.Chain(cases.Lower(language.Und), runes.Remove(nonWord), runes.Remove(diacritic))
	normalized, _, err := transform.String(t, text)
	if err != nil {
		normalized = strings.ToLower(text)
	}

	tokens := strings.Fields(normalized)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
