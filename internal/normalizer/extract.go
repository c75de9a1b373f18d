package normalizer

import (
	"regexp"
	"strings"
	"unicode"
)

// Model regexes in fixed precedence: explicit "Model:" prefix, then
// letter-led codes, then digit-led codes. First match wins.
var (
	modelPrefixed = regexp.MustCompile(`(?i)model:\s*([A-Za-z0-9-]+)`)
	modelAlpha    = regexp.MustCompile(`\b[A-Z]{1,3}\d{2,5}[A-Z0-9-]*\b`)
	modelNumeric  = regexp.MustCompile(`\b\d{3,5}[A-Z]{1,3}\b`)
)

// ExtractModel pulls a best-effort model token from a title. Absence is fine.
func ExtractModel(title string) string {
	if m := modelPrefixed.FindStringSubmatch(title); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := modelAlpha.FindString(title); m != "" {
		return strings.ToUpper(m)
	}
	if m := modelNumeric.FindString(title); m != "" {
		return strings.ToUpper(m)
	}
	return ""
}

const unknownBrand = "Unknown"

// brandIndex is the alias map inverted for case-insensitive lookup.
type brandIndex map[string]string

func newBrandIndex(aliases map[string][]string) brandIndex {
	idx := brandIndex{}
	for canonical, variants := range aliases {
		idx[strings.ToLower(canonical)] = canonical
		for _, v := range variants {
			idx[strings.ToLower(v)] = canonical
		}
	}
	return idx
}

// resolve maps a raw brand string or title to the canonical brand. The raw
// brand field wins over title words; a plausible title-lead token is
// accepted when the curated map has no answer.
func (idx brandIndex) resolve(rawBrand, title string) string {
	if b := strings.ToLower(strings.TrimSpace(rawBrand)); b != "" {
		if canonical, ok := idx[b]; ok {
			return canonical
		}
	}

	for _, word := range splitBrandWords(title) {
		if canonical, ok := idx[strings.ToLower(word)]; ok {
			return canonical
		}
	}

	words := strings.Fields(title)
	if len(words) > 0 {
		lead := words[0]
		if len(lead) <= 15 && startsUpper(lead) {
			return lead
		}
	}
	return unknownBrand
}

func splitBrandWords(title string) []string {
	return strings.FieldsFunc(title, func(r rune) bool {
		return r == ' ' || r == '-' || r == '\t'
	})
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
