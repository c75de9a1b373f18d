package normalizer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	leadingPromo  = regexp.MustCompile(`(?i)^\s*(new\s*:|sale\s*-|hot\s*:|limited|exclusive)\s*`)
	trailingPromo = regexp.MustCompile(`(?i)[\s\-!]*(sale|deal|offer|promo|discount|clearance)\s*$`)
	bracketed     = regexp.MustCompile(`\[[^\]]*\]`)
	promoParens   = regexp.MustCompile(`(?i)\([^)]*(sale|deal|off|%|save|promo|discount|clearance)[^)]*\)`)
	spaces        = regexp.MustCompile(`\s+`)
)

// CleanTitle strips promotional noise and produces acronym-aware titlecasing.
// It is idempotent: cleaning a cleaned title changes nothing.
func CleanTitle(title string) string {
	s := title

	for {
		next := leadingPromo.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}

	s = bracketed.ReplaceAllString(s, " ")
	s = promoParens.ReplaceAllString(s, " ")

	for {
		next := trailingPromo.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}

	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}

	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = titlecaseWord(w)
	}
	return strings.Join(words, " ")
}

// titlecaseWord uppercases the first letter and lowercases the rest, but
// preserves short all-uppercase tokens (SSD, M3, 512GB) as acronyms.
func titlecaseWord(w string) string {
	if w == "" {
		return w
	}
	if len(w) <= 5 && w == strings.ToUpper(w) && hasLetter(w) {
		return w
	}

	runes := []rune(strings.ToLower(w))
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// significantTokens returns the lowercased, sorted multiset of purely
// alphanumeric title tokens longer than three characters, capped at five.
// The cap and the sort keep fingerprints deterministic across sources.
func significantTokens(title string, cap int) []string {
	var tokens []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if len(w) <= 3 || !isAlphanumeric(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	sort.Strings(tokens)
	if len(tokens) > cap {
		tokens = tokens[:cap]
	}
	return tokens
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
