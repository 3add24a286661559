package core

// similarity.go scores how closely a CSV header resembles a catalog name.
//
// Both strings are normalized first (diacritics removed, case folded,
// separators and punctuation dropped), then compared:
//
//  1. Identical normalized forms score 1.0.
//  2. If one form contains the other (and the contained form has at least
//     minContainedLen runes), the score is 0.75 plus a bonus proportional to
//     how much of the longer form the shorter one covers.
//  3. Otherwise the score is the normalized Levenshtein similarity.

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// minContainedLen keeps short names like "age" from matching inside "image".
const minContainedLen = 4

// normalizeToken folds s to lowercase letters and digits with diacritics removed.
func normalizeToken(s string) string {
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// HeaderSimilarity returns a score in [0,1] for a header against a candidate name.
func HeaderSimilarity(header, name string) float64 {
	a := normalizeToken(header)
	b := normalizeToken(name)
	return normalizedSimilarity(a, b)
}

func normalizedSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}

	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	shorter, longer := la, lb
	if shorter > longer {
		shorter, longer = longer, shorter
	}

	if shorter >= minContainedLen && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return 0.75 + 0.25*float64(shorter)/float64(longer)
	}

	distance := levenshtein.ComputeDistance(a, b)
	score := 1.0 - float64(distance)/float64(longer)
	if score < 0 {
		return 0
	}
	return score
}

// bestNameScore scores a header against a field's display name and synonyms.
func bestNameScore(header string, field TargetField) float64 {
	h := normalizeToken(header)
	best := normalizedSimilarity(h, normalizeToken(field.DisplayName))
	for _, syn := range field.Synonyms {
		if best == 1.0 {
			break
		}
		if s := normalizedSimilarity(h, normalizeToken(syn)); s > best {
			best = s
		}
	}
	return best
}
