// Package textnorm cleans text scraped from arbitrary HTML so it can be shown
// to a user or matched against keywords.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// allowedPunct lists the punctuation kept by Normalize. Currency symbols are
// matched by category and do not need to be listed.
const allowedPunct = `.,;:!?'"()[]{}-–—/\&%+*=#@_<>|~^«»“”‘’¡¿°ºª…·`

// Normalize collapses whitespace, drops characters outside the allow-list
// (letters, digits, common punctuation and currency symbols) and trims the
// result. It never fails; an empty input yields an empty string.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	raw = norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(len(raw))
	pendingSpace := false

	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case !allowed(r):
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	return b.String()
}

func allowed(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
		return true
	case unicode.Is(unicode.Sc, r):
		return true
	}
	return strings.ContainsRune(allowedPunct, r)
}

// Truncate limits s to n runes and trims any trailing space left by the cut.
// An n of 0 or less disables truncation.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return strings.TrimSpace(string(rs[:n]))
}

// Length returns the number of runes in s.
func Length(s string) int {
	return len([]rune(s))
}

// Fold lowercases s and strips diacritics so "Preço" and "preco" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
