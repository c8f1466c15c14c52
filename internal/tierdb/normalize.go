package tierdb

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds an ingredient, material or brand name to its lookup key:
// diacritics removed, case folded, surrounding space trimmed and inner runs of
// whitespace collapsed. "  Häagen-Dazs " and "haagen-dazs" share a key.
func Normalize(name string) string {
	// Transformers carry state, so build a fresh chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = strings.ToLower(name)
	}
	return strings.Join(strings.Fields(folded), " ")
}

// containsWord reports whether needle occurs in haystack on word boundaries.
// Both arguments must already be normalized.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for i := 0; ; {
		j := strings.Index(haystack[i:], needle)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		i = start + 1
		if i >= len(haystack) {
			return false
		}
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordByte(s[i])
}

// isWordByte treats ASCII letters, digits and any non-ASCII byte as part of a
// word. Apostrophes and ampersands stay inside brand names like "M&M's".
func isWordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '\'' || b == '&':
		return true
	case b >= 0x80:
		return true
	default:
		return false
	}
}
