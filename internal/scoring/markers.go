package scoring

import (
	"strings"

	"github.com/sells-group/safescan/internal/tierdb"
)

// MatchTerms returns the names containing at least one of terms. Each name is
// counted once, in input order. terms must already be normalized.
func MatchTerms(names []string, terms []string) []string {
	var out []string
	for _, name := range names {
		key := tierdb.Normalize(name)
		if key == "" {
			continue
		}
		for _, term := range terms {
			if strings.Contains(key, term) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// FindCertifications returns the distinct certification terms present in the
// given texts. A term contained in a longer matched term is dropped, so
// "USDA Organic" counts once.
func FindCertifications(texts []string, certs []string) []string {
	found := map[string]bool{}
	for _, text := range texts {
		key := tierdb.Normalize(text)
		for _, cert := range certs {
			if strings.Contains(key, cert) {
				found[cert] = true
			}
		}
	}
	var out []string
	for _, cert := range certs {
		if !found[cert] {
			continue
		}
		shadowed := false
		for other := range found {
			if other != cert && strings.Contains(other, cert) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			out = append(out, cert)
		}
	}
	return out
}

// RecognizeClaims returns the distinct positive claims that earn a bonus:
// "<x>-free" / "<x> free" statements and certification or claim vocabulary.
func RecognizeClaims(claims []string, vocab tierdb.Vocabulary) []string {
	seen := map[string]bool{}
	var out []string
	for _, claim := range claims {
		key := tierdb.Normalize(claim)
		if key == "" || seen[key] {
			continue
		}
		if isFreeClaim(key) || containsAny(key, vocab.Certifications) || containsAny(key, vocab.ClaimTerms) {
			seen[key] = true
			out = append(out, strings.TrimSpace(claim))
		}
	}
	return out
}

func isFreeClaim(key string) bool {
	for _, suffix := range []string{"-free", " free"} {
		if strings.HasSuffix(key, suffix) && len(strings.TrimSpace(strings.TrimSuffix(key, suffix))) > 0 {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
