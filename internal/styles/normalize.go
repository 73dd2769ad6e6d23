package styles

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer folds a style title into its comparison key. Decorative leading
// markers (emoji, variation selectors, joiners, configured prefixes) are
// stripped and the rest is NFKC-folded.
type Normalizer struct {
	prefixes []string
}

// NewNormalizer returns a Normalizer that also strips the given literal
// prefixes, e.g. "【热门】".
func NewNormalizer(prefixes ...string) Normalizer {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = norm.NFKC.String(strings.TrimSpace(p)); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return Normalizer{prefixes: cleaned}
}

var defaultNormalizer = NewNormalizer()

// NormalizeTitle folds s with the default rules.
func NormalizeTitle(s string) string {
	return defaultNormalizer.Normalize(s)
}

func (n Normalizer) Normalize(s string) string {
	out := norm.NFKC.String(s)
	for {
		before := out
		out = strings.TrimLeftFunc(out, decorative)
		for _, p := range n.prefixes {
			out = strings.TrimPrefix(out, p)
		}
		if out == before {
			break
		}
	}
	return strings.TrimRightFunc(out, unicode.IsSpace)
}

// Equal reports whether a and b share a comparison key.
func (n Normalizer) Equal(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}

func decorative(r rune) bool {
	switch r {
	case '\u200d', '\ufe0e', '\ufe0f', '\u20e3':
		return true
	}
	return unicode.IsSpace(r) || unicode.Is(unicode.So, r) || unicode.Is(unicode.Sk, r)
}
