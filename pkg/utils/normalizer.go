package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer folds text to lowercase without diacritics.
// This is not safe for concurrent use; create one per goroutine.
type TextNormalizer struct {
	transformer transform.Transformer
}

// NewTextNormalizer creates a new TextNormalizer instance.
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{
		transformer: transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Map(unicode.ToLower),
			norm.NFKC,
		),
	}
}

// Normalize folds s and collapses whitespace.
// Returns empty string if normalization fails or input is empty.
func (n *TextNormalizer) Normalize(s string) string {
	s = CompressAllWhitespace(s)
	if s == "" {
		return ""
	}

	result, _, err := transform.String(n.transformer, s)
	if err != nil {
		return ""
	}

	return result
}

// ContainsAny reports whether the folded text contains any of the folded phrases.
func (n *TextNormalizer) ContainsAny(s string, phrases ...string) bool {
	folded := n.Normalize(s)
	if folded == "" {
		return false
	}

	for _, phrase := range phrases {
		if p := n.Normalize(phrase); p != "" && strings.Contains(folded, p) {
			return true
		}
	}

	return false
}
