package wordlist

import (
	"fmt"

	"github.com/robalyx/isero/internal/profanity"
	"github.com/robalyx/isero/internal/setup/config"
	"github.com/robalyx/isero/pkg/utils"
)

// PatternValidator compiles every entry the way the matcher does and reports
// entries that fail to compile or are already covered by another entry.
type PatternValidator struct {
	opts profanity.Options
}

// NewPatternValidator creates a new PatternValidator with the matcher options.
func NewPatternValidator(opts profanity.Options) *PatternValidator {
	return &PatternValidator{opts: opts}
}

type compiledEntry struct {
	word     string
	location int
	pattern  *profanity.Pattern
}

// Validate reports compile failures and redundant entries.
func (v *PatternValidator) Validate(wordlist *config.Wordlist) []Issue {
	var issues []Issue

	seen := make(map[string]struct{})
	var entries []compiledEntry

	for i, entry := range wordlist.Terms {
		words := append([]string{entry.Term}, entry.Variants...)
		for _, word := range words {
			word = profanity.NormalizeEntry(word)
			if word == "" {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}

			pattern, err := profanity.Compile(word, v.opts)
			if err != nil {
				issues = append(issues, Issue{
					Type:        IssueCompileFailure,
					Description: fmt.Sprintf("Entry '%s' does not compile: %v", word, err),
					Term:        entry.Term,
					Location:    i,
				})
				continue
			}
			entries = append(entries, compiledEntry{word: word, location: i, pattern: pattern})
		}
	}

	for _, entry := range entries {
		if by, ok := v.coveredBy(entry, entries); ok {
			issues = append(issues, Issue{
				Type:        IssueRedundantEntry,
				Description: fmt.Sprintf("Entry '%s' is redundant because '%s' already matches it", entry.word, by),
				Term:        entry.word,
				Location:    entry.location,
			})
		}
	}

	return issues
}

// coveredBy returns another entry whose pattern matches the whole of entry.
// Entries that match each other only flag the later one.
func (v *PatternValidator) coveredBy(entry compiledEntry, entries []compiledEntry) (string, bool) {
	length := utils.RuneLen(entry.word)

	for _, other := range entries {
		if other.word == entry.word || !matchesWhole(other.pattern, entry.word, length) {
			continue
		}
		if matchesWhole(entry.pattern, other.word, utils.RuneLen(other.word)) && !v.before(other, entry, entries) {
			continue
		}
		return other.word, true
	}

	return "", false
}

func (v *PatternValidator) before(a, b compiledEntry, entries []compiledEntry) bool {
	for _, e := range entries {
		switch e.word {
		case a.word:
			return true
		case b.word:
			return false
		}
	}
	return false
}

func matchesWhole(p *profanity.Pattern, text string, length int) bool {
	spans, err := p.FindAll(text)
	if err != nil {
		return false
	}
	for _, s := range profanity.Merge(spans) {
		if s.Start == 0 && s.End == length {
			return true
		}
	}
	return false
}
