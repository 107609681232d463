package wordlist

import (
	"fmt"

	"github.com/robalyx/isero/internal/profanity"
	"github.com/robalyx/isero/internal/setup/config"
)

// DuplicateValidator handles exact duplicate validation of primary terms.
type DuplicateValidator struct{}

// NewDuplicateValidator creates a new DuplicateValidator instance.
func NewDuplicateValidator() *DuplicateValidator {
	return &DuplicateValidator{}
}

// Validate finds terms that normalise to the same entry.
func (v *DuplicateValidator) Validate(wordlist *config.Wordlist) []Issue {
	var issues []Issue

	seen := make(map[string]int)
	for i, entry := range wordlist.Terms {
		term := profanity.NormalizeEntry(entry.Term)
		if term == "" {
			continue
		}

		if prev, exists := seen[term]; exists {
			issues = append(issues, Issue{
				Type:        IssueExactDuplicate,
				Description: fmt.Sprintf("Term '%s' appears multiple times (positions %d and %d)", entry.Term, prev, i),
				Term:        entry.Term,
				Location:    i,
			})
			continue
		}
		seen[term] = i
	}

	return issues
}
