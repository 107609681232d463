package wordlist

import (
	"fmt"
	"strings"

	"github.com/robalyx/isero/internal/setup/config"
)

// FieldValidator reports entries with missing text.
type FieldValidator struct{}

// NewFieldValidator creates a new FieldValidator instance.
func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

// Validate reports empty terms and empty variants.
func (v *FieldValidator) Validate(wordlist *config.Wordlist) []Issue {
	var issues []Issue

	for i, entry := range wordlist.Terms {
		if strings.TrimSpace(entry.Term) == "" {
			issues = append(issues, Issue{
				Type:        IssueEmptyTerm,
				Description: fmt.Sprintf("Entry at position %d has empty term", i),
				Location:    i,
			})
		}

		for j, variant := range entry.Variants {
			if strings.TrimSpace(variant) == "" {
				issues = append(issues, Issue{
					Type:        IssueEmptyVariant,
					Description: fmt.Sprintf("Term '%s' has empty variant at position %d", entry.Term, j),
					Term:        entry.Term,
					Location:    i,
				})
			}
		}
	}

	return issues
}
