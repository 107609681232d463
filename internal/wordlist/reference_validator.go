package wordlist

import (
	"fmt"

	"github.com/robalyx/isero/internal/profanity"
	"github.com/robalyx/isero/internal/setup/config"
)

// ReferenceValidator handles variants that repeat a primary term.
type ReferenceValidator struct{}

// NewReferenceValidator creates a new ReferenceValidator instance.
func NewReferenceValidator() *ReferenceValidator {
	return &ReferenceValidator{}
}

// Validate finds variants equal to their own term or to another primary term.
func (v *ReferenceValidator) Validate(wordlist *config.Wordlist) []Issue {
	var issues []Issue

	terms := make(map[string]struct{}, len(wordlist.Terms))
	for _, entry := range wordlist.Terms {
		terms[profanity.NormalizeEntry(entry.Term)] = struct{}{}
	}

	for i, entry := range wordlist.Terms {
		term := profanity.NormalizeEntry(entry.Term)

		for _, variant := range entry.Variants {
			variant = profanity.NormalizeEntry(variant)
			if variant == "" {
				continue
			}

			if variant == term {
				issues = append(issues, Issue{
					Type:        IssueSelfReference,
					Description: fmt.Sprintf("Term '%s' lists itself as a variant", entry.Term),
					Term:        entry.Term,
					Location:    i,
				})
				continue
			}

			if _, exists := terms[variant]; exists {
				issues = append(issues, Issue{
					Type:        IssueCrossReference,
					Description: fmt.Sprintf("Variant '%s' of '%s' also exists as primary term", variant, entry.Term),
					Term:        entry.Term,
					Location:    i,
				})
			}
		}
	}

	return issues
}
