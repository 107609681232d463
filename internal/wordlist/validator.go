package wordlist

import (
	"github.com/robalyx/isero/internal/profanity"
	"github.com/robalyx/isero/internal/setup/config"
)

// ValidateWordlist performs all validation checks on the wordlist.
func ValidateWordlist(wordlist *config.Wordlist, opts profanity.Options) []Issue {
	if wordlist == nil || len(wordlist.Terms) == 0 {
		return []Issue{{
			Type:        IssueEmptyWordlist,
			Description: "Wordlist is empty or could not be loaded",
			Location:    -1,
		}}
	}

	validators := []Validator{
		NewFieldValidator(),
		NewDuplicateValidator(),
		NewReferenceValidator(),
		NewPatternValidator(opts),
	}

	var issues []Issue
	for _, validator := range validators {
		issues = append(issues, validator.Validate(wordlist)...)
	}

	return issues
}
