package wordlist

import (
	"github.com/robalyx/isero/internal/setup/config"
)

// Issue types reported by the validators.
const (
	IssueEmptyWordlist  = "empty_wordlist"
	IssueEmptyTerm      = "empty_term"
	IssueEmptyVariant   = "empty_variant"
	IssueExactDuplicate = "exact_duplicate"
	IssueSelfReference  = "self_reference"
	IssueCrossReference = "cross_reference_duplicate"
	IssueCompileFailure = "compile_failure"
	IssueRedundantEntry = "redundant_entry"
)

// Issue represents a validation issue found in the wordlist.
type Issue struct {
	Type        string
	Description string
	Term        string
	Location    int
}

// Validator defines the interface for all wordlist validators.
type Validator interface {
	Validate(wordlist *config.Wordlist) []Issue
}
