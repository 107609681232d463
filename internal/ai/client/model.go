package client

import (
	"strings"
	"unicode/utf8"
)

// heavyContentLength is the content length from which auto selection prefers the heavy model.
const heavyContentLength = 600

// heavyKeywords make auto selection prefer the heavy model.
var heavyKeywords = []string{"plan", "spec", "design", "architecture", "terv"}

// Models names the concrete models behind each selection.
type Models struct {
	Mini  string
	Heavy string
}

// Pick resolves a selection to a concrete model for the given content.
func (m Models) Pick(sel Selection, content string) string {
	switch sel {
	case SelectMini:
		return m.Mini
	case SelectHeavy:
		return m.Heavy
	case SelectAuto:
	}

	if wantsHeavy(content) {
		return m.Heavy
	}
	return m.Mini
}

func wantsHeavy(content string) bool {
	if utf8.RuneCountInString(content) >= heavyContentLength {
		return true
	}

	lower := strings.ToLower(content)
	for _, keyword := range heavyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
