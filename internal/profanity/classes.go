package profanity

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// confusables maps a base letter to the visual and leet variants accepted in its place.
var confusables = map[rune][]string{
	'a': {"á", "ä", "à", "â", "@", "4"},
	'e': {"é", "ë", "è", "3"},
	'i': {"í", "ï", "1", "!", "|", "l"},
	'o': {"ó", "ö", "ő", "ô", "0"},
	'u': {"ú", "ü", "ű", "ù"},
	'y': {"ý"},
	's': {"$", "5"},
	'z': {"2"},
	'g': {"6", "9"},
	'b': {"8"},
	'c': {"ch"},
}

// accentBase folds accented stem letters to the base letter whose class already admits them.
var accentBase = map[rune]rune{
	'á': 'a', 'ä': 'a', 'à': 'a', 'â': 'a',
	'é': 'e', 'ë': 'e', 'è': 'e',
	'í': 'i', 'ï': 'i',
	'ó': 'o', 'ö': 'o', 'ő': 'o', 'ô': 'o',
	'ú': 'u', 'ü': 'u', 'ű': 'u', 'ù': 'u',
	'ý': 'y',
}

// charClass returns the pattern fragment matching a single stem character and its confusables.
func charClass(r rune) string {
	if base, ok := accentBase[r]; ok {
		r = base
	}

	variants, ok := confusables[r]
	if !ok {
		return regexp2.Escape(string(r))
	}

	var single strings.Builder
	var multi []string

	single.WriteByte('[')
	single.WriteString(classEscape(r))
	for _, v := range variants {
		if len([]rune(v)) == 1 {
			single.WriteString(classEscape([]rune(v)[0]))
			continue
		}
		multi = append(multi, regexp2.Escape(v))
	}
	single.WriteByte(']')

	if len(multi) == 0 {
		return single.String()
	}

	// Longer alternatives go first so "ch" is preferred over "c" followed by a bridge.
	return "(?:" + strings.Join(multi, "|") + "|" + single.String() + ")"
}

// classEscape escapes a rune for use inside a bracket expression.
func classEscape(r rune) string {
	switch r {
	case '\\', ']', '[', '^', '-':
		return `\` + string(r)
	default:
		return string(r)
	}
}
