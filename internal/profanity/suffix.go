package profanity

import "strings"

// genericTail is appended to stems without a dedicated inflection table.
const genericTail = `\p{L}{0,3}`

// rootSuffixes lists the common inflections and compounds of well-known Hungarian roots.
// Alternatives are literal; stems that are not listed get the generic tail.
var rootSuffixes = map[string][]string{
	"fasz": {
		"kalap", "fej", "szopó", "ság", "ságok", "om", "od", "ok", "os", "nak", "ra", "ot", "a", "t",
	},
	"geci": {
		"ség", "kkel", "zik", "zés", "ző", "ből", "vel", "re", "be", "k", "t", "s",
	},
	"kurva": {
		"anyád", "anyja", "élet", "ság", "zik", "zás", "nak", "ra", "ja", "k", "t",
	},
	"szar": {
		"házi", "ság", "ságok", "jank", "ban", "ral", "ok", "os", "ul", "ik", "ni", "ja", "ra", "t",
	},
	"buzi": {
		"zik", "ság", "nak", "k", "t", "s",
	},
	"segg": {
		"fej", "lyuk", "nyaló", "ben", "be", "em", "ed", "ek", "et", "e",
	},
	"picsa": {
		"fej", "zik", "nak", "ba", "ja", "ra", "k", "t",
	},
	"pina": {
		"ban", "ba", "ja", "k", "t",
	},
	"kúr": {
		"ni", "ok", "ta", "tam", "ják", "ja", "od", "sz", "t",
	},
	"csicska": {
		"ztat", "ság", "nak", "k", "t",
	},
}

// suffixFor returns the optional suffix fragment appended after a stem.
func suffixFor(stem string) string {
	alts, ok := rootSuffixes[stem]
	if !ok {
		return genericTail
	}

	escaped := make([]string, len(alts))
	for i, alt := range alts {
		escaped[i] = escapeLiteral(alt)
	}

	return "(?:" + strings.Join(escaped, "|") + ")?"
}

// IsKnownRoot reports whether the stem has a dedicated inflection table.
func IsKnownRoot(stem string) bool {
	_, ok := rootSuffixes[stem]
	return ok
}
