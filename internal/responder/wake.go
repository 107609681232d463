package responder

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/robalyx/isero/pkg/utils"
)

const (
	// DefaultMaxPrefixTokens is how many greeting words may precede the core word.
	DefaultMaxPrefixTokens = 2

	wakeBoundaryLead = `(?<![\p{L}\p{N}_])`
	wakeBoundaryTail = `(?![\p{L}\p{N}_])`

	matchTimeout = 50 * time.Millisecond
)

// DefaultWakeCore lists the names the bot answers to.
var DefaultWakeCore = []string{"isero", "issero"}

// DefaultWakePrefixesHU and DefaultWakePrefixesEN are the greetings accepted before the name.
var (
	DefaultWakePrefixesHU = []string{"szia", "helló", "hali", "hé", "figyelj", "kedves"}
	DefaultWakePrefixesEN = []string{"hey", "hi", "hello", "yo", "ok", "dear"}
)

// WakeMatcher detects when a message addresses the bot by name.
type WakeMatcher struct {
	re *regexp2.Regexp
}

// NewWakeMatcher compiles the core names and optional greeting prefixes.
func NewWakeMatcher(core, prefixes []string, maxPrefixTokens int) (*WakeMatcher, error) {
	if len(core) == 0 {
		core = DefaultWakeCore
	}
	maxPrefixTokens = max(maxPrefixTokens, 0)

	var body strings.Builder
	body.WriteString(wakeBoundaryLead)

	if alts := alternation(prefixes); alts != "" && maxPrefixTokens > 0 {
		body.WriteString(`(?:` + alts + `[\s,!.:;]+){0,` + strconv.Itoa(maxPrefixTokens) + `}`)
	}

	body.WriteString(alternation(core))
	body.WriteString(wakeBoundaryTail)

	re, err := regexp2.Compile(body.String(), regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout

	return &WakeMatcher{re: re}, nil
}

// alternation builds a non-capturing group of the escaped words, longest first.
func alternation(words []string) string {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		if w = utils.CompressAllWhitespace(w); w != "" {
			cleaned = append(cleaned, regexp2.Escape(w))
		}
	}
	if len(cleaned) == 0 {
		return ""
	}

	// Longer alternatives first so a shorter word never shadows a longer one.
	sort.SliceStable(cleaned, func(i, j int) bool {
		return len(cleaned[i]) > len(cleaned[j])
	})

	return `(?:` + strings.Join(cleaned, "|") + `)`
}

// Match reports whether the content contains a wake word.
func (w *WakeMatcher) Match(content string) bool {
	ok, err := w.re.MatchString(content)
	return err == nil && ok
}

// MatchMessage reports whether the message addresses the bot. A direct mention always counts.
func (w *WakeMatcher) MatchMessage(content string, mentioned bool) bool {
	return mentioned || w.Match(content)
}

// Strip removes the first greeting and name occurrence and collapses whitespace.
func (w *WakeMatcher) Strip(content string) string {
	m, err := w.re.FindStringMatch(content)
	if err != nil || m == nil {
		return utils.CompressAllWhitespace(content)
	}

	runes := []rune(content)
	rest := string(runes[:m.Index]) + " " + string(runes[m.Index+m.Length:])
	rest = utils.CompressAllWhitespace(rest)

	return strings.TrimLeft(rest, ",.:;!? ")
}
