// Package profanity compiles obfuscation tolerant patterns from a forbidden word list
// and renders masked versions of matching text.
package profanity

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/robalyx/isero/pkg/utils"
	"go.uber.org/zap"
)

// ErrInvalidUTF8 is returned when text handed to the matcher is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("text is not valid UTF-8")

const (
	// wordChar is a unicode word character. Patterns never start or end next to one.
	wordChar     = `[\p{L}\p{M}\p{N}_]`
	leadBoundary = `(?<!` + wordChar + `)`
	tailBoundary = `(?!` + wordChar + `)`

	// matchTimeout bounds a single pattern evaluation.
	matchTimeout = 50 * time.Millisecond

	DefaultSeparatorMax = 4
	DefaultRepeatMax    = 1
	MaxSeparator        = 8
	MaxRepeat           = 16
)

// CanonicalPhrases are always compiled, even when the configured list omits them.
var CanonicalPhrases = []string{"bazd meg", "seggfej"}

// Options tunes how loosely entries are matched.
type Options struct {
	// SeparatorMax is the number of non-letter codepoints allowed between adjacent characters.
	SeparatorMax int
	// RepeatMax is the number of times each character may repeat.
	RepeatMax int
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{SeparatorMax: DefaultSeparatorMax, RepeatMax: DefaultRepeatMax}
}

// clamp keeps options inside their supported ranges.
func (o Options) clamp() Options {
	o.SeparatorMax = min(max(o.SeparatorMax, 0), MaxSeparator)
	o.RepeatMax = min(max(o.RepeatMax, 1), MaxRepeat)
	return o
}

// Span is a half-open range of character (rune) offsets.
type Span struct {
	Start int
	End   int
}

// Len returns the number of characters covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Pattern is a compiled word list entry.
type Pattern struct {
	Entry string
	re    *regexp2.Regexp
}

// Source returns the regular expression the entry compiled to.
func (p *Pattern) Source() string {
	return p.re.String()
}

// FindAll returns every span matched by this pattern.
func (p *Pattern) FindAll(text string) ([]Span, error) {
	var spans []Span

	m, err := p.re.FindStringMatch(text)
	for m != nil && err == nil {
		if m.Length > 0 {
			spans = append(spans, Span{Start: m.Index, End: m.Index + m.Length})
		}
		m, err = p.re.FindNextMatch(m)
	}

	return spans, err
}

// Compile builds the tolerant pattern for a single normalised entry.
func Compile(entry string, opts Options) (*Pattern, error) {
	entry = NormalizeEntry(entry)
	if entry == "" {
		return nil, fmt.Errorf("%w: empty entry", ErrInvalidEntry)
	}

	opts = opts.clamp()
	tokens := strings.Fields(entry)

	var body strings.Builder
	body.WriteString(leadBoundary)

	for i, token := range tokens {
		if i > 0 {
			// Phrase tokens always tolerate at least one separator so the canonical spacing matches.
			body.WriteString(bridge(max(opts.SeparatorMax, 1)))
		}
		body.WriteString(stemCore(token, opts))
	}

	body.WriteString(suffixFor(tokens[len(tokens)-1]))
	body.WriteString(tailBoundary)

	re, err := regexp2.Compile(body.String(), regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("failed to compile entry %q: %w", entry, err)
	}
	re.MatchTimeout = matchTimeout

	return &Pattern{Entry: entry, re: re}, nil
}

// ErrInvalidEntry marks word list entries that cannot be compiled.
var ErrInvalidEntry = errors.New("invalid word list entry")

// stemCore builds the per-character body of a single token.
func stemCore(token string, opts Options) string {
	runes := []rune(token)
	parts := make([]string, 0, len(runes))

	for _, r := range runes {
		unit := "(?:" + charClass(r) + ")"
		if opts.RepeatMax > 1 {
			unit += "{1," + strconv.Itoa(opts.RepeatMax) + "}"
		}
		parts = append(parts, unit)
	}

	return strings.Join(parts, bridge(opts.SeparatorMax))
}

// bridge admits up to n codepoints that are not letters.
func bridge(n int) string {
	if n <= 0 {
		return ""
	}
	return `\P{L}{0,` + strconv.Itoa(n) + `}`
}

func escapeLiteral(s string) string {
	return regexp2.Escape(s)
}

// NormalizeEntry lowercases an entry and collapses its whitespace.
func NormalizeEntry(entry string) string {
	return strings.ToLower(utils.CompressAllWhitespace(entry))
}

// NormalizeEntries deduplicates and normalises a word list, dropping empty entries.
func NormalizeEntries(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))

	for _, entry := range entries {
		entry = NormalizeEntry(entry)
		if entry == "" {
			continue
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		out = append(out, entry)
	}

	return out
}

// Matcher finds forbidden words in text.
// It is safe for concurrent use.
type Matcher struct {
	patterns []*Pattern
	logger   *zap.Logger
}

// NewMatcher compiles the word list together with the canonical phrases.
// Entries that fail to compile are logged and skipped.
func NewMatcher(words []string, opts Options, logger *zap.Logger) *Matcher {
	logger = logger.Named("profanity_matcher")
	entries := NormalizeEntries(append(append([]string{}, words...), CanonicalPhrases...))

	patterns := make([]*Pattern, 0, len(entries))
	for _, entry := range entries {
		p, err := Compile(entry, opts)
		if err != nil {
			logger.Warn("Skipping word list entry", zap.String("entry", entry), zap.Error(err))
			continue
		}
		patterns = append(patterns, p)
	}

	logger.Info("Compiled profanity patterns",
		zap.Int("entries", len(entries)),
		zap.Int("patterns", len(patterns)))

	return &Matcher{patterns: patterns, logger: logger}
}

// Patterns returns the compiled patterns.
func (m *Matcher) Patterns() []*Pattern {
	return m.patterns
}

// Find returns the merged, non-overlapping spans of forbidden words in text.
// Text that is not valid UTF-8 yields no spans.
func (m *Matcher) Find(text string) []Span {
	if text == "" || !utf8.ValidString(text) {
		return nil
	}

	var spans []Span
	for _, p := range m.patterns {
		found, err := p.FindAll(text)
		if err != nil {
			m.logger.Warn("Pattern evaluation aborted",
				zap.String("entry", p.Entry),
				zap.Error(err))
		}
		spans = append(spans, found...)
	}

	return Merge(spans)
}

// Check validates text before matching.
func Check(text string) error {
	if !utf8.ValidString(text) {
		return ErrInvalidUTF8
	}
	return nil
}

// Merge sorts spans by start and coalesces overlapping or adjacent ones.
func Merge(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			last.End = max(last.End, s.End)
			continue
		}
		merged = append(merged, s)
	}

	return merged
}
