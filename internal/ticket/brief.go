package ticket

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/pkg/utils"
)

// TranscriptWindow is the number of recent lines included in a brief.
const TranscriptWindow = 30

// urlPattern matches links shared in the conversation.
var urlPattern = regexp.MustCompile(`https?://[^\s<>()]+`)

// Field is a labelled value extracted from the conversation.
type Field struct {
	Key   string
	Value string
}

// fieldKeys maps recognised labels to canonical field keys.
var fieldKeys = map[string]string{
	"cel":       "goal",
	"goal":      "goal",
	"tema":      "goal",
	"subject":   "goal",
	"leiras":    "goal",
	"hatarido":  "deadline",
	"deadline":  "deadline",
	"mikorra":   "deadline",
	"budget":    "budget",
	"keret":     "budget",
	"ar":        "budget",
	"meret":     "size",
	"size":      "size",
	"format":    "size",
	"stilus":    "style",
	"style":     "style",
	"karakter":  "character",
	"character": "character",
}

// fieldOrder is the display order of extracted fields.
var fieldOrder = []string{"goal", "deadline", "budget", "size", "style", "character"}

// Brief is the assembled staff view of a ticket.
type Brief struct {
	ChannelID  snowflake.ID
	OwnerID    snowflake.ID
	Kind       Kind
	Text       string
	Fields     []Field
	Lines      []Line
	References []string
}

// Assemble builds the brief of a session.
func Assemble(s Session) Brief {
	lines := s.Transcript
	if len(lines) > TranscriptWindow {
		lines = lines[len(lines)-TranscriptWindow:]
	}

	var sources []string
	if s.BriefText != "" {
		sources = append(sources, s.BriefText)
	}
	for _, line := range s.Transcript {
		if line.Speaker == SpeakerUser {
			sources = append(sources, line.Content)
		}
	}

	return Brief{
		ChannelID:  s.ChannelID,
		OwnerID:    s.OwnerID,
		Kind:       s.Kind,
		Text:       s.BriefText,
		Fields:     extractFields(sources),
		Lines:      append([]Line(nil), lines...),
		References: references(s.Attachments, sources),
	}
}

// Field returns the value of an extracted field.
func (b Brief) Field(key string) string {
	for _, f := range b.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// Render formats the brief as plain text for the summary request.
func (b Brief) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Kategória: %s\n", b.Kind.Label())

	for _, f := range b.Fields {
		fmt.Fprintf(&sb, "%s: %s\n", f.Key, f.Value)
	}
	if b.Text != "" {
		fmt.Fprintf(&sb, "Brief:\n%s\n", b.Text)
	}
	if len(b.Lines) > 0 {
		sb.WriteString("Beszélgetés:\n")
		sb.WriteString(renderLines(b.Lines))
	}
	if len(b.References) > 0 {
		sb.WriteString("Referenciák:\n")
		for _, ref := range b.References {
			sb.WriteString("- " + ref + "\n")
		}
	}

	return sb.String()
}

// fallbackSummary is posted when the summary request fails.
func (b Brief) fallbackSummary(limit int) string {
	parts := []string{"Kategória: " + b.Kind.Label()}
	for _, f := range b.Fields {
		parts = append(parts, f.Key+": "+f.Value)
	}

	switch {
	case b.Text != "":
		parts = append(parts, b.Text)
	default:
		for _, line := range b.Lines {
			if line.Speaker == SpeakerUser {
				parts = append(parts, line.Content)
			}
		}
	}

	return utils.Truncate(utils.CompressAllWhitespace(strings.Join(parts, ". ")), limit)
}

func renderLines(lines []Line) string {
	var sb strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&sb, "%s: %s\n", line.Speaker, utils.CompressAllWhitespace(line.Content))
	}
	return sb.String()
}

// extractFields reads "label: value" lines. Later values override earlier ones.
func extractFields(sources []string) []Field {
	normalizer := utils.NewTextNormalizer()
	values := make(map[string]string)

	for _, source := range sources {
		for _, raw := range strings.Split(source, "\n") {
			label, value, ok := strings.Cut(raw, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" || strings.HasPrefix(value, "//") {
				continue
			}

			label = strings.Trim(normalizer.Normalize(label), "-*• ")
			if key, known := fieldKeys[label]; known {
				values[key] = utils.Truncate(value, 200)
			}
		}
	}

	fields := make([]Field, 0, len(values))
	for _, key := range fieldOrder {
		if v, ok := values[key]; ok {
			fields = append(fields, Field{Key: key, Value: v})
		}
	}
	return fields
}

// references collects attachment URLs followed by shared links, without duplicates.
func references(attachments []string, sources []string) []string {
	seen := make(map[string]struct{})
	var refs []string

	add := func(url string) {
		url = strings.TrimRight(url, ".,;!?")
		if _, ok := seen[url]; ok || url == "" {
			return
		}
		seen[url] = struct{}{}
		refs = append(refs, url)
	}

	for _, url := range attachments {
		add(url)
	}
	for _, source := range sources {
		for _, url := range urlPattern.FindAllString(source, -1) {
			add(url)
		}
	}
	return refs
}
