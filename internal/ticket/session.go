// Package ticket runs the private-thread intake flow that collects a brief
// from a member and summarises it for staff.
package ticket

import (
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Kind is the ticket category picked in the hub.
type Kind string

const (
	KindGeneral    Kind = "general"
	KindCommission Kind = "commission"
	KindNSFW       Kind = "nsfw"
	KindMebinu     Kind = "mebinu"
)

// Kinds lists the categories offered by the hub in display order.
var Kinds = []Kind{KindGeneral, KindCommission, KindNSFW, KindMebinu}

// ParseKind parses a ticket category.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Label returns the display name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindGeneral:
		return "Általános"
	case KindCommission:
		return "Megrendelés"
	case KindNSFW:
		return "NSFW (18+)"
	case KindMebinu:
		return "Mebinu"
	default:
		return string(k)
	}
}

// Stage is the lifecycle state of a session.
type Stage string

const (
	StageOpened        Stage = "opened"
	StageAwaitingInput Stage = "awaiting_input"
	StageFormSubmitted Stage = "form_submitted"
	StageSummarised    Stage = "summarised"
	StageClosed        Stage = "closed"
)

// Mode is how the brief is being written.
type Mode string

const (
	ModeUnset  Mode = ""
	ModeSelf   Mode = "self"
	ModeGuided Mode = "guided"
)

// Speaker identifies who said a transcript line.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerBot   Speaker = "bot"
	SpeakerStaff Speaker = "staff"
)

// Line is a single transcript entry.
type Line struct {
	Speaker Speaker
	Content string
	At      time.Time
}

// Session is the intake state of a single ticket thread.
type Session struct {
	ChannelID snowflake.ID
	GuildID   snowflake.ID
	OwnerID   snowflake.ID
	OwnerName string
	Kind      Kind
	Stage     Stage
	Mode      Mode

	// TurnCount is the number of user messages recorded.
	TurnCount int
	// AssistantTurns is the number of guided questions asked.
	AssistantTurns int

	Attachments []string
	BriefText   string
	Summary     string
	Transcript  []Line

	Reminded   bool
	RemindedAt time.Time

	CreatedAt      time.Time
	LastActivityAt time.Time
}

// clone returns a deep copy so callers never share slices with the store.
func (s *Session) clone() Session {
	out := *s
	out.Attachments = append([]string(nil), s.Attachments...)
	out.Transcript = append([]Line(nil), s.Transcript...)
	return out
}

// touch records activity and re-arms the idle reminder.
func (s *Session) touch(now time.Time) {
	s.LastActivityAt = now
	s.Reminded = false
	s.RemindedAt = time.Time{}
}

// addAttachments appends URLs up to the cap and reports how many were kept.
func (s *Session) addAttachments(urls []string, limit int) int {
	kept := 0
	for _, url := range urls {
		if len(s.Attachments) >= limit {
			break
		}
		s.Attachments = append(s.Attachments, url)
		kept++
	}
	return kept
}
