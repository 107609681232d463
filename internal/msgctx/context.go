// Package msgctx resolves the per-message context that the responder policy,
// the profanity guard and the ticket flow all key their decisions on.
package msgctx

import (
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// ChannelRole is the purpose a channel serves in the community.
type ChannelRole string

const (
	RoleGeneralChat   ChannelRole = "general_chat"
	RoleBotCommands   ChannelRole = "bot_commands"
	RoleSuggestions   ChannelRole = "suggestions"
	RoleTicketHub     ChannelRole = "ticket_hub"
	RoleAnnouncements ChannelRole = "announcements"
	RoleRules         ChannelRole = "rules"
	RoleServerGuide   ChannelRole = "server_guide"
	RoleModLogs       ChannelRole = "mod_logs"
	RoleModQueue      ChannelRole = "mod_queue"
	RoleTicketThread  ChannelRole = "ticket_thread"
	RoleOther         ChannelRole = "other"
)

// IsTalk reports whether members are expected to chat with the bot here.
func (r ChannelRole) IsTalk() bool {
	return r == RoleGeneralChat || r == RoleBotCommands || r == RoleSuggestions
}

// IsNoise reports whether the channel is read-only or staff-facing.
func (r ChannelRole) IsNoise() bool {
	switch r {
	case RoleAnnouncements, RoleRules, RoleServerGuide, RoleModLogs, RoleModQueue:
		return true
	default:
		return false
	}
}

// Trigger is what caused the bot to look at a message.
type Trigger string

const (
	TriggerFreeText   Trigger = "free_text"
	TriggerMention    Trigger = "mention"
	TriggerWakeWord   Trigger = "wake_word"
	TriggerSlash      Trigger = "slash"
	TriggerReplyToBot Trigger = "reply_to_bot"
)

// DefaultCharLimit is the reply budget when none is configured.
const DefaultCharLimit = 300

// DefaultLocale is used when the author's locale is unknown.
const DefaultLocale = "hu"

// Context is the resolved view of a single inbound message.
type Context struct {
	GuildID    snowflake.ID
	ChannelID  snowflake.ID
	ParentID   snowflake.ID
	CategoryID snowflake.ID
	Role       ChannelRole

	IsThread   bool
	IsTicket   bool
	TicketType string
	IsNSFW     bool

	AuthorID snowflake.ID
	IsOwner  bool
	IsStaff  bool
	Locale   string

	Content        string
	Trigger        Trigger
	WasMentioned   bool
	HasWakeWord    bool
	HasAttachments bool
	CharLimit      int
}

// AuthorRole returns a short label for the author's highest role.
func (c Context) AuthorRole() string {
	switch {
	case c.IsOwner:
		return "owner"
	case c.IsStaff:
		return "staff"
	default:
		return "user"
	}
}

// topicTypeKey prefixes the ticket kind embedded in a channel topic.
const topicTypeKey = "type="

// ParseTopicType extracts the ticket kind from a topic of the form "... type=<kind> ...".
func ParseTopicType(topic string) (string, bool) {
	for _, field := range strings.FieldsFunc(topic, func(r rune) bool {
		return r == ' ' || r == ';' || r == ',' || r == '|' || r == '\n'
	}) {
		if kind, ok := strings.CutPrefix(strings.ToLower(field), topicTypeKey); ok && kind != "" {
			return kind, true
		}
	}
	return "", false
}
