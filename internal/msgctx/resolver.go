package msgctx

import (
	"github.com/disgoorg/snowflake/v2"
)

// Channels maps configured channel ids to their roles.
type Channels struct {
	TicketHub     snowflake.ID
	GeneralChat   snowflake.ID
	BotCommands   snowflake.ID
	Suggestions   snowflake.ID
	Announcements snowflake.ID
	Rules         snowflake.ID
	ServerGuide   snowflake.ID
	ModLogs       snowflake.ID
	ModQueue      snowflake.ID

	TicketsCategory snowflake.ID
	NSFWCategory    snowflake.ID
	SocialCategory  snowflake.ID

	NSFWChannels map[snowflake.ID]struct{}
}

// roleOf returns the configured role of a channel id, if any.
func (c Channels) roleOf(id snowflake.ID) (ChannelRole, bool) {
	if id == 0 {
		return "", false
	}

	switch id {
	case c.TicketHub:
		return RoleTicketHub, true
	case c.GeneralChat:
		return RoleGeneralChat, true
	case c.BotCommands:
		return RoleBotCommands, true
	case c.Suggestions:
		return RoleSuggestions, true
	case c.Announcements:
		return RoleAnnouncements, true
	case c.Rules:
		return RoleRules, true
	case c.ServerGuide:
		return RoleServerGuide, true
	case c.ModLogs:
		return RoleModLogs, true
	case c.ModQueue:
		return RoleModQueue, true
	}

	return "", false
}

// Members identifies privileged authors.
type Members struct {
	OwnerID      snowflake.ID
	StaffRoleIDs map[snowflake.ID]struct{}
}

// Input is the raw data of an inbound message needed to resolve its context.
type Input struct {
	GuildID     snowflake.ID
	ChannelID   snowflake.ID
	ParentID    snowflake.ID
	CategoryID  snowflake.ID
	IsThread    bool
	ChannelNSFW bool
	Topic       string

	AuthorID      snowflake.ID
	AuthorRoleIDs []snowflake.ID
	Locale        string

	Content        string
	Mentioned      bool
	ReplyToBot     bool
	Slash          bool
	HasAttachments bool
}

// WakeDetector reports whether content addresses the bot by name.
type WakeDetector interface {
	Match(content string) bool
}

// TicketLookup reports the kind of an open ticket session in a channel.
type TicketLookup interface {
	TicketKind(channelID snowflake.ID) (string, bool)
}

// Resolver builds message contexts from configured channel and member roles.
type Resolver struct {
	channels  Channels
	members   Members
	charLimit int
	wake      WakeDetector
	tickets   TicketLookup
}

// NewResolver creates a new resolver. wake and tickets may be nil.
func NewResolver(channels Channels, members Members, charLimit int, wake WakeDetector, tickets TicketLookup) *Resolver {
	if charLimit <= 0 {
		charLimit = DefaultCharLimit
	}

	return &Resolver{
		channels:  channels,
		members:   members,
		charLimit: charLimit,
		wake:      wake,
		tickets:   tickets,
	}
}

// Resolve derives the context of a message.
func (r *Resolver) Resolve(in Input) Context {
	ctx := Context{
		GuildID:        in.GuildID,
		ChannelID:      in.ChannelID,
		ParentID:       in.ParentID,
		CategoryID:     in.CategoryID,
		IsThread:       in.IsThread,
		AuthorID:       in.AuthorID,
		Locale:         in.Locale,
		Content:        in.Content,
		WasMentioned:   in.Mentioned,
		HasAttachments: in.HasAttachments,
		CharLimit:      r.charLimit,
	}

	if ctx.Locale == "" {
		ctx.Locale = DefaultLocale
	}

	ctx.IsOwner = r.members.OwnerID != 0 && in.AuthorID == r.members.OwnerID
	for _, roleID := range in.AuthorRoleIDs {
		if _, ok := r.members.StaffRoleIDs[roleID]; ok {
			ctx.IsStaff = true
			break
		}
	}

	ctx.TicketType, ctx.IsTicket = r.ticketType(in)
	ctx.IsNSFW = r.isNSFW(in)

	switch role, ok := r.channels.roleOf(in.ChannelID); {
	case ok:
		ctx.Role = role
	case ctx.IsTicket:
		ctx.Role = RoleTicketThread
	default:
		ctx.Role = RoleOther
	}

	if r.wake != nil {
		ctx.HasWakeWord = r.wake.Match(in.Content)
	}

	switch {
	case in.Slash:
		ctx.Trigger = TriggerSlash
	case in.Mentioned:
		ctx.Trigger = TriggerMention
	case in.ReplyToBot:
		ctx.Trigger = TriggerReplyToBot
	case ctx.HasWakeWord:
		ctx.Trigger = TriggerWakeWord
	default:
		ctx.Trigger = TriggerFreeText
	}

	return ctx
}

// ticketType resolves the ticket kind from the session store first, then the channel topic.
func (r *Resolver) ticketType(in Input) (string, bool) {
	if r.tickets != nil {
		if kind, ok := r.tickets.TicketKind(in.ChannelID); ok {
			return kind, true
		}
	}

	if kind, ok := ParseTopicType(in.Topic); ok {
		return kind, true
	}

	if in.IsThread && in.ParentID != 0 && in.ParentID == r.channels.TicketHub {
		return "", true
	}

	return "", false
}

func (r *Resolver) isNSFW(in Input) bool {
	if in.ChannelNSFW {
		return true
	}
	if _, ok := r.channels.NSFWChannels[in.ChannelID]; ok {
		return true
	}
	if _, ok := r.channels.NSFWChannels[in.ParentID]; ok && in.ParentID != 0 {
		return true
	}
	return r.channels.NSFWCategory != 0 && in.CategoryID == r.channels.NSFWCategory
}
