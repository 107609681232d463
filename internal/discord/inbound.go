package discord

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/msgctx"
)

// ChannelLookup returns a cached guild channel.
type ChannelLookup func(channelID snowflake.ID) (discord.GuildChannel, bool)

// ChannelInfo is the placement of a channel within its guild.
type ChannelInfo struct {
	ParentID   snowflake.ID
	CategoryID snowflake.ID
	IsThread   bool
	NSFW       bool
	Topic      string
}

// ResolveChannel describes a channel from the cache. Threads inherit the
// category, topic and NSFW flag of their parent.
func ResolveChannel(lookup ChannelLookup, channelID snowflake.ID) ChannelInfo {
	var info ChannelInfo

	ch, ok := lookup(channelID)
	if !ok {
		return info
	}

	if _, thread := ch.(discord.GuildThread); thread {
		info.IsThread = true
		if parentID := ch.ParentID(); parentID != nil {
			info.ParentID = *parentID
		}

		parent, ok := lookup(info.ParentID)
		if !ok {
			return info
		}
		if categoryID := parent.ParentID(); categoryID != nil {
			info.CategoryID = *categoryID
		}
		info.NSFW, info.Topic = messageChannelFlags(parent)
		return info
	}

	if categoryID := ch.ParentID(); categoryID != nil {
		info.CategoryID = *categoryID
	}
	info.NSFW, info.Topic = messageChannelFlags(ch)
	return info
}

func messageChannelFlags(ch discord.GuildChannel) (bool, string) {
	mc, ok := ch.(discord.GuildMessageChannel)
	if !ok {
		return false, ""
	}

	topic := ""
	if t := mc.Topic(); t != nil {
		topic = *t
	}
	return mc.NSFW(), topic
}

// InboundMessage converts a gateway message into an event message.
func InboundMessage(guildID snowflake.ID, m discord.Message) event.Message {
	msg := event.Message{
		ID:         m.ID,
		GuildID:    guildID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.EffectiveName(),
		AvatarURL:  m.Author.EffectiveAvatarURL(),
		Content:    m.Content,
		IsBot:      m.Author.Bot || m.Author.System,
		IsWebhook:  m.WebhookID != nil,
		CreatedAt:  m.CreatedAt,
	}

	if m.Member != nil && m.Member.Nick != nil && *m.Member.Nick != "" {
		msg.AuthorName = *m.Member.Nick
	}

	for _, a := range m.Attachments {
		attachment := event.Attachment{URL: a.URL, Filename: a.Filename}
		if a.ContentType != nil {
			attachment.ContentType = *a.ContentType
		}
		msg.Attachments = append(msg.Attachments, attachment)
	}

	return msg
}

// ContextInput collects what the context resolver needs from a gateway message.
func ContextInput(guildID, botID snowflake.ID, m discord.Message, info ChannelInfo) msgctx.Input {
	in := msgctx.Input{
		GuildID:        guildID,
		ChannelID:      m.ChannelID,
		ParentID:       info.ParentID,
		CategoryID:     info.CategoryID,
		IsThread:       info.IsThread,
		ChannelNSFW:    info.NSFW,
		Topic:          info.Topic,
		AuthorID:       m.Author.ID,
		Content:        m.Content,
		HasAttachments: len(m.Attachments) > 0,
	}

	if m.Member != nil {
		in.AuthorRoleIDs = m.Member.RoleIDs
	}

	for _, u := range m.Mentions {
		if u.ID == botID {
			in.Mentioned = true
			break
		}
	}

	if ref := m.ReferencedMessage; ref != nil && ref.Author.ID == botID {
		in.ReplyToBot = true
	}

	return in
}
