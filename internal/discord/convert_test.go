package discord

import (
	"strings"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCreate(t *testing.T) {
	t.Parallel()

	create := messageCreate(platform.Message{
		Content: "hello",
		Embeds:  []platform.Embed{{Title: "t", Fields: []platform.EmbedField{{Name: "a", Value: "b"}}}},
		Buttons: []platform.Button{{CustomID: "x", Label: "X"}, {CustomID: "y", Label: "Y", Style: platform.ButtonDanger}},
		Select:  &platform.Select{CustomID: "s", Options: []platform.SelectOption{{Label: "L", Value: "v"}}},
		ReplyTo: 55,
	})

	assert.Equal(t, "hello", create.Content)
	require.Len(t, create.Embeds, 1)
	assert.Equal(t, "t", create.Embeds[0].Title)
	assert.Len(t, create.Components, 2)
	require.NotNil(t, create.MessageReference)
	require.NotNil(t, create.MessageReference.MessageID)
	assert.Equal(t, snowflake.ID(55), *create.MessageReference.MessageID)
	require.NotNil(t, create.AllowedMentions)
	assert.Empty(t, create.AllowedMentions.Parse)
}

func TestAllowedMentions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []discord.AllowedMentionType{discord.AllowedMentionTypeUsers}, allowedMentions(true).Parse)
	assert.Empty(t, allowedMentions(false).Parse)
}

func TestThreadName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "general-alice", threadName("general-alice"))
	long := strings.Repeat("é", 150)
	assert.Len(t, []rune(threadName(long)), maxThreadName)
}

func TestInboundMessage(t *testing.T) {
	t.Parallel()

	png := "image/png"
	nick := "Ali"
	webhookID := snowflake.ID(3)

	m := discord.Message{
		ID:        10,
		ChannelID: 20,
		Content:   "szia",
		Author:    discord.User{ID: 30, Username: "alice"},
		Member:    &discord.Member{Nick: &nick, RoleIDs: []snowflake.ID{40}},
		Attachments: []discord.Attachment{
			{URL: "https://cdn/a.png", Filename: "a.png", ContentType: &png},
			{URL: "https://cdn/b.txt", Filename: "b.txt"},
		},
		Mentions:  []discord.User{{ID: 99}},
		WebhookID: &webhookID,
	}

	msg := InboundMessage(1, m)
	assert.Equal(t, snowflake.ID(10), msg.ID)
	assert.Equal(t, snowflake.ID(1), msg.GuildID)
	assert.Equal(t, "Ali", msg.AuthorName)
	assert.True(t, msg.IsWebhook)
	assert.False(t, msg.IsBot)
	assert.Equal(t, []string{"https://cdn/a.png"}, msg.ImageURLs())

	in := ContextInput(1, 99, m, ChannelInfo{ParentID: 5, IsThread: true, Topic: "type=general"})
	assert.True(t, in.Mentioned)
	assert.False(t, in.ReplyToBot)
	assert.True(t, in.HasAttachments)
	assert.Equal(t, []snowflake.ID{40}, in.AuthorRoleIDs)
	assert.Equal(t, snowflake.ID(5), in.ParentID)
	assert.Equal(t, "type=general", in.Topic)
}

func TestContextInput_ReplyToBot(t *testing.T) {
	t.Parallel()

	m := discord.Message{
		ChannelID:         20,
		Author:            discord.User{ID: 30},
		ReferencedMessage: &discord.Message{Author: discord.User{ID: 99}},
	}

	in := ContextInput(1, 99, m, ChannelInfo{})
	assert.True(t, in.ReplyToBot)
	assert.False(t, in.Mentioned)
}

func TestResolveChannel_Unknown(t *testing.T) {
	t.Parallel()

	lookup := func(snowflake.ID) (discord.GuildChannel, bool) { return nil, false }
	assert.Equal(t, ChannelInfo{}, ResolveChannel(lookup, 1))
}
