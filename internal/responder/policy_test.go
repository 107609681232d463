package responder_test

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/msgctx"
	"github.com/robalyx/isero/internal/responder"
	"github.com/stretchr/testify/assert"
)

const nsfwCategory snowflake.ID = 900

func newPolicy() *responder.Policy {
	return responder.NewPolicy(responder.NewQuietTable(nil), nsfwCategory)
}

func TestPolicy_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ctx    msgctx.Context
		reply  bool
		mode   responder.Mode
		reason responder.Reason
	}{
		{
			name:   "general chat without trigger",
			ctx:    msgctx.Context{Role: msgctx.RoleGeneralChat, Content: "hello", CharLimit: 300},
			reply:  false,
			mode:   responder.ModeSilent,
			reason: responder.ReasonGeneralNoTrigger,
		},
		{
			name:   "general chat mention",
			ctx:    msgctx.Context{Role: msgctx.RoleGeneralChat, Content: "hello", WasMentioned: true, CharLimit: 300},
			reply:  true,
			mode:   responder.ModeShort,
			reason: responder.ReasonGeneralShort,
		},
		{
			name:   "general chat reply to bot without trigger",
			ctx:    msgctx.Context{Role: msgctx.RoleGeneralChat, Content: "ok", Trigger: msgctx.TriggerReplyToBot, CharLimit: 300},
			reply:  false,
			mode:   responder.ModeSilent,
			reason: responder.ReasonGeneralNoTrigger,
		},
		{
			name:   "general chat wake word",
			ctx:    msgctx.Context{Role: msgctx.RoleGeneralChat, Content: "isero", HasWakeWord: true},
			reply:  true,
			mode:   responder.ModeShort,
			reason: responder.ReasonGeneralShort,
		},
		{
			name:   "question in bot commands",
			ctx:    msgctx.Context{Role: msgctx.RoleBotCommands, Content: "help?"},
			reply:  true,
			mode:   responder.ModeShort,
			reason: responder.ReasonQuestionInGeneral,
		},
		{
			name:   "bot commands without trigger",
			ctx:    msgctx.Context{Role: msgctx.RoleBotCommands, Content: "hello"},
			reply:  false,
			mode:   responder.ModeSilent,
			reason: responder.ReasonNoTriggerTalk,
		},
		{
			name:   "ticket hub free text",
			ctx:    msgctx.Context{Role: msgctx.RoleTicketHub, Trigger: msgctx.TriggerFreeText},
			reply:  false,
			mode:   responder.ModeSilent,
			reason: responder.ReasonTicketHubFreeText,
		},
		{
			name:   "announcements",
			ctx:    msgctx.Context{Role: msgctx.RoleAnnouncements, Content: "hi?"},
			reply:  true,
			mode:   responder.ModeRedirect,
			reason: responder.ReasonNoiseChannel,
		},
		{
			name:   "nsfw ticket outside nsfw category",
			ctx:    msgctx.Context{Role: msgctx.RoleTicketThread, IsTicket: true, TicketType: "nsfw", CategoryID: 1},
			reply:  true,
			mode:   responder.ModeRedirect,
			reason: responder.ReasonNSFWRedirect,
		},
		{
			name:   "nsfw ticket inside nsfw category",
			ctx:    msgctx.Context{Role: msgctx.RoleTicketThread, IsTicket: true, TicketType: "nsfw", CategoryID: nsfwCategory},
			reply:  true,
			mode:   responder.ModeGuided,
			reason: responder.ReasonTicketGuided,
		},
		{
			name:   "commission ticket",
			ctx:    msgctx.Context{Role: msgctx.RoleTicketThread, IsTicket: true, TicketType: "commission"},
			reply:  true,
			mode:   responder.ModeGuided,
			reason: responder.ReasonTicketGuided,
		},
		{
			name:   "owner override in talk channel",
			ctx:    msgctx.Context{Role: msgctx.RoleSuggestions, IsOwner: true, Content: "note"},
			reply:  true,
			mode:   responder.ModeShort,
			reason: responder.ReasonOwnerOverride,
		},
		{
			name:   "default",
			ctx:    msgctx.Context{Role: msgctx.RoleOther, Content: "hello"},
			reply:  true,
			mode:   responder.ModeShort,
			reason: responder.ReasonDefault,
		},
	}

	p := newPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := p.Decide(tt.ctx)
			assert.Equal(t, tt.reply, d.ShouldReply)
			assert.Equal(t, tt.mode, d.Mode)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, msgctx.DefaultCharLimit, d.CharLimit)
		})
	}
}

func TestPolicy_QuietChannel(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	quiet := responder.NewQuietTable(func() time.Time { return now })
	p := responder.NewPolicy(quiet, nsfwCategory)

	const channel snowflake.ID = 42
	c := msgctx.Context{ChannelID: channel, Role: msgctx.RoleOther, Content: "hello"}

	quiet.Quiet(channel, 60*time.Second)
	assert.Equal(t, responder.ReasonChannelQuiet, p.Decide(c).Reason)

	owner := c
	owner.IsOwner = true
	assert.Equal(t, responder.ReasonDefault, p.Decide(owner).Reason, "owner is never silenced")

	quiet.Unquiet(channel)
	assert.Equal(t, responder.ReasonDefault, p.Decide(c).Reason)

	quiet.Quiet(channel, 60*time.Second)
	now = now.Add(61 * time.Second)
	assert.False(t, quiet.IsQuiet(channel), "entries expire lazily")
	assert.Equal(t, responder.ReasonDefault, p.Decide(c).Reason)

	counts := p.Counts()
	assert.Equal(t, int64(1), counts[responder.ReasonChannelQuiet])
	assert.Equal(t, int64(3), counts[responder.ReasonDefault])
}
