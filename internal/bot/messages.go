package bot

import (
	"context"

	"github.com/disgoorg/disgo/events"
	discordAdapter "github.com/robalyx/isero/internal/discord"
	"github.com/robalyx/isero/internal/event"
	"go.uber.org/zap"
)

// handleGuildMessage resolves the message context and queues the envelope on its channel lane.
func (b *Bot) handleGuildMessage(e *events.GuildMessageCreate) {
	if e.Message.Author.ID == b.client.ID() {
		return
	}

	info := discordAdapter.ResolveChannel(b.lookup, e.ChannelID)
	in := discordAdapter.ContextInput(e.GuildID, b.client.ID(), e.Message, info)
	msg := discordAdapter.InboundMessage(e.GuildID, e.Message)

	env := event.NewEnvelope(msg, b.components.Resolver.Resolve(in))
	if !b.dispatcher.Submit(context.Background(), env) {
		b.logger.Debug("Dropped message during shutdown",
			zap.String("event_id", env.ID.String()),
			zap.Uint64("channel_id", uint64(e.ChannelID)))
	}
}
