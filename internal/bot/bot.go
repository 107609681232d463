// Package bot connects the moderation, responder and ticket components to the
// Discord gateway and exposes the slash command surface.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	discordAdapter "github.com/robalyx/isero/internal/discord"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/internal/setup"
	"github.com/robalyx/isero/internal/setup/config"
	"go.uber.org/zap"
)

// shutdownTimeout bounds the gateway close.
const shutdownTimeout = 10 * time.Second

// Bot handles the gateway connection and routes its events to the components.
type Bot struct {
	client     bot.Client
	settings   *config.Settings
	logger     *zap.Logger
	audit      *zap.Logger
	platform   platform.Platform
	lookup     discordAdapter.ChannelLookup
	components *Components
	dispatcher *event.Dispatcher
	cancel     context.CancelFunc

	hubMu        sync.Mutex
	hubMessageID snowflake.ID
}

// New creates the Discord client and wires every component.
func New(app *setup.App) (*Bot, error) {
	b := &Bot{
		settings: app.Settings,
		logger:   app.Logger.Named("bot"),
		audit:    app.AuditLogger,
	}

	client, err := disgo.New(app.Settings.Discord.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnGuildMessageCreate:            b.handleGuildMessage,
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
			OnComponentInteraction:          b.handleComponentInteraction,
			OnModalSubmit:                   b.handleModalSubmit,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}
	b.client = client

	b.platform = discordAdapter.NewAdapter(client.Rest(), b.guildOf, app.Logger)
	b.lookup = client.Caches().Channel

	components, err := NewComponents(app.Settings, app.Matcher, b.platform, app.Store, app.AIClient, time.Now, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create components: %w", err)
	}
	b.components = components
	b.dispatcher = event.NewDispatcher(components.Registry, app.Logger)

	return b, nil
}

// Start registers the slash commands, starts the background loops and opens the gateway.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Registering commands")
	if err := b.registerCommands(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	b.components.Start(runCtx)

	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close stops accepting events, drains the per-channel queues and closes the gateway.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	b.client.Close(ctx)

	b.dispatcher.Close()
	if b.cancel != nil {
		b.cancel()
	}
	b.components.Wait()
}

func (b *Bot) registerCommands() error {
	var err error
	if guildID := b.settings.Discord.GuildID; guildID != 0 {
		_, err = b.client.Rest().SetGuildCommands(b.client.ApplicationID(), guildID, commandDefinitions())
	} else {
		_, err = b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), commandDefinitions())
	}
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}

// guildOf resolves a channel's guild from the cache.
func (b *Bot) guildOf(channelID snowflake.ID) snowflake.ID {
	if ch, ok := b.client.Caches().Channel(channelID); ok {
		return ch.GuildID()
	}
	return b.settings.Discord.GuildID
}
