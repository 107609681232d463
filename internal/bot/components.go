package bot

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/ai/client"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/moderation"
	"github.com/robalyx/isero/internal/msgctx"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/internal/profanity"
	"github.com/robalyx/isero/internal/responder"
	"github.com/robalyx/isero/internal/setup/config"
	"github.com/robalyx/isero/internal/storage"
	"github.com/robalyx/isero/internal/ticket"
	"github.com/robalyx/isero/pkg/utils"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// maintenanceInterval is how often expired throttle and call-limit entries are dropped.
const maintenanceInterval = time.Minute

// Assistant is the language model adapter together with its accounting.
type Assistant interface {
	client.Chatter
	Usage() client.Usage
}

// Components is the set of message subscribers and the stores they own.
type Components struct {
	Resolver   *msgctx.Resolver
	Registry   *event.Registry
	Guard      *moderation.Guard
	Scores     *moderation.Store
	Quiet      *responder.QuietTable
	Limiter    *responder.CallLimiter
	Replier    *responder.Replier
	Tickets    *ticket.Controller
	AutoSubmit *ticket.AutoSubmitter
	Profiles   *storage.Store
	Assistant  Assistant

	logger *zap.Logger
	wg     conc.WaitGroup
}

// NewComponents wires the moderation, responder and ticket subscribers.
// profiles and assistant may be nil.
func NewComponents(
	settings *config.Settings, matcher *profanity.Matcher, p platform.Platform,
	profiles *storage.Store, assistant Assistant, now utils.Clock, logger *zap.Logger,
) (*Components, error) {
	if now == nil {
		now = time.Now
	}

	prefixes := append(append([]string{}, settings.Wake.PrefixesHU...), settings.Wake.PrefixesEN...)
	wake, err := responder.NewWakeMatcher(settings.Wake.Core, prefixes, settings.Wake.MaxPrefixTokens)
	if err != nil {
		return nil, err
	}

	var chat client.Chatter = disabledAssistant{}
	var ticketChat client.Chatter
	if assistant != nil {
		chat = assistant
		if e, ok := assistant.(interface{ Enabled() bool }); !ok || e.Enabled() {
			ticketChat = assistant
		}
	}

	var (
		prefs   responder.Preferences
		signals responder.Signals
		briefs  ticket.BriefRecorder
	)
	if profiles != nil {
		prefs, signals, briefs = profiles, profiles, profiles
	}

	c := &Components{
		Profiles:  profiles,
		Assistant: assistant,
		logger:    logger,
	}

	// Moderation
	c.Scores = moderation.NewStore(settings.Profanity.EchoTTL, now)
	c.Guard = moderation.NewGuard(matcher, c.Scores, p, moderation.GuardConfig{
		FreeWordsPerMsg: settings.Profanity.FreeWordsPerMsg,
		Policy: moderation.Policy{
			Lvl1Threshold: settings.Profanity.Lvl1Threshold,
			Lvl2Threshold: settings.Profanity.Lvl2Threshold,
			Lvl3Threshold: settings.Profanity.Lvl3Threshold,
			TimeoutLvl2:   settings.Profanity.TimeoutLvl2,
			TimeoutLvl3:   settings.Profanity.TimeoutLvl3,
		},
		UseWebhookMimic: settings.Profanity.UseWebhookMimic,
		StaffFreeSpeech: settings.Profanity.StaffFreeSpeech,
		ExemptUserIDs:   settings.Profanity.ExemptUserIDs,
		EarlyUserIDs:    settings.Profanity.EarlyUserIDs,
		MuteRoleID:      settings.Roles.MuteRoleID,
		MaxTimeout:      settings.PlatformMaxTimeout,
	}, logger)

	// Tickets
	ticketStore := ticket.NewStore(settings.Tickets.Cooldown, now)
	c.Tickets = ticket.NewController(ticketStore, p, ticketChat, briefs, ticket.Config{
		HubChannelID:   settings.Channels.TicketHub,
		NSFWRoleID:     settings.Roles.NSFWRoleID,
		OwnerID:        settings.Roles.OwnerID,
		PingOwnerOnNew: settings.Tickets.PingOwnerOnNew,
		SLADays:        settings.Tickets.SLADays,
		BriefMaxChars:  settings.Tickets.BriefMaxChars,
		BriefMaxImages: settings.Tickets.BriefMaxImages,
		PrechatTurns:   settings.Tickets.PrechatTurns,
		MaxMsgChars:    settings.Agent.MaxMsgChars,
		IdleAfter:      settings.Tickets.IdleAfter,
	}, logger)
	c.AutoSubmit = ticket.NewAutoSubmitter(p, ticket.AutoSubmitConfig{
		Enabled:         settings.Tickets.AutoSubmitFirstMsg,
		NotifyChannelID: settings.Tickets.NotifyChannelID,
		MinChars:        settings.Tickets.MinChars,
	}, logger)
	c.Tickets.OnClose(c.AutoSubmit.Forget)

	// Responder
	c.Quiet = responder.NewQuietTable(now)
	c.Limiter = responder.NewCallLimiter(settings.Agent.MaxCallsPerUserHour, settings.Agent.Debounce, now)
	c.Replier = responder.NewReplier(
		responder.NewPolicy(c.Quiet, settings.Channels.NSFWCategory),
		wake, c.Limiter, chat, p, prefs, signals, ticketStore,
		responder.ReplierConfig{
			AllowedChannels:    settings.Agent.AllowedChannels,
			BotCommandsChannel: settings.Channels.BotCommands,
			TicketHubChannel:   settings.Channels.TicketHub,
		}, logger)

	staffRoles := make(map[snowflake.ID]struct{}, len(settings.Roles.StaffRoleIDs))
	for _, id := range settings.Roles.StaffRoleIDs {
		staffRoles[id] = struct{}{}
	}

	c.Resolver = msgctx.NewResolver(
		channelsOf(settings.Channels),
		msgctx.Members{OwnerID: settings.Roles.OwnerID, StaffRoleIDs: staffRoles},
		settings.Agent.MaxMsgChars, wake, ticketStore)

	// The guard runs first so every later subscriber sees the moderated flag.
	c.Registry = event.NewRegistry(logger, c.Guard, c.AutoSubmit, c.Tickets, c.Replier)

	return c, nil
}

// disabledAssistant refuses every request when no language model is configured.
type disabledAssistant struct{}

func (disabledAssistant) Chat(context.Context, client.Request) (client.Response, error) {
	return client.Response{}, client.ErrDisabled
}

func channelsOf(ch config.Channels) msgctx.Channels {
	return msgctx.Channels{
		TicketHub:       ch.TicketHub,
		GeneralChat:     ch.GeneralChat,
		BotCommands:     ch.BotCommands,
		Suggestions:     ch.Suggestions,
		Announcements:   ch.Announcements,
		Rules:           ch.Rules,
		ServerGuide:     ch.ServerGuide,
		ModLogs:         ch.ModLogs,
		ModQueue:        ch.ModQueue,
		TicketsCategory: ch.TicketsCategory,
		NSFWCategory:    ch.NSFWCategory,
		SocialCategory:  ch.SocialCategory,
		NSFWChannels:    ch.NSFWChannels,
	}
}

// Start launches the idle ticket sweeper and the throttle maintenance loop.
func (c *Components) Start(ctx context.Context) {
	c.wg.Go(func() {
		c.Tickets.Run(ctx)
	})
	c.wg.Go(func() {
		c.maintain(ctx)
	})
}

func (c *Components) maintain(ctx context.Context) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Scores.Sweep(); n > 0 {
				c.logger.Debug("Dropped expired echo throttles", zap.Int("count", n))
			}
			if n := c.Limiter.Sweep(); n > 0 {
				c.logger.Debug("Dropped idle assistant call histories", zap.Int("count", n))
			}
		}
	}
}

// Wait blocks until the background loops stopped, then cancels pending releases.
func (c *Components) Wait() {
	c.wg.Wait()
	c.Scores.Close()
}
