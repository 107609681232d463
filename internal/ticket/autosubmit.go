package ticket

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/pkg/utils"
	"go.uber.org/zap"
)

// DefaultMinChars is the shortest first message that is logged without attachments.
const DefaultMinChars = 10

// AutoSubmitConfig tunes first-message logging.
type AutoSubmitConfig struct {
	Enabled         bool
	NotifyChannelID snowflake.ID
	MinChars        int
}

// AutoSubmitter logs the first qualifying message of every ticket channel to staff.
type AutoSubmitter struct {
	platform platform.Platform
	cfg      AutoSubmitConfig
	logger   *zap.Logger

	mu        sync.Mutex
	submitted map[snowflake.ID]struct{}
}

// NewAutoSubmitter creates a new first-message logger.
func NewAutoSubmitter(p platform.Platform, cfg AutoSubmitConfig, logger *zap.Logger) *AutoSubmitter {
	if cfg.MinChars <= 0 {
		cfg.MinChars = DefaultMinChars
	}

	return &AutoSubmitter{
		platform:  p,
		cfg:       cfg,
		logger:    logger.Named("ticket_autosubmit"),
		submitted: make(map[snowflake.ID]struct{}),
	}
}

// Name implements event.Subscriber.
func (a *AutoSubmitter) Name() string {
	return "ticket_autosubmit"
}

// MarksModerated implements event.Subscriber.
func (a *AutoSubmitter) MarksModerated() bool {
	return false
}

// Handle implements event.Subscriber.
func (a *AutoSubmitter) Handle(ctx context.Context, env event.Envelope) event.Outcome {
	if !a.cfg.Enabled || a.cfg.NotifyChannelID == 0 {
		return event.Outcome{}
	}

	msg := env.Message
	if env.Moderated || msg.IsBot || msg.IsWebhook || env.Context.TicketType == "" {
		return event.Outcome{}
	}

	content := strings.TrimSpace(msg.Content)
	if utils.RuneLen(content) < a.cfg.MinChars && len(msg.Attachments) == 0 {
		return event.Outcome{}
	}

	if !a.claim(msg.ChannelID) {
		return event.Outcome{}
	}

	if _, err := a.platform.Send(ctx, a.cfg.NotifyChannelID, notifyMessage(env)); err != nil {
		a.release(msg.ChannelID)
		a.logger.Warn("Failed to log first ticket message",
			zap.String("event_id", env.ID.String()),
			zap.Uint64("channel_id", uint64(msg.ChannelID)),
			zap.Error(err))
	}

	return event.Outcome{}
}

// Submitted reports whether the channel's first message was logged.
func (a *AutoSubmitter) Submitted(channelID snowflake.ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.submitted[channelID]
	return ok
}

// Forget drops the mark of a closed ticket channel.
func (a *AutoSubmitter) Forget(channelID snowflake.ID) {
	a.release(channelID)
}

func (a *AutoSubmitter) claim(channelID snowflake.ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.submitted[channelID]; ok {
		return false
	}
	a.submitted[channelID] = struct{}{}
	return true
}

func (a *AutoSubmitter) release(channelID snowflake.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.submitted, channelID)
}

func notifyMessage(env event.Envelope) platform.Message {
	msg := env.Message

	label := env.Context.TicketType
	if kind, ok := ParseKind(label); ok {
		label = kind.Label()
	}

	fields := []platform.EmbedField{
		{Name: "Típus", Value: label, Inline: true},
		{Name: "Csatorna", Value: fmt.Sprintf("<#%d>", msg.ChannelID), Inline: true},
		{Name: "Szerző", Value: fmt.Sprintf("<@%d>", msg.AuthorID), Inline: true},
	}
	if excerpt := utils.Truncate(utils.CompressAllWhitespace(msg.Content), 300); excerpt != "" {
		fields = append(fields, platform.EmbedField{Name: "Kivonat", Value: excerpt})
	}
	if len(msg.Attachments) > 0 {
		urls := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			urls = append(urls, att.URL)
		}
		fields = append(fields, platform.EmbedField{
			Name:  "Csatolmányok",
			Value: utils.Truncate(strings.Join(urls, "\n"), 1024),
		})
	}

	at := msg.CreatedAt
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:     "Új ticket: " + label,
			Color:     colorNotify,
			Fields:    fields,
			Timestamp: &at,
		}},
	}
}
