package responder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/ai/client"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/msgctx"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/pkg/utils"
	"go.uber.org/zap"
)

// Preferences provides a member's stored locale and reply style.
type Preferences interface {
	Preferences(ctx context.Context, userID snowflake.ID) (locale, style string, ok bool)
}

// Signals records what the assistant did for a member.
type Signals interface {
	RecordSignal(ctx context.Context, userID snowflake.ID, intent string, score float64, sentiment string) error
}

// SessionLookup reports channels whose conversation is owned by the ticket flow.
type SessionLookup interface {
	HasSession(channelID snowflake.ID) bool
}

// ReplierConfig tunes the assistant replier.
type ReplierConfig struct {
	// AllowedChannels restricts assistant replies when non-empty.
	AllowedChannels map[snowflake.ID]struct{}
	// BotCommandsChannel and TicketHubChannel are redirect targets.
	BotCommandsChannel snowflake.ID
	TicketHubChannel   snowflake.ID
}

// Diagnosis is the last decision taken in a channel.
type Diagnosis struct {
	Decision  Decision
	Context   msgctx.Context
	Moderated bool
	At        time.Time
}

// Replier answers messages according to the policy.
type Replier struct {
	policy   *Policy
	wake     *WakeMatcher
	limiter  *CallLimiter
	chat     client.Chatter
	platform platform.Platform
	prefs    Preferences
	signals  Signals
	sessions SessionLookup
	cfg      ReplierConfig
	logger   *zap.Logger

	mu   sync.Mutex
	last map[snowflake.ID]Diagnosis
}

// NewReplier creates a replier. prefs, signals and sessions may be nil.
func NewReplier(
	policy *Policy, wake *WakeMatcher, limiter *CallLimiter, chat client.Chatter, p platform.Platform,
	prefs Preferences, signals Signals, sessions SessionLookup, cfg ReplierConfig, logger *zap.Logger,
) *Replier {
	return &Replier{
		policy:   policy,
		wake:     wake,
		limiter:  limiter,
		chat:     chat,
		platform: p,
		prefs:    prefs,
		signals:  signals,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.Named("responder"),
		last:     make(map[snowflake.ID]Diagnosis),
	}
}

// Name implements event.Subscriber.
func (r *Replier) Name() string {
	return "responder"
}

// MarksModerated implements event.Subscriber.
func (r *Replier) MarksModerated() bool {
	return false
}

// Handle implements event.Subscriber.
func (r *Replier) Handle(ctx context.Context, env event.Envelope) event.Outcome {
	msg := env.Message
	if msg.IsBot || msg.IsWebhook {
		return event.Outcome{}
	}

	if env.Moderated {
		r.remember(env, Decision{Mode: ModeSilent, Reason: "moderated"})
		return event.Outcome{}
	}

	decision := r.policy.Decide(env.Context)
	r.remember(env, decision)

	if !decision.ShouldReply {
		return event.Outcome{}
	}

	logger := r.logger.With(
		zap.String("event_id", env.ID.String()),
		zap.Uint64("channel_id", uint64(msg.ChannelID)),
		zap.String("reason", string(decision.Reason)))

	// Threads with a live intake session belong to the ticket flow, including
	// NSFW tickets whose thread sits outside the NSFW category.
	if env.Context.IsTicket && r.sessions != nil && r.sessions.HasSession(msg.ChannelID) &&
		(decision.Mode == ModeGuided || decision.Reason == ReasonNSFWRedirect) {
		logger.Debug("Ticket flow owns this conversation")
		return event.Outcome{}
	}

	if decision.Mode == ModeRedirect {
		if decision.Reason == ReasonNoiseChannel && env.Context.Trigger == msgctx.TriggerFreeText {
			logger.Debug("Noise channel message did not address the bot")
			return event.Outcome{}
		}
		r.redirect(ctx, env, decision, logger)
		return event.Outcome{}
	}

	if !r.channelAllowed(env.Context) {
		logger.Debug("Assistant not allowed in channel")
		return event.Outcome{}
	}

	if err := r.limiter.Allow(msg.AuthorID); err != nil {
		logger.Debug("Assistant call refused", zap.Error(err))
		return event.Outcome{}
	}

	r.answer(ctx, env, decision, logger)
	return event.Outcome{}
}

// answer asks the assistant and posts the trimmed reply.
func (r *Replier) answer(ctx context.Context, env event.Envelope, decision Decision, logger *zap.Logger) {
	msg := env.Message
	locale := env.Context.Locale
	style := ""
	if r.prefs != nil {
		if l, s, ok := r.prefs.Preferences(ctx, msg.AuthorID); ok {
			if l != "" {
				locale = l
			}
			style = s
		}
	}

	content := msg.Content
	if r.wake != nil {
		content = r.wake.Strip(content)
	}
	if content == "" {
		content = msg.Content
	}

	resp, err := r.chat.Chat(ctx, client.Request{
		System: systemPrompt(decision.Mode, locale, style, env.Context.TicketType, decision.CharLimit),
		User:   content,
	})
	if err != nil {
		level := logger.Warn
		if errors.Is(err, client.ErrBudgetExceeded) || errors.Is(err, client.ErrDisabled) {
			level = logger.Debug
		}
		level("Assistant reply skipped", zap.Error(err))
		return
	}

	reply := utils.Truncate(resp.Text, decision.CharLimit)
	if _, err := r.platform.Send(ctx, msg.ChannelID, platform.Message{Content: reply, ReplyTo: msg.ID}); err != nil {
		logger.Warn("Failed to send assistant reply", zap.Error(err))
		return
	}

	if r.signals != nil {
		if err := r.signals.RecordSignal(ctx, msg.AuthorID, string(decision.Reason), 1, string(decision.Mode)); err != nil {
			logger.Debug("Failed to record signal", zap.Error(err))
		}
	}
}

// redirect posts the fixed pointer to the right channel.
func (r *Replier) redirect(ctx context.Context, env event.Envelope, decision Decision, logger *zap.Logger) {
	target := r.cfg.BotCommandsChannel
	if decision.Reason == ReasonNSFWRedirect {
		target = r.cfg.TicketHubChannel
	}

	mention := ""
	if target != 0 {
		mention = "<#" + target.String() + ">"
	}

	text := utils.Truncate(redirectText(decision.Reason, mention), decision.CharLimit)
	if _, err := r.platform.Send(ctx, env.Message.ChannelID, platform.Message{
		Content: text,
		ReplyTo: env.Message.ID,
	}); err != nil {
		logger.Warn("Failed to send redirect", zap.Error(err))
	}
}

func (r *Replier) channelAllowed(c msgctx.Context) bool {
	if len(r.cfg.AllowedChannels) == 0 {
		return true
	}
	if _, ok := r.cfg.AllowedChannels[c.ChannelID]; ok {
		return true
	}
	_, ok := r.cfg.AllowedChannels[c.ParentID]
	return ok && c.ParentID != 0
}

func (r *Replier) remember(env event.Envelope, d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last[env.Message.ChannelID] = Diagnosis{
		Decision:  d,
		Context:   env.Context,
		Moderated: env.Moderated,
		At:        env.ReceivedAt,
	}
}

// LastDiagnosis returns the last decision taken in a channel.
func (r *Replier) LastDiagnosis(channelID snowflake.ID) (Diagnosis, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.last[channelID]
	return d, ok
}

// Policy returns the underlying policy.
func (r *Replier) Policy() *Policy {
	return r.policy
}
