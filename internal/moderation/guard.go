package moderation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/internal/profanity"
	"github.com/robalyx/isero/pkg/utils"
	"go.uber.org/zap"
)

// DefaultFreeWordsPerMsg is the number of hits per message that cost no points.
const DefaultFreeWordsPerMsg = 2

// earlyUserNumerator and earlyUserDenominator scale the points added for early users.
const (
	earlyUserNumerator   = 7
	earlyUserDenominator = 10
)

// GuardConfig tunes the profanity guard.
type GuardConfig struct {
	FreeWordsPerMsg int
	Policy          Policy
	UseWebhookMimic bool
	StaffFreeSpeech bool
	ExemptUserIDs   map[snowflake.ID]struct{}
	EarlyUserIDs    map[snowflake.ID]struct{}
	MuteRoleID      snowflake.ID
	// MaxTimeout caps a single platform timeout; longer sanctions use the mute role.
	MaxTimeout time.Duration
}

// Counters are the guard statistics reported by diagnostics.
type Counters struct {
	Scanned   int64
	Moderated int64
	Echoes    int64
	Throttled int64
	Warnings  int64
	Timeouts  int64
	Mutes     int64
	Failures  int64
}

type counters struct {
	scanned   atomic.Int64
	moderated atomic.Int64
	echoes    atomic.Int64
	throttled atomic.Int64
	warnings  atomic.Int64
	timeouts  atomic.Int64
	mutes     atomic.Int64
	failures  atomic.Int64
}

// Guard censors messages containing forbidden words and sanctions repeat offenders.
type Guard struct {
	matcher  *profanity.Matcher
	store    *Store
	platform platform.Platform
	cfg      GuardConfig
	logger   *zap.Logger
	now      utils.Clock
	stats    counters
}

// NewGuard creates a new profanity guard.
func NewGuard(
	matcher *profanity.Matcher, store *Store, p platform.Platform, cfg GuardConfig, logger *zap.Logger,
) *Guard {
	if cfg.FreeWordsPerMsg < 0 {
		cfg.FreeWordsPerMsg = DefaultFreeWordsPerMsg
	}
	if cfg.MaxTimeout <= 0 || cfg.MaxTimeout > platform.MaxTimeout {
		cfg.MaxTimeout = platform.MaxTimeout
	}

	return &Guard{
		matcher:  matcher,
		store:    store,
		platform: p,
		cfg:      cfg,
		logger:   logger.Named("profanity_guard"),
		now:      store.now,
	}
}

// Name implements event.Subscriber.
func (g *Guard) Name() string {
	return "profanity_guard"
}

// MarksModerated implements event.Subscriber.
func (g *Guard) MarksModerated() bool {
	return true
}

// Handle implements event.Subscriber.
func (g *Guard) Handle(ctx context.Context, env event.Envelope) event.Outcome {
	msg := env.Message
	if msg.IsBot || msg.IsWebhook || msg.Content == "" {
		return event.Outcome{}
	}

	g.stats.scanned.Add(1)

	if err := profanity.Check(msg.Content); err != nil {
		g.logger.Warn("Rejected message text",
			zap.String("event_id", env.ID.String()),
			zap.Uint64("message_id", uint64(msg.ID)),
			zap.Error(err))
		return event.Outcome{}
	}

	spans := g.matcher.Find(msg.Content)
	if len(spans) == 0 {
		return event.Outcome{}
	}

	g.stats.moderated.Add(1)
	censored := profanity.Render(msg.Content, spans)

	if err := g.platform.Delete(ctx, msg.ChannelID, msg.ID); err != nil {
		g.stats.failures.Add(1)
		g.logger.Warn("Failed to delete flagged message",
			zap.String("event_id", env.ID.String()),
			zap.Uint64("message_id", uint64(msg.ID)),
			zap.Error(err))
	}

	g.echo(ctx, env, censored)
	g.score(ctx, env, len(spans))

	return event.Outcome{Moderated: true}
}

// echo re-posts the censored text, impersonating the author when allowed.
func (g *Guard) echo(ctx context.Context, env event.Envelope, censored string) {
	msg := env.Message

	if !g.store.AllowEcho(msg.AuthorID, msg.ChannelID) {
		g.stats.throttled.Add(1)
		g.logger.Debug("Censor echo throttled",
			zap.Uint64("user_id", uint64(msg.AuthorID)),
			zap.Uint64("channel_id", uint64(msg.ChannelID)))
		return
	}

	if g.cfg.UseWebhookMimic {
		err := g.platform.SendAs(ctx, msg.ChannelID, platform.CensorWebhookName, platform.Impersonation{
			Username:  msg.AuthorName,
			AvatarURL: msg.AvatarURL,
		}, censored)
		if err == nil {
			g.stats.echoes.Add(1)
			return
		}

		g.logger.Warn("Webhook echo failed, falling back to plain message",
			zap.Uint64("channel_id", uint64(msg.ChannelID)),
			zap.Error(err))
	}

	_, err := g.platform.Send(ctx, msg.ChannelID, platform.Message{
		Content: "**" + utils.EscapeMarkdown(msg.AuthorName) + ":** " + censored,
	})
	if err != nil {
		g.stats.failures.Add(1)
		g.logger.Warn("Failed to post censored echo",
			zap.Uint64("channel_id", uint64(msg.ChannelID)),
			zap.Error(err))
		return
	}
	g.stats.echoes.Add(1)
}

// score adds the message's over-quota hits to the author and applies any sanction.
func (g *Guard) score(ctx context.Context, env event.Envelope, hits int) {
	msg := env.Message
	mctx := env.Context
	fields := []zap.Field{
		zap.String("event_id", env.ID.String()),
		zap.Uint64("user_id", uint64(msg.AuthorID)),
		zap.Int("hits", hits),
	}

	switch {
	case msg.IsBot, mctx.IsOwner, mctx.IsStaff && g.cfg.StaffFreeSpeech:
		return
	case g.isExempt(msg.AuthorID):
		return
	case mctx.IsNSFW:
		g.logger.Info("Profanity in NSFW channel, not scored", fields...)
		return
	}

	added := max(hits-g.cfg.FreeWordsPerMsg, 0)
	if _, early := g.cfg.EarlyUserIDs[msg.AuthorID]; early {
		added = added * earlyUserNumerator / earlyUserDenominator
	}
	if added == 0 {
		return
	}

	rec, decision := g.store.Score(msg.AuthorID, added, g.cfg.Policy)
	fields = append(fields, zap.Int("points", rec.Points), zap.Stringer("stage", rec.Stage))

	if !decision.Changed() {
		g.logger.Debug("Scored profanity", fields...)
		return
	}

	switch decision.Action {
	case ActionWarn:
		g.stats.warnings.Add(1)
		g.logger.Info("User warned for profanity", fields...)
	case ActionTimeout:
		g.stats.timeouts.Add(1)
		g.logger.Info("Timing out user for profanity", append(fields, zap.Duration("duration", decision.Duration))...)
		g.applyTimeout(ctx, msg.GuildID, msg.AuthorID, decision.Duration, "Profanity stage "+decision.To.String())
	case ActionMute:
		g.stats.mutes.Add(1)
		g.logger.Info("Muting user for profanity", fields...)
		g.applyMute(ctx, msg.GuildID, msg.AuthorID)
	case ActionNone:
	}
}

func (g *Guard) isExempt(userID snowflake.ID) bool {
	_, ok := g.cfg.ExemptUserIDs[userID]
	return ok
}

// applyTimeout times the user out. Durations beyond the platform cap use the mute
// role with a scheduled release, or the capped timeout without a role.
func (g *Guard) applyTimeout(ctx context.Context, guildID, userID snowflake.ID, d time.Duration, reason string) {
	if d > g.cfg.MaxTimeout && g.cfg.MuteRoleID != 0 {
		if err := g.platform.AddRole(ctx, guildID, userID, g.cfg.MuteRoleID, reason); err != nil {
			g.sanctionFailed("add_role", userID, err)
			return
		}

		g.store.ScheduleRelease(userID, d, func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := g.platform.RemoveRole(releaseCtx, guildID, userID, g.cfg.MuteRoleID, "Profanity mute expired"); err != nil {
				g.sanctionFailed("remove_role", userID, err)
			}
		})
		return
	}

	until := g.now().Add(min(d, g.cfg.MaxTimeout))
	if err := g.platform.Timeout(ctx, guildID, userID, &until, reason); err != nil {
		g.sanctionFailed("timeout", userID, err)
	}
}

// applyMute assigns the persistent mute role, falling back to the longest platform timeout.
func (g *Guard) applyMute(ctx context.Context, guildID, userID snowflake.ID) {
	const reason = "Profanity stage muted"

	if g.cfg.MuteRoleID != 0 {
		err := g.platform.AddRole(ctx, guildID, userID, g.cfg.MuteRoleID, reason)
		if err == nil {
			return
		}
		g.sanctionFailed("add_role", userID, err)
	}

	until := g.now().Add(g.cfg.MaxTimeout)
	if err := g.platform.Timeout(ctx, guildID, userID, &until, reason); err != nil {
		g.sanctionFailed("timeout", userID, err)
	}
}

func (g *Guard) sanctionFailed(op string, userID snowflake.ID, err error) {
	g.stats.failures.Add(1)
	g.logger.Warn("Sanction side effect failed",
		zap.String("op", op),
		zap.Uint64("user_id", uint64(userID)),
		zap.Error(err))
}

// Unmute resets the user's stage, removes the mute role and clears any timeout.
func (g *Guard) Unmute(ctx context.Context, guildID, userID snowflake.ID, reason string) error {
	g.store.Reset(userID)

	var errs []error
	if g.cfg.MuteRoleID != 0 {
		err := g.platform.RemoveRole(ctx, guildID, userID, g.cfg.MuteRoleID, reason)
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			errs = append(errs, err)
		}
	}

	if err := g.platform.Timeout(ctx, guildID, userID, nil, reason); err != nil {
		errs = append(errs, err)
	}

	g.logger.Info("User unmuted",
		zap.Uint64("user_id", uint64(userID)),
		zap.String("reason", reason),
		zap.Int("failures", len(errs)))

	return errors.Join(errs...)
}

// Record returns the user's current violation record.
func (g *Guard) Record(userID snowflake.ID) (Record, bool) {
	return g.store.Get(userID)
}

// Counters returns a snapshot of the guard statistics.
func (g *Guard) Counters() Counters {
	return Counters{
		Scanned:   g.stats.scanned.Load(),
		Moderated: g.stats.moderated.Load(),
		Echoes:    g.stats.echoes.Load(),
		Throttled: g.stats.throttled.Load(),
		Warnings:  g.stats.warnings.Load(),
		Timeouts:  g.stats.timeouts.Load(),
		Mutes:     g.stats.mutes.Load(),
		Failures:  g.stats.failures.Load(),
	}
}
