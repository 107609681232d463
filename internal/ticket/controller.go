package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/ai/client"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/pkg/utils"
	"go.uber.org/zap"
)

const (
	DefaultSLADays        = 3
	DefaultBriefMaxChars  = 800
	DefaultBriefMaxImages = 4
	DefaultPrechatTurns   = 10
	DefaultMaxMsgChars    = 300
	DefaultIdleAfter      = 10 * time.Minute
	DefaultCooldown       = 30 * time.Second

	// SummaryMaxChars bounds the staff summary.
	SummaryMaxChars = 600
	// SweepInterval is how often idle sessions are checked.
	SweepInterval = 30 * time.Second
)

var (
	// ErrBriefTooLong is returned when a submitted brief exceeds the cap.
	ErrBriefTooLong = errors.New("brief is too long")
	// ErrNotOwner is returned when someone else drives another member's intake.
	ErrNotOwner = errors.New("only the ticket owner can do this")
	// ErrAdultConfirmationRequired is returned when an NSFW ticket is opened without the 18+ confirmation.
	ErrAdultConfirmationRequired = errors.New("nsfw tickets require an 18+ confirmation")
)

// BriefRecorder persists assembled briefs.
type BriefRecorder interface {
	RecordBrief(ctx context.Context, channelID snowflake.ID, kind, goal, deadline string, refs int, status string) error
}

// Config tunes the intake flow.
type Config struct {
	// HubChannelID is the parent channel of ticket threads.
	HubChannelID   snowflake.ID
	NSFWRoleID     snowflake.ID
	OwnerID        snowflake.ID
	PingOwnerOnNew bool
	SLADays        int
	BriefMaxChars  int
	BriefMaxImages int
	PrechatTurns   int
	MaxMsgChars    int
	IdleAfter      time.Duration
}

func (c *Config) applyDefaults() {
	if c.SLADays <= 0 {
		c.SLADays = DefaultSLADays
	}
	if c.BriefMaxChars <= 0 {
		c.BriefMaxChars = DefaultBriefMaxChars
	}
	if c.BriefMaxImages <= 0 {
		c.BriefMaxImages = DefaultBriefMaxImages
	}
	if c.PrechatTurns <= 0 {
		c.PrechatTurns = DefaultPrechatTurns
	}
	if c.MaxMsgChars <= 0 {
		c.MaxMsgChars = DefaultMaxMsgChars
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = DefaultIdleAfter
	}
}

// OpenRequest describes a hub selection.
type OpenRequest struct {
	GuildID        snowflake.ID
	UserID         snowflake.ID
	UserName       string
	Kind           Kind
	AdultConfirmed bool
}

// Controller drives ticket sessions from open to close.
type Controller struct {
	store    *Store
	platform platform.Platform
	chat     client.Chatter
	briefs   BriefRecorder
	cfg      Config
	logger   *zap.Logger
	onClose  []func(channelID snowflake.ID)

	roleMu     sync.Mutex
	nsfwRoleID snowflake.ID
}

// NewController creates a new ticket flow controller. chat and briefs may be nil.
func NewController(
	store *Store, p platform.Platform, chat client.Chatter, briefs BriefRecorder, cfg Config, logger *zap.Logger,
) *Controller {
	cfg.applyDefaults()

	return &Controller{
		store:      store,
		platform:   p,
		chat:       chat,
		briefs:     briefs,
		cfg:        cfg,
		logger:     logger.Named("ticket_flow"),
		nsfwRoleID: cfg.NSFWRoleID,
	}
}

// Store returns the session store.
func (c *Controller) Store() *Store {
	return c.store
}

// OnClose registers fn to run after a session is closed.
// Hooks must be registered before the controller handles events.
func (c *Controller) OnClose(fn func(channelID snowflake.ID)) {
	c.onClose = append(c.onClose, fn)
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Open creates the private thread and seeds its session.
func (c *Controller) Open(ctx context.Context, req OpenRequest) (Session, error) {
	if req.Kind == KindNSFW && !req.AdultConfirmed {
		return Session{}, ErrAdultConfirmationRequired
	}
	if err := c.store.TryOpen(req.UserID); err != nil {
		return Session{}, err
	}

	threadID, err := c.platform.CreatePrivateThread(ctx, c.cfg.HubChannelID, threadName(req.Kind, req.UserName))
	if err != nil {
		return Session{}, fmt.Errorf("failed to create ticket thread: %w", err)
	}

	if err := c.platform.AddThreadMember(ctx, threadID, req.UserID); err != nil {
		return Session{}, fmt.Errorf("failed to add ticket owner: %w", err)
	}

	now := c.store.Now()
	session := Session{
		ChannelID:      threadID,
		GuildID:        req.GuildID,
		OwnerID:        req.UserID,
		OwnerName:      req.UserName,
		Kind:           req.Kind,
		Stage:          StageOpened,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := c.store.Create(session); err != nil {
		return Session{}, err
	}

	mentions := fmt.Sprintf("<@%d>", req.UserID)
	if c.cfg.PingOwnerOnNew && c.cfg.OwnerID != 0 && c.cfg.OwnerID != req.UserID {
		mentions += fmt.Sprintf(" <@%d>", c.cfg.OwnerID)
	}

	sla := now.AddDate(0, 0, c.cfg.SLADays)
	if _, err := c.platform.Send(ctx, threadID, welcomeMessage(session, sla, mentions)); err != nil {
		c.logger.Warn("Failed to post ticket welcome",
			zap.Uint64("channel_id", uint64(threadID)),
			zap.Error(err))
	}

	session, err = c.store.Update(threadID, func(s *Session) error {
		s.Stage = StageAwaitingInput
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	c.logger.Info("Opened ticket",
		zap.Uint64("channel_id", uint64(threadID)),
		zap.Uint64("user_id", uint64(req.UserID)),
		zap.String("kind", string(req.Kind)))

	return session, nil
}

// ConfirmAdult grants the NSFW role and opens the NSFW ticket.
// Without a configured role one is created on first use.
func (c *Controller) ConfirmAdult(ctx context.Context, req OpenRequest) (Session, error) {
	roleID, err := c.ensureNSFWRole(ctx, req.GuildID)
	if err != nil {
		return Session{}, err
	}

	if err := c.platform.AddRole(ctx, req.GuildID, req.UserID, roleID, "18+ confirmation"); err != nil {
		return Session{}, fmt.Errorf("failed to grant nsfw role: %w", err)
	}

	req.Kind = KindNSFW
	req.AdultConfirmed = true
	return c.Open(ctx, req)
}

// NSFWRoleName is the name of the role created when NSFW_ROLE_ID is unset.
const NSFWRoleName = "NSFW 18+"

func (c *Controller) ensureNSFWRole(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	c.roleMu.Lock()
	defer c.roleMu.Unlock()

	if c.nsfwRoleID != 0 {
		return c.nsfwRoleID, nil
	}

	roleID, err := c.platform.CreateRole(ctx, guildID, NSFWRoleName)
	if err != nil {
		return 0, fmt.Errorf("failed to create nsfw role: %w", err)
	}

	c.logger.Info("Created NSFW role", zap.Uint64("role_id", uint64(roleID)))
	c.nsfwRoleID = roleID
	return roleID, nil
}

// Name implements event.Subscriber.
func (c *Controller) Name() string {
	return "ticket_flow"
}

// MarksModerated implements event.Subscriber.
func (c *Controller) MarksModerated() bool {
	return false
}

// Handle implements event.Subscriber.
func (c *Controller) Handle(ctx context.Context, env event.Envelope) event.Outcome {
	msg := env.Message
	if env.Moderated || msg.IsBot || msg.IsWebhook {
		return event.Outcome{}
	}

	session, ok := c.store.Get(msg.ChannelID)
	if !ok {
		return event.Outcome{}
	}

	if err := c.handleMessage(ctx, session, msg); err != nil && !errors.Is(err, ErrSessionClosed) {
		c.logger.Warn("Failed to handle ticket message",
			zap.String("event_id", env.ID.String()),
			zap.Uint64("channel_id", uint64(msg.ChannelID)),
			zap.Error(err))
	}

	return event.Outcome{}
}

func (c *Controller) handleMessage(ctx context.Context, session Session, msg event.Message) error {
	now := c.store.Now()

	if msg.AuthorID != session.OwnerID {
		_, err := c.store.Update(session.ChannelID, func(s *Session) error {
			s.touch(now)
			if msg.Content != "" {
				s.Transcript = append(s.Transcript, Line{Speaker: SpeakerStaff, Content: msg.Content, At: now})
			}
			return nil
		})
		return err
	}

	if utils.RuneLen(msg.Content) > c.cfg.BriefMaxChars {
		if _, err := c.store.Update(session.ChannelID, func(s *Session) error {
			s.touch(now)
			return nil
		}); err != nil {
			return err
		}

		_, err := c.platform.Send(ctx, session.ChannelID, platform.Message{
			Content: fmt.Sprintf(textTooLong, c.cfg.BriefMaxChars),
			ReplyTo: msg.ID,
		})
		return err
	}

	session, err := c.store.Update(session.ChannelID, func(s *Session) error {
		s.touch(now)
		s.addAttachments(msg.ImageURLs(), c.cfg.BriefMaxImages)
		if content := strings.TrimSpace(msg.Content); content != "" {
			s.Transcript = append(s.Transcript, Line{Speaker: SpeakerUser, Content: content, At: now})
			s.TurnCount++
		}
		return nil
	})
	if err != nil {
		return err
	}

	if utils.NewTextNormalizer().ContainsAny(msg.Content, closePhrases...) {
		if _, err := c.Summarise(ctx, session.ChannelID); err != nil {
			c.logger.Warn("Failed to summarise before close",
				zap.Uint64("channel_id", uint64(session.ChannelID)),
				zap.Error(err))
		}
		return c.Close(ctx, session.ChannelID, "close phrase")
	}

	if session.Mode == ModeGuided && session.Stage == StageAwaitingInput {
		return c.askNext(ctx, session)
	}
	return nil
}

// BeginSelf switches the session to the self-written brief. The caller opens the modal.
func (c *Controller) BeginSelf(channelID, userID snowflake.ID) error {
	_, err := c.store.Update(channelID, func(s *Session) error {
		if s.OwnerID != userID {
			return ErrNotOwner
		}
		s.Mode = ModeSelf
		s.touch(c.store.Now())
		return nil
	})
	return err
}

// SubmitBrief stores the modal brief and posts it back with the follow-up actions.
func (c *Controller) SubmitBrief(ctx context.Context, channelID, userID snowflake.ID, text string) error {
	text = strings.TrimSpace(text)
	if utils.RuneLen(text) > c.cfg.BriefMaxChars {
		return ErrBriefTooLong
	}

	session, err := c.store.Update(channelID, func(s *Session) error {
		if s.OwnerID != userID {
			return ErrNotOwner
		}
		s.Mode = ModeSelf
		s.BriefText = text
		s.Stage = StageFormSubmitted
		s.touch(c.store.Now())
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := c.platform.Send(ctx, channelID, briefMessage(session)); err != nil {
		return fmt.Errorf("failed to post brief: %w", err)
	}

	c.recordBrief(ctx, Assemble(session), string(StageFormSubmitted))
	return nil
}

// StartGuided switches the session to the assistant-led intake and asks the first question.
func (c *Controller) StartGuided(ctx context.Context, channelID, userID snowflake.ID) error {
	session, err := c.store.Update(channelID, func(s *Session) error {
		if s.OwnerID != userID {
			return ErrNotOwner
		}
		s.Mode = ModeGuided
		s.Stage = StageAwaitingInput
		s.touch(c.store.Now())
		return nil
	})
	if err != nil {
		return err
	}

	return c.askNext(ctx, session)
}

// askNext asks the next guided question or summarises once the turn cap is reached.
func (c *Controller) askNext(ctx context.Context, session Session) error {
	if session.AssistantTurns >= c.cfg.PrechatTurns || c.chat == nil {
		if _, err := c.platform.Send(ctx, session.ChannelID, platform.Message{Content: textGuidedDone}); err != nil {
			return err
		}
		_, err := c.Summarise(ctx, session.ChannelID)
		return err
	}

	user := renderLines(lastLines(session.Transcript, TranscriptWindow))
	if user == "" {
		user = "(a tag még nem írt semmit, kérdezz rá a kérésére)"
	}

	resp, err := c.chat.Chat(ctx, client.Request{
		System:    guidedSystemPrompt(session.Kind, c.cfg.MaxMsgChars),
		User:      user,
		Selection: client.SelectMini,
	})
	if err != nil {
		return fmt.Errorf("guided question failed: %w", err)
	}

	question := utils.Truncate(strings.TrimSpace(resp.Text), c.cfg.MaxMsgChars)
	if _, err := c.platform.Send(ctx, session.ChannelID, platform.Message{Content: question}); err != nil {
		return err
	}

	now := c.store.Now()
	_, err = c.store.Update(session.ChannelID, func(s *Session) error {
		s.Transcript = append(s.Transcript, Line{Speaker: SpeakerBot, Content: question, At: now})
		s.AssistantTurns++
		return nil
	})
	return err
}

// Summarise assembles the brief, requests the staff summary and posts it to the thread.
func (c *Controller) Summarise(ctx context.Context, channelID snowflake.ID) (string, error) {
	session, err := c.store.Update(channelID, func(*Session) error { return nil })
	if err != nil {
		return "", err
	}

	brief := Assemble(session)
	summary := c.requestSummary(ctx, brief)

	session, err = c.store.Update(channelID, func(s *Session) error {
		s.Stage = StageSummarised
		s.Summary = summary
		return nil
	})
	if err != nil {
		return "", err
	}

	if _, err := c.platform.Send(ctx, channelID, summaryMessage(brief, summary)); err != nil {
		return summary, fmt.Errorf("failed to post summary: %w", err)
	}

	c.recordBrief(ctx, brief, string(StageSummarised))
	return summary, nil
}

func (c *Controller) requestSummary(ctx context.Context, brief Brief) string {
	if c.chat == nil {
		return brief.fallbackSummary(SummaryMaxChars)
	}

	resp, err := c.chat.Chat(ctx, client.Request{
		System: summarySystemPrompt(SummaryMaxChars),
		User:   brief.Render(),
	})
	if err != nil {
		c.logger.Warn("Summary request failed, using excerpt",
			zap.Uint64("channel_id", uint64(brief.ChannelID)),
			zap.Error(err))
		return brief.fallbackSummary(SummaryMaxChars)
	}

	return utils.Truncate(strings.TrimSpace(resp.Text), SummaryMaxChars)
}

// Close archives and locks the thread and removes the session.
func (c *Controller) Close(ctx context.Context, channelID snowflake.ID, reason string) error {
	session, err := c.store.MarkClosed(channelID)
	if err != nil {
		return err
	}
	defer func() {
		c.store.Remove(channelID)
		for _, fn := range c.onClose {
			fn(channelID)
		}
	}()

	if _, err := c.platform.Send(ctx, channelID, platform.Message{Content: textClosing}); err != nil {
		c.logger.Debug("Failed to post closing note", zap.Error(err))
	}

	c.recordBrief(ctx, Assemble(session), string(StageClosed))

	if err := c.platform.ArchiveThread(ctx, channelID); err != nil {
		return fmt.Errorf("failed to archive ticket thread: %w", err)
	}

	c.logger.Info("Closed ticket",
		zap.Uint64("channel_id", uint64(channelID)),
		zap.String("reason", reason),
		zap.Int("turns", session.TurnCount))

	return nil
}

// Sweep reminds idle sessions once and closes those still idle after the reminder.
func (c *Controller) Sweep(ctx context.Context) (reminded, closed int) {
	now := c.store.Now()

	for _, session := range c.store.Idle(c.cfg.IdleAfter) {
		switch {
		case !session.Reminded:
			if _, err := c.platform.Send(ctx, session.ChannelID, platform.Message{
				Content:           fmt.Sprintf("<@%d> %s", session.OwnerID, textReminder),
				AllowUserMentions: true,
			}); err != nil {
				c.logger.Warn("Failed to remind idle ticket",
					zap.Uint64("channel_id", uint64(session.ChannelID)),
					zap.Error(err))
			}

			if _, err := c.store.Update(session.ChannelID, func(s *Session) error {
				s.Reminded = true
				s.RemindedAt = now
				return nil
			}); err == nil {
				reminded++
			}

		case now.Sub(session.RemindedAt) >= SweepInterval:
			if err := c.Close(ctx, session.ChannelID, "idle"); err != nil && !errors.Is(err, ErrSessionClosed) {
				c.logger.Warn("Failed to close idle ticket",
					zap.Uint64("channel_id", uint64(session.ChannelID)),
					zap.Error(err))
			}
			closed++
		}
	}

	return reminded, closed
}

// Run sweeps idle sessions every SweepInterval until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reminded, closed := c.Sweep(ctx); reminded > 0 || closed > 0 {
				c.logger.Debug("Swept idle tickets",
					zap.Int("reminded", reminded),
					zap.Int("closed", closed))
			}
		}
	}
}

func (c *Controller) recordBrief(ctx context.Context, brief Brief, status string) {
	if c.briefs == nil {
		return
	}

	err := c.briefs.RecordBrief(ctx, brief.ChannelID, string(brief.Kind),
		brief.Field("goal"), brief.Field("deadline"), len(brief.References), status)
	if err != nil {
		c.logger.Warn("Failed to record brief",
			zap.Uint64("channel_id", uint64(brief.ChannelID)),
			zap.Error(err))
	}
}

func lastLines(lines []Line, n int) []Line {
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}

func threadName(kind Kind, userName string) string {
	name := strings.ToLower(strings.Join(strings.Fields(userName), "-"))
	if name == "" {
		name = "tag"
	}
	return utils.Truncate(string(kind)+"-"+name, 100)
}
