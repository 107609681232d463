// Package discord implements platform.Platform on top of the disgo REST client.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/pkg/utils"
	"go.uber.org/zap"
)

// threadArchiveMinutes is how long an idle ticket thread stays visible.
const threadArchiveMinutes = discord.AutoArchiveDuration1w

// GuildResolver returns the guild a channel belongs to, or zero when unknown.
type GuildResolver func(channelID snowflake.ID) snowflake.ID

type webhookKey struct {
	channelID snowflake.ID
	name      string
}

type webhookHandle struct {
	id    snowflake.ID
	token string
}

type permissionKey struct {
	guildID snowflake.ID
	op      string
}

// Adapter is the disgo implementation of platform.Platform.
// Transient errors are retried once; permission errors are logged once per guild and operation.
type Adapter struct {
	rest    rest.Rest
	guildOf GuildResolver
	retry   utils.RetryOptions
	logger  *zap.Logger

	mu       sync.Mutex
	webhooks map[webhookKey]webhookHandle
	denied   map[permissionKey]struct{}
}

// NewAdapter creates an adapter over a disgo REST client. guildOf may be nil.
func NewAdapter(client rest.Rest, guildOf GuildResolver, logger *zap.Logger) *Adapter {
	if guildOf == nil {
		guildOf = func(snowflake.ID) snowflake.ID { return 0 }
	}

	return &Adapter{
		rest:     client,
		guildOf:  guildOf,
		retry:    utils.GetPlatformRetryOptions(),
		logger:   logger.Named("discord_adapter"),
		webhooks: make(map[webhookKey]webhookHandle),
		denied:   make(map[permissionKey]struct{}),
	}
}

// do runs a REST call, retrying once on transient errors.
func do[T any](ctx context.Context, a *Adapter, guildID snowflake.ID, op string, call func(opts ...rest.RequestOpt) (T, error)) (T, error) {
	result, err := utils.WithRetry(ctx, func() (T, error) {
		v, err := call(rest.WithCtx(ctx))
		if err == nil {
			return v, nil
		}

		err = classify(err)
		if !errors.Is(err, platform.ErrTransient) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, a.retry)
	if err != nil {
		a.observe(guildID, op, err)
		return result, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// exec is do for calls without a result.
func exec(ctx context.Context, a *Adapter, guildID snowflake.ID, op string, call func(opts ...rest.RequestOpt) error) error {
	_, err := do(ctx, a, guildID, op, func(opts ...rest.RequestOpt) (struct{}, error) {
		return struct{}{}, call(opts...)
	})
	return err
}

// observe logs permission errors once per guild and operation.
func (a *Adapter) observe(guildID snowflake.ID, op string, err error) {
	if !errors.Is(err, platform.ErrPermission) {
		return
	}

	key := permissionKey{guildID: guildID, op: op}

	a.mu.Lock()
	_, seen := a.denied[key]
	a.denied[key] = struct{}{}
	a.mu.Unlock()

	if !seen {
		a.logger.Warn("Missing permission",
			zap.Uint64("guild_id", uint64(guildID)),
			zap.String("op", op),
			zap.Error(err))
	}
}

// Send implements platform.Platform.
func (a *Adapter) Send(ctx context.Context, channelID snowflake.ID, msg platform.Message) (snowflake.ID, error) {
	create := messageCreate(msg)
	m, err := do(ctx, a, a.guildOf(channelID), "send_messages", func(opts ...rest.RequestOpt) (*discord.Message, error) {
		return a.rest.CreateMessage(channelID, create, opts...)
	})
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

// Edit implements platform.Platform.
func (a *Adapter) Edit(ctx context.Context, channelID, messageID snowflake.ID, content string) error {
	update := discord.NewMessageUpdateBuilder().SetContent(content).Build()
	_, err := do(ctx, a, a.guildOf(channelID), "edit_message", func(opts ...rest.RequestOpt) (*discord.Message, error) {
		return a.rest.UpdateMessage(channelID, messageID, update, opts...)
	})
	return err
}

// Delete implements platform.Platform.
func (a *Adapter) Delete(ctx context.Context, channelID, messageID snowflake.ID) error {
	return exec(ctx, a, a.guildOf(channelID), "manage_messages", func(opts ...rest.RequestOpt) error {
		return a.rest.DeleteMessage(channelID, messageID, opts...)
	})
}

// SendAs implements platform.Platform. The webhook is looked up or created once per
// channel and recreated when a send reports it gone.
func (a *Adapter) SendAs(
	ctx context.Context, channelID snowflake.ID, webhookName string, as platform.Impersonation, content string,
) error {
	create := discord.WebhookMessageCreate{
		Content:         content,
		Username:        as.Username,
		AvatarURL:       as.AvatarURL,
		AllowedMentions: allowedMentions(false),
	}

	for attempt := 0; attempt < 2; attempt++ {
		hook, err := a.ensureWebhook(ctx, channelID, webhookName)
		if err != nil {
			return err
		}

		_, err = do(ctx, a, a.guildOf(channelID), "webhook_send", func(opts ...rest.RequestOpt) (*discord.Message, error) {
			return a.rest.CreateWebhookMessage(hook.id, hook.token, create, false, 0, opts...)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, platform.ErrNotFound) {
			return err
		}

		a.forgetWebhook(channelID, webhookName)
	}

	return fmt.Errorf("webhook %q in channel %d keeps disappearing: %w", webhookName, channelID, platform.ErrNotFound)
}

func (a *Adapter) ensureWebhook(ctx context.Context, channelID snowflake.ID, name string) (webhookHandle, error) {
	key := webhookKey{channelID: channelID, name: name}

	a.mu.Lock()
	hook, ok := a.webhooks[key]
	a.mu.Unlock()
	if ok {
		return hook, nil
	}

	guildID := a.guildOf(channelID)
	existing, err := do(ctx, a, guildID, "manage_webhooks", func(opts ...rest.RequestOpt) ([]discord.Webhook, error) {
		return a.rest.GetWebhooks(channelID, opts...)
	})
	if err != nil {
		return webhookHandle{}, err
	}

	for _, w := range existing {
		if incoming, ok := w.(discord.IncomingWebhook); ok && incoming.Name() == name && incoming.Token != "" {
			hook = webhookHandle{id: incoming.ID(), token: incoming.Token}
			break
		}
	}

	if hook.id == 0 {
		created, err := do(ctx, a, guildID, "manage_webhooks", func(opts ...rest.RequestOpt) (*discord.IncomingWebhook, error) {
			return a.rest.CreateWebhook(channelID, discord.WebhookCreate{Name: name}, opts...)
		})
		if err != nil {
			return webhookHandle{}, err
		}
		hook = webhookHandle{id: created.ID(), token: created.Token}
		a.logger.Debug("Created webhook", zap.Uint64("channel_id", uint64(channelID)), zap.String("name", name))
	}

	a.mu.Lock()
	a.webhooks[key] = hook
	a.mu.Unlock()

	return hook, nil
}

func (a *Adapter) forgetWebhook(channelID snowflake.ID, name string) {
	a.mu.Lock()
	delete(a.webhooks, webhookKey{channelID: channelID, name: name})
	a.mu.Unlock()
}

// CreatePrivateThread implements platform.Platform.
func (a *Adapter) CreatePrivateThread(ctx context.Context, parentID snowflake.ID, name string) (snowflake.ID, error) {
	create := discord.GuildPrivateThreadCreate{
		Name:                threadName(name),
		AutoArchiveDuration: threadArchiveMinutes,
		Invitable:           json.Ptr(false),
	}

	thread, err := do(ctx, a, a.guildOf(parentID), "create_private_threads", func(opts ...rest.RequestOpt) (*discord.GuildThread, error) {
		return a.rest.CreateThread(parentID, create, opts...)
	})
	if err != nil {
		return 0, err
	}
	return thread.ID(), nil
}

// AddThreadMember implements platform.Platform.
func (a *Adapter) AddThreadMember(ctx context.Context, threadID, userID snowflake.ID) error {
	return exec(ctx, a, a.guildOf(threadID), "add_thread_member", func(opts ...rest.RequestOpt) error {
		return a.rest.AddThreadMember(threadID, userID, opts...)
	})
}

// ArchiveThread implements platform.Platform.
func (a *Adapter) ArchiveThread(ctx context.Context, threadID snowflake.ID) error {
	update := discord.GuildThreadUpdate{
		Archived: json.Ptr(true),
		Locked:   json.Ptr(true),
	}

	_, err := do(ctx, a, a.guildOf(threadID), "manage_threads", func(opts ...rest.RequestOpt) (discord.Channel, error) {
		return a.rest.UpdateChannel(threadID, update, opts...)
	})
	return err
}

// AddRole implements platform.Platform.
func (a *Adapter) AddRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	return exec(ctx, a, guildID, "manage_roles", func(opts ...rest.RequestOpt) error {
		return a.rest.AddMemberRole(guildID, userID, roleID, append(opts, rest.WithReason(reason))...)
	})
}

// RemoveRole implements platform.Platform.
func (a *Adapter) RemoveRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	return exec(ctx, a, guildID, "manage_roles", func(opts ...rest.RequestOpt) error {
		return a.rest.RemoveMemberRole(guildID, userID, roleID, append(opts, rest.WithReason(reason))...)
	})
}

// CreateRole implements platform.Platform.
func (a *Adapter) CreateRole(ctx context.Context, guildID snowflake.ID, name string) (snowflake.ID, error) {
	role, err := do(ctx, a, guildID, "manage_roles", func(opts ...rest.RequestOpt) (*discord.Role, error) {
		return a.rest.CreateRole(guildID, discord.RoleCreate{Name: name}, opts...)
	})
	if err != nil {
		return 0, err
	}
	return role.ID, nil
}

// Timeout implements platform.Platform.
func (a *Adapter) Timeout(ctx context.Context, guildID, userID snowflake.ID, until *time.Time, reason string) error {
	update := discord.MemberUpdate{CommunicationDisabledUntil: json.NullPtr[time.Time]()}
	if until != nil {
		update.CommunicationDisabledUntil = json.NewNullablePtr(*until)
	}

	_, err := do(ctx, a, guildID, "moderate_members", func(opts ...rest.RequestOpt) (*discord.Member, error) {
		return a.rest.UpdateMember(guildID, userID, update, append(opts, rest.WithReason(reason))...)
	})
	return err
}

var _ platform.Platform = (*Adapter)(nil)
