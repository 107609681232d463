package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	discordAdapter "github.com/robalyx/isero/internal/discord"
	"github.com/robalyx/isero/internal/msgctx"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/internal/storage"
	"github.com/robalyx/isero/internal/ticket"
	"go.uber.org/zap"
)

// Slash command names.
const (
	CommandPing     = "ping"
	CommandDiag     = "diag"
	CommandWhereAmI = "whereami"
	CommandUnmute   = "unmute"
	CommandPostHub  = "posthub"
	CommandWhoAmI   = "whoami"
	CommandSetPref  = "setpref"
	CommandQuiet    = "quiet"
	CommandUnquiet  = "unquiet"
)

// defaultQuietMinutes is used when /quiet is given no duration.
const defaultQuietMinutes = 30

// commandTimeout bounds the work done for a single command.
const commandTimeout = 30 * time.Second

var errForbidden = errors.New("missing permission for command")

func commandDefinitions() []discord.ApplicationCommandCreate {
	minMinutes := 1
	maxMinutes := 24 * 60

	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{Name: CommandPing, Description: "Check that the bot is alive"},
		discord.SlashCommandCreate{Name: CommandDiag, Description: "Show responder and moderation diagnostics"},
		discord.SlashCommandCreate{Name: CommandWhereAmI, Description: "Show how the bot sees this channel"},
		discord.SlashCommandCreate{
			Name:        CommandUnmute,
			Description: "Clear a member's profanity mute and timeout",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "user", Description: "Member to unmute", Required: true},
			},
		},
		discord.SlashCommandCreate{Name: CommandPostHub, Description: "Post or refresh the ticket hub panel"},
		discord.SlashCommandCreate{Name: CommandWhoAmI, Description: "Show your stored preferences"},
		discord.SlashCommandCreate{
			Name:        CommandSetPref,
			Description: "Update your reply preferences",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "locale",
					Description: "Reply language",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "Magyar", Value: "hu"},
						{Name: "English", Value: "en"},
					},
				},
				discord.ApplicationCommandOptionString{Name: "style", Description: "Reply style, e.g. tömör, barátságos"},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandQuiet,
			Description: "Keep the bot silent in this channel",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "minutes",
					Description: "How long to stay silent",
					MinValue:    &minMinutes,
					MaxValue:    &maxMinutes,
				},
			},
		},
		discord.SlashCommandCreate{Name: CommandUnquiet, Description: "Let the bot speak in this channel again"},
	}
}

// invocation is a slash command reduced to what the handlers need.
type invocation struct {
	Name        string
	GuildID     snowflake.ID
	ChannelID   snowflake.ID
	UserID      snowflake.ID
	UserName    string
	RoleIDs     []snowflake.ID
	Permissions discord.Permissions

	TargetID snowflake.ID
	Locale   string
	Style    string
	Minutes  int
}

// handleApplicationCommandInteraction defers an ephemeral reply, runs the command and edits the reply.
func (b *Bot) handleApplicationCommandInteraction(e *events.ApplicationCommandInteractionCreate) {
	go func() {
		if err := e.DeferCreateMessage(true); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		inv := invocationOf(e)
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in application command interaction handler", zap.Any("panic", r))
				b.updateResponse(e.ApplicationID(), e.Token(), "Internal error. Please report this to an administrator.")
			}
			b.logger.Debug("Application command interaction handled",
				zap.String("command", inv.Name),
				zap.Duration("duration", time.Since(start)))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		b.updateResponse(e.ApplicationID(), e.Token(), b.runCommand(ctx, inv))
	}()
}

func invocationOf(e *events.ApplicationCommandInteractionCreate) invocation {
	data := e.SlashCommandInteractionData()
	inv := invocation{
		Name:      data.CommandName(),
		ChannelID: e.ChannelID(),
		UserID:    e.User().ID,
		UserName:  e.User().EffectiveName(),
	}

	if guildID := e.GuildID(); guildID != nil {
		inv.GuildID = *guildID
	}
	if member := e.Member(); member != nil {
		inv.RoleIDs = member.RoleIDs
		inv.Permissions = member.Permissions
	}

	if target, ok := data.OptUser("user"); ok {
		inv.TargetID = target.ID
	}
	inv.Locale, _ = data.OptString("locale")
	inv.Style, _ = data.OptString("style")
	inv.Minutes, _ = data.OptInt("minutes")

	return inv
}

func (b *Bot) updateResponse(applicationID snowflake.ID, token, content string) {
	_, err := b.client.Rest().UpdateInteractionResponse(applicationID, token,
		discord.NewMessageUpdateBuilder().SetContent(content).Build())
	if err != nil {
		b.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

// runCommand executes a command and returns the ephemeral reply.
func (b *Bot) runCommand(ctx context.Context, inv invocation) string {
	switch inv.Name {
	case CommandPing:
		return "Pong!"
	case CommandWhereAmI:
		return formatContext(b.resolveFor(inv))
	case CommandDiag:
		return b.diag(inv)
	case CommandUnmute:
		return b.unmute(ctx, inv)
	case CommandPostHub:
		return b.postHub(ctx, inv)
	case CommandWhoAmI:
		return b.whoami(ctx, inv)
	case CommandSetPref:
		return b.setPref(ctx, inv)
	case CommandQuiet:
		return b.quiet(inv)
	case CommandUnquiet:
		return b.unquiet(inv)
	default:
		return "This command is not available."
	}
}

// resolveFor resolves the context of the invoking channel as if the member had written there.
func (b *Bot) resolveFor(inv invocation) msgctx.Context {
	info := discordAdapter.ResolveChannel(b.lookup, inv.ChannelID)
	return b.components.Resolver.Resolve(msgctx.Input{
		GuildID:       inv.GuildID,
		ChannelID:     inv.ChannelID,
		ParentID:      info.ParentID,
		CategoryID:    info.CategoryID,
		IsThread:      info.IsThread,
		ChannelNSFW:   info.NSFW,
		Topic:         info.Topic,
		AuthorID:      inv.UserID,
		AuthorRoleIDs: inv.RoleIDs,
		Slash:         true,
	})
}

// isStaff reports whether the member may run staff commands.
func (b *Bot) isStaff(inv invocation) bool {
	if inv.UserID == b.settings.Roles.OwnerID && inv.UserID != 0 {
		return true
	}
	if inv.Permissions.Has(discord.PermissionManageChannels) {
		return true
	}
	return b.settings.Roles.IsStaff(inv.RoleIDs)
}

func canUnmute(perms discord.Permissions) bool {
	return perms.Has(discord.PermissionModerateMembers) || perms.Has(discord.PermissionManageChannels)
}

func (b *Bot) diag(inv invocation) string {
	c := b.components
	report := diagReport{
		Context: b.resolveFor(inv),
		Guard:   c.Guard.Counters(),
		Reasons: c.Replier.Policy().Counts(),
		Tickets: c.Tickets.Store().Len(),
	}

	if last, ok := c.Replier.LastDiagnosis(inv.ChannelID); ok {
		report.Last = &last
	}
	if until, ok := c.Quiet.Until(inv.ChannelID); ok {
		report.QuietTill = &until
	}
	if c.Assistant != nil {
		usage := c.Assistant.Usage()
		report.Usage = &usage
	}

	return formatDiag(report)
}

func (b *Bot) unmute(ctx context.Context, inv invocation) string {
	if !canUnmute(inv.Permissions) {
		return b.denied(inv, errForbidden)
	}
	if inv.TargetID == 0 || inv.GuildID == 0 {
		return "Adj meg egy tagot a szerveren."
	}

	reason := "Unmuted by " + inv.UserName
	if err := b.components.Guard.Unmute(ctx, inv.GuildID, inv.TargetID, reason); err != nil {
		b.logger.Warn("Unmute finished with errors",
			zap.Uint64("user_id", uint64(inv.TargetID)),
			zap.Error(err))
		return fmt.Sprintf("<@%d> pontjai törölve, de a némítás feloldása nem sikerült teljesen.", inv.TargetID)
	}

	b.audit.Info("Member unmuted",
		zap.Uint64("user_id", uint64(inv.TargetID)),
		zap.Uint64("moderator_id", uint64(inv.UserID)))
	return fmt.Sprintf("<@%d> némítása feloldva.", inv.TargetID)
}

// postHub posts the ticket hub panel, removing the previous one posted by this process.
func (b *Bot) postHub(ctx context.Context, inv invocation) string {
	if !b.isStaff(inv) {
		return b.denied(inv, errForbidden)
	}

	hubID := b.settings.Channels.TicketHub
	if hubID == 0 {
		return "A CHANNEL_TICKET_HUB nincs beállítva."
	}

	b.hubMu.Lock()
	defer b.hubMu.Unlock()

	if b.hubMessageID != 0 {
		if err := b.platform.Delete(ctx, hubID, b.hubMessageID); err != nil && !errors.Is(err, platform.ErrNotFound) {
			b.logger.Warn("Failed to remove previous hub panel", zap.Error(err))
		}
		b.hubMessageID = 0
	}

	id, err := b.platform.Send(ctx, hubID, ticket.HubPanel())
	if err != nil {
		b.logger.Warn("Failed to post hub panel", zap.Error(err))
		return "Nem sikerült kitenni a ticket panelt."
	}
	b.hubMessageID = id

	return fmt.Sprintf("Ticket panel kitéve: <#%d>", hubID)
}

func (b *Bot) whoami(ctx context.Context, inv invocation) string {
	var (
		profile storage.Profile
		found   bool
	)

	if b.components.Profiles != nil {
		var err error
		profile, found, err = b.components.Profiles.GetProfile(ctx, inv.UserID)
		if err != nil {
			b.logger.Warn("Failed to load profile", zap.Uint64("user_id", uint64(inv.UserID)), zap.Error(err))
		}
	}

	if !found {
		profile = storage.Profile{UserID: inv.UserID, Role: roleOf(b.resolveFor(inv))}
	}

	record, _ := b.components.Guard.Record(inv.UserID)
	return formatProfile(profile, found, record.Stage, record.Points)
}

func roleOf(c msgctx.Context) storage.Role {
	switch {
	case c.IsOwner:
		return storage.RoleOwner
	case c.IsStaff:
		return storage.RoleStaff
	default:
		return storage.RoleUser
	}
}

func (b *Bot) setPref(ctx context.Context, inv invocation) string {
	if b.components.Profiles == nil {
		return "A beállítások mentése nem elérhető."
	}

	locale := strings.ToLower(strings.TrimSpace(inv.Locale))
	style := strings.TrimSpace(inv.Style)
	if err := b.components.Profiles.SetPreferences(ctx, inv.UserID, locale, style); err != nil {
		b.logger.Warn("Failed to save preferences", zap.Uint64("user_id", uint64(inv.UserID)), zap.Error(err))
		return "Nem sikerült menteni a beállításokat."
	}

	if style == "" {
		style = "-"
	}
	return fmt.Sprintf("Mentve. locale: %s, style: %s", locale, style)
}

func (b *Bot) quiet(inv invocation) string {
	if !b.isStaff(inv) {
		return b.denied(inv, errForbidden)
	}

	minutes := inv.Minutes
	if minutes <= 0 {
		minutes = defaultQuietMinutes
	}

	b.components.Quiet.Quiet(inv.ChannelID, time.Duration(minutes)*time.Minute)
	b.audit.Info("Channel quieted",
		zap.Uint64("channel_id", uint64(inv.ChannelID)),
		zap.Uint64("moderator_id", uint64(inv.UserID)),
		zap.Int("minutes", minutes))
	return fmt.Sprintf("Csendben maradok itt %d percig.", minutes)
}

func (b *Bot) unquiet(inv invocation) string {
	if !b.isStaff(inv) {
		return b.denied(inv, errForbidden)
	}

	b.components.Quiet.Unquiet(inv.ChannelID)
	b.audit.Info("Channel unquieted",
		zap.Uint64("channel_id", uint64(inv.ChannelID)),
		zap.Uint64("moderator_id", uint64(inv.UserID)))
	return "Újra válaszolok ebben a csatornában."
}

func (b *Bot) denied(inv invocation, err error) string {
	b.logger.Info("Command refused",
		zap.String("command", inv.Name),
		zap.Uint64("user_id", uint64(inv.UserID)),
		zap.Error(err))
	return "Ehhez nincs jogosultságod."
}
