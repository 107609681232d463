package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/internal/ticket"
	"go.uber.org/zap"
)

// ticketAction is a hub or thread component reduced to what the ticket flow needs.
type ticketAction struct {
	CustomID  string
	Value     string
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
	UserName  string
	BriefText string
}

// handleComponentInteraction routes ticket hub and ticket thread components.
// The self-written brief opens a modal, which must be the first response.
func (b *Bot) handleComponentInteraction(e *events.ComponentInteractionCreate) {
	go func() {
		action := ticketAction{
			CustomID:  e.Data.CustomID(),
			ChannelID: e.ChannelID(),
			UserID:    e.User().ID,
			UserName:  e.User().EffectiveName(),
		}
		if guildID := e.GuildID(); guildID != nil {
			action.GuildID = *guildID
		}
		if data, ok := e.Data.(discord.StringSelectMenuInteractionData); ok && len(data.Values) > 0 {
			action.Value = data.Values[0]
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in component interaction handler", zap.Any("panic", r))
			}
			b.logger.Debug("Component interaction handled",
				zap.String("custom_id", action.CustomID),
				zap.Duration("duration", time.Since(start)))
		}()

		if action.CustomID == ticket.SelfButtonID {
			b.openBriefModal(e, action)
			return
		}

		if err := e.DeferCreateMessage(true); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		b.updateResponse(e.ApplicationID(), e.Token(), b.runTicketAction(ctx, action))
	}()
}

// handleModalSubmit stores the self-written brief.
func (b *Bot) handleModalSubmit(e *events.ModalSubmitInteractionCreate) {
	go func() {
		if err := e.DeferCreateMessage(true); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		action := ticketAction{
			CustomID:  e.Data.CustomID,
			ChannelID: e.ChannelID(),
			UserID:    e.User().ID,
			UserName:  e.User().EffectiveName(),
		}
		action.BriefText, _ = e.Data.OptText(ticket.BriefInputID)

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in modal submit interaction handler", zap.Any("panic", r))
			}
			b.logger.Debug("Modal submit interaction handled",
				zap.String("custom_id", action.CustomID),
				zap.Duration("duration", time.Since(start)))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		b.updateResponse(e.ApplicationID(), e.Token(), b.runTicketAction(ctx, action))
	}()
}

func (b *Bot) openBriefModal(e *events.ComponentInteractionCreate, action ticketAction) {
	tickets := b.components.Tickets
	if err := tickets.BeginSelf(action.ChannelID, action.UserID); err != nil {
		if err := e.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ticketErrorText(err)).
			SetEphemeral(true).
			Build()); err != nil {
			b.logger.Error("Failed to respond to brief button", zap.Error(err))
		}
		return
	}

	maxChars := tickets.Config().BriefMaxChars
	modal := discord.NewModalCreateBuilder().
		SetCustomID(ticket.BriefModalID).
		SetTitle("Brief").
		AddActionRow(discord.NewParagraphTextInput(ticket.BriefInputID, "Mit szeretnél?").
			WithRequired(true).
			WithMaxLength(maxChars).
			WithPlaceholder(fmt.Sprintf("Írd le röviden a kérésed (max. %d karakter).", maxChars))).
		Build()

	if err := e.Modal(modal); err != nil {
		b.logger.Error("Failed to open brief modal", zap.Error(err))
	}
}

// runTicketAction performs a ticket action and returns the ephemeral reply.
func (b *Bot) runTicketAction(ctx context.Context, a ticketAction) string {
	tickets := b.components.Tickets

	var err error
	switch a.CustomID {
	case ticket.HubSelectID:
		kind, ok := ticket.ParseKind(a.Value)
		if !ok {
			return "Ismeretlen ticket kategória."
		}
		if kind == ticket.KindNSFW {
			return b.askAdultConfirmation(ctx, a)
		}

		var session ticket.Session
		session, err = tickets.Open(ctx, ticket.OpenRequest{
			GuildID: a.GuildID, UserID: a.UserID, UserName: a.UserName, Kind: kind,
		})
		if err == nil {
			return fmt.Sprintf("Ticket megnyitva: <#%d>", session.ChannelID)
		}

	case ticket.NSFWConfirmID:
		var session ticket.Session
		session, err = tickets.ConfirmAdult(ctx, ticket.OpenRequest{
			GuildID: a.GuildID, UserID: a.UserID, UserName: a.UserName, Kind: ticket.KindNSFW,
		})
		if err == nil {
			return fmt.Sprintf("NSFW ticket megnyitva: <#%d>", session.ChannelID)
		}

	case ticket.GuidedButtonID:
		if err = tickets.StartGuided(ctx, a.ChannelID, a.UserID); err == nil {
			return "Rendben, kérdezni fogok, válaszolj a szálban."
		}

	case ticket.SummaryButtonID:
		if _, err = tickets.Summarise(ctx, a.ChannelID); err == nil {
			return "Az összefoglaló elkészült."
		}

	case ticket.CloseButtonID:
		if err = tickets.Close(ctx, a.ChannelID, "button"); err == nil {
			return "A ticket lezárva."
		}

	case ticket.BriefModalID:
		if err = tickets.SubmitBrief(ctx, a.ChannelID, a.UserID, a.BriefText); err == nil {
			return "Köszönöm, a brief elmentve."
		}

	default:
		return "Ez a művelet nem elérhető."
	}

	if errors.Is(err, ticket.ErrSessionClosed) {
		b.logger.Info("Refused action on closed ticket",
			zap.String("custom_id", a.CustomID),
			zap.Uint64("channel_id", uint64(a.ChannelID)))
	} else {
		b.logger.Warn("Ticket action failed",
			zap.String("custom_id", a.CustomID),
			zap.Uint64("channel_id", uint64(a.ChannelID)),
			zap.Uint64("user_id", uint64(a.UserID)),
			zap.Error(err))
	}
	return ticketErrorText(err)
}

// askAdultConfirmation posts the 18+ prompt for the member in the hub.
func (b *Bot) askAdultConfirmation(ctx context.Context, a ticketAction) string {
	if _, err := b.platform.Send(ctx, a.ChannelID, withMention(ticket.NSFWConfirmation(), a.UserID)); err != nil {
		b.logger.Warn("Failed to post 18+ confirmation", zap.Error(err))
		return ticketErrorText(err)
	}
	return "Erősítsd meg a korodat a fenti üzenetben."
}

func withMention(msg platform.Message, userID snowflake.ID) platform.Message {
	msg.Content = fmt.Sprintf("<@%d> %s", userID, msg.Content)
	msg.AllowUserMentions = true
	return msg
}
