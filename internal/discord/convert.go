package discord

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/isero/internal/platform"
)

// maxThreadName is the longest thread name accepted by Discord.
const maxThreadName = 100

// messageCreate converts an outgoing platform message.
func messageCreate(msg platform.Message) discord.MessageCreate {
	builder := discord.NewMessageCreateBuilder().
		SetContent(msg.Content).
		SetAllowedMentions(allowedMentions(msg.AllowUserMentions))

	for _, embed := range msg.Embeds {
		builder.AddEmbeds(buildEmbed(embed))
	}

	if len(msg.Buttons) > 0 {
		buttons := make([]discord.InteractiveComponent, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			buttons = append(buttons, button(b))
		}
		builder.AddActionRow(buttons...)
	}

	if msg.Select != nil {
		builder.AddActionRow(stringSelect(*msg.Select))
	}

	if msg.ReplyTo != 0 {
		builder.SetMessageReferenceByID(msg.ReplyTo)
	}

	return builder.Build()
}

func allowedMentions(users bool) *discord.AllowedMentions {
	if users {
		return &discord.AllowedMentions{Parse: []discord.AllowedMentionType{discord.AllowedMentionTypeUsers}}
	}
	return &discord.AllowedMentions{Parse: []discord.AllowedMentionType{}}
}

func buildEmbed(e platform.Embed) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(e.Title).
		SetDescription(e.Description).
		SetColor(e.Color)

	if e.URL != "" {
		builder.SetURL(e.URL)
	}
	for _, f := range e.Fields {
		builder.AddField(f.Name, f.Value, f.Inline)
	}
	if e.Footer != "" {
		builder.SetFooterText(e.Footer)
	}
	if e.ImageURL != "" {
		builder.SetImage(e.ImageURL)
	}
	if e.Timestamp != nil {
		builder.SetTimestamp(*e.Timestamp)
	}

	return builder.Build()
}

func button(b platform.Button) discord.ButtonComponent {
	switch b.Style {
	case platform.ButtonSecondary:
		return discord.NewSecondaryButton(b.Label, b.CustomID)
	case platform.ButtonSuccess:
		return discord.NewSuccessButton(b.Label, b.CustomID)
	case platform.ButtonDanger:
		return discord.NewDangerButton(b.Label, b.CustomID)
	case platform.ButtonPrimary:
	}
	return discord.NewPrimaryButton(b.Label, b.CustomID)
}

func stringSelect(s platform.Select) discord.StringSelectMenuComponent {
	options := make([]discord.StringSelectMenuOption, 0, len(s.Options))
	for _, o := range s.Options {
		option := discord.NewStringSelectMenuOption(o.Label, o.Value)
		if o.Description != "" {
			option = option.WithDescription(o.Description)
		}
		options = append(options, option)
	}
	return discord.NewStringSelectMenu(s.CustomID, s.Placeholder, options...)
}

// threadName trims a thread name to the platform limit.
func threadName(name string) string {
	runes := []rune(name)
	if len(runes) > maxThreadName {
		return string(runes[:maxThreadName])
	}
	return name
}
