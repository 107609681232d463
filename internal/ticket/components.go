package ticket

import (
	"fmt"
	"time"

	"github.com/robalyx/isero/internal/platform"
)

// Component custom ids handled by the bot interaction listener.
const (
	HubSelectID     = "ticket:open"
	NSFWConfirmID   = "ticket:nsfw_confirm"
	SelfButtonID    = "ticket:self"
	GuidedButtonID  = "ticket:guided"
	SummaryButtonID = "ticket:summary"
	CloseButtonID   = "ticket:close"
	BriefModalID    = "ticket:brief"
	BriefInputID    = "brief_text"
)

const (
	colorHub     = 0x5865F2
	colorWelcome = 0x57F287
	colorSummary = 0xFEE75C
	colorNotify  = 0xEB459E
)

// HubPanel is the message posted by /posthub.
func HubPanel() platform.Message {
	options := make([]platform.SelectOption, 0, len(Kinds))
	for _, kind := range Kinds {
		options = append(options, platform.SelectOption{
			Label: kind.Label(),
			Value: string(kind),
		})
	}

	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       "Ticket nyitása",
			Description: "Válaszd ki a kategóriát, és nyitunk neked egy privát szálat a staffal.",
			Color:       colorHub,
		}},
		Select: &platform.Select{
			CustomID:    HubSelectID,
			Placeholder: "Open Ticket",
			Options:     options,
		},
	}
}

// NSFWConfirmation is the 18+ prompt shown before an NSFW ticket opens.
func NSFWConfirmation() platform.Message {
	return platform.Message{
		Content: "Az NSFW tickethez meg kell erősítened, hogy elmúltál 18 éves. A megerősítés megadja az NSFW szerepet.",
		Buttons: []platform.Button{{
			CustomID: NSFWConfirmID,
			Label:    "Elmúltam 18",
			Style:    platform.ButtonDanger,
		}},
	}
}

func welcomeMessage(s Session, sla time.Time, mentions string) platform.Message {
	return platform.Message{
		Content:           mentions,
		AllowUserMentions: true,
		Embeds: []platform.Embed{{
			Title:       "Ticket: " + s.Kind.Label(),
			Description: textWelcome,
			Color:       colorWelcome,
			Fields: []platform.EmbedField{
				{Name: "Várható válasz", Value: sla.Format("2006-01-02"), Inline: true},
				{Name: "Kategória", Value: s.Kind.Label(), Inline: true},
			},
		}},
		Buttons: []platform.Button{
			{CustomID: SelfButtonID, Label: "Megírom magam", Style: platform.ButtonPrimary},
			{CustomID: GuidedButtonID, Label: "Segíts megírni", Style: platform.ButtonSecondary},
			{CustomID: CloseButtonID, Label: "Lezárás", Style: platform.ButtonDanger},
		},
	}
}

func briefMessage(s Session) platform.Message {
	return platform.Message{
		Content: textBriefReceived,
		Embeds: []platform.Embed{{
			Title:       "Brief",
			Description: s.BriefText,
			Color:       colorWelcome,
			Fields: []platform.EmbedField{
				{Name: "Csatolmányok", Value: fmt.Sprintf("%d", len(s.Attachments)), Inline: true},
			},
		}},
		Buttons: []platform.Button{
			{CustomID: SummaryButtonID, Label: "Összefoglaló", Style: platform.ButtonSuccess},
			{CustomID: CloseButtonID, Label: "Lezárás", Style: platform.ButtonDanger},
		},
	}
}

func summaryMessage(b Brief, summary string) platform.Message {
	fields := []platform.EmbedField{
		{Name: "Kategória", Value: b.Kind.Label(), Inline: true},
		{Name: "Referenciák", Value: fmt.Sprintf("%d", len(b.References)), Inline: true},
	}
	if deadline := b.Field("deadline"); deadline != "" {
		fields = append(fields, platform.EmbedField{Name: "Határidő", Value: deadline, Inline: true})
	}

	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       "Összefoglaló a staffnak",
			Description: summary,
			Color:       colorSummary,
			Fields:      fields,
		}},
	}
}
