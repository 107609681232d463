package bot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robalyx/isero/internal/ai/client"
	"github.com/robalyx/isero/internal/moderation"
	"github.com/robalyx/isero/internal/msgctx"
	"github.com/robalyx/isero/internal/responder"
	"github.com/robalyx/isero/internal/storage"
	"github.com/robalyx/isero/internal/ticket"
)

// formatContext renders a resolved context for /whereami and /diag.
func formatContext(c msgctx.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "channel: <#%d> (`%s`)\n", c.ChannelID, c.Role)
	if c.ParentID != 0 {
		fmt.Fprintf(&b, "parent: <#%d>\n", c.ParentID)
	}
	if c.CategoryID != 0 {
		fmt.Fprintf(&b, "category: `%d`\n", c.CategoryID)
	}
	fmt.Fprintf(&b, "thread: %t, ticket: %t", c.IsThread, c.IsTicket)
	if c.TicketType != "" {
		fmt.Fprintf(&b, " (`%s`)", c.TicketType)
	}
	fmt.Fprintf(&b, ", nsfw: %t\n", c.IsNSFW)
	fmt.Fprintf(&b, "author: %s, locale: %s, budget: %d", c.AuthorRole(), c.Locale, c.CharLimit)

	return b.String()
}

// diagReport is everything /diag shows.
type diagReport struct {
	Context   msgctx.Context
	Last      *responder.Diagnosis
	QuietTill *time.Time
	Guard     moderation.Counters
	Reasons   map[responder.Reason]int64
	Usage     *client.Usage
	Tickets   int
}

func formatDiag(r diagReport) string {
	var b strings.Builder

	b.WriteString("**Context**\n")
	b.WriteString(formatContext(r.Context))
	b.WriteString("\n\n**Responder**\n")

	if r.Last != nil {
		fmt.Fprintf(&b, "last: `%s` / `%s` (reply: %t, limit: %d)\n",
			r.Last.Decision.Mode, r.Last.Decision.Reason, r.Last.Decision.ShouldReply, r.Last.Decision.CharLimit)
		source := "none"
		if r.Last.Moderated {
			source = "profanity_guard"
		}
		fmt.Fprintf(&b, "moderation source: %s\n", source)
	} else {
		b.WriteString("last: no message seen in this channel\n")
	}

	if r.QuietTill != nil {
		fmt.Fprintf(&b, "quiet until: <t:%d:R>\n", r.QuietTill.Unix())
	}

	if len(r.Reasons) > 0 {
		reasons := make([]string, 0, len(r.Reasons))
		for reason, n := range r.Reasons {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(reasons)
		fmt.Fprintf(&b, "reasons: %s\n", strings.Join(reasons, ", "))
	}

	g := r.Guard
	b.WriteString("\n**Moderation**\n")
	fmt.Fprintf(&b, "scanned: %d, moderated: %d, echoes: %d, throttled: %d\n",
		g.Scanned, g.Moderated, g.Echoes, g.Throttled)
	fmt.Fprintf(&b, "warnings: %d, timeouts: %d, mutes: %d, failures: %d\n",
		g.Warnings, g.Timeouts, g.Mutes, g.Failures)

	fmt.Fprintf(&b, "\n**Tickets**\nopen sessions: %d\n", r.Tickets)

	if r.Usage != nil {
		fmt.Fprintf(&b, "\n**Assistant**\ntokens today: %d / %d (remaining %d)\n",
			r.Usage.Used, r.Usage.Limit, r.Usage.Remaining)
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatProfile renders a stored profile for /whoami.
func formatProfile(p storage.Profile, found bool, stage moderation.Stage, points int) string {
	var b strings.Builder

	if !found {
		b.WriteString("Még nincs mentett profilod, az alapértelmezéseket használom.\n")
	}

	locale := p.Locale
	if locale == "" {
		locale = msgctx.DefaultLocale
	}
	style := p.Style
	if style == "" {
		style = "-"
	}

	fmt.Fprintf(&b, "role: %s, trust: %d\n", p.Role, p.Trust)
	fmt.Fprintf(&b, "locale: %s, style: %s\n", locale, style)
	fmt.Fprintf(&b, "moderation: %s (%d points)", stage, points)

	return b.String()
}

// ticketErrorText translates ticket flow errors into member-facing notices.
func ticketErrorText(err error) string {
	switch {
	case errors.Is(err, ticket.ErrSessionClosed):
		return "Ez a ticket már le van zárva."
	case errors.Is(err, ticket.ErrNoSession):
		return "Ebben a csatornában nincs nyitott ticket."
	case errors.Is(err, ticket.ErrCooldown):
		return "Kérlek, várj egy kicsit, mielőtt újabb ticketet nyitsz."
	case errors.Is(err, ticket.ErrNotOwner):
		return "Ezt csak a ticket nyitója teheti meg."
	case errors.Is(err, ticket.ErrBriefTooLong):
		return "A leírás túl hosszú, kérlek rövidítsd."
	case errors.Is(err, ticket.ErrAdultConfirmationRequired):
		return "Az NSFW tickethez előbb erősítsd meg, hogy elmúltál 18."
	default:
		return "Valami hiba történt, kérlek próbáld újra később."
	}
}
