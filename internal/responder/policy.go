// Package responder decides whether and how the bot answers a message and
// produces the assistant reply when it does.
package responder

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/msgctx"
)

// Mode is the reply style.
type Mode string

const (
	ModeShort    Mode = "short"
	ModeGuided   Mode = "guided"
	ModeRedirect Mode = "redirect"
	ModeSilent   Mode = "silent"
)

// Reason explains which rule produced a decision.
type Reason string

const (
	ReasonChannelQuiet      Reason = "channel_quiet"
	ReasonTicketHubFreeText Reason = "ticket_hub_free_text"
	ReasonNoiseChannel      Reason = "noise_channel"
	ReasonOwnerOverride     Reason = "owner_override"
	ReasonQuestionInGeneral Reason = "question_in_general"
	ReasonNoTriggerTalk     Reason = "no_trigger_talk"
	ReasonGeneralNoTrigger  Reason = "general_no_trigger"
	ReasonGeneralShort      Reason = "general_short"
	ReasonNSFWRedirect      Reason = "nsfw_redirect"
	ReasonTicketGuided      Reason = "ticket_guided"
	ReasonDefault           Reason = "default"
)

// guidedTicketTypes are the ticket kinds answered in guided mode.
var guidedTicketTypes = map[string]struct{}{
	"mebinu":     {},
	"commission": {},
	"nsfw":       {},
	"help":       {},
}

// Decision is the outcome of the responder policy.
type Decision struct {
	ShouldReply bool
	Mode        Mode
	Reason      Reason
	CharLimit   int
}

// Policy maps a message context to a reply decision.
type Policy struct {
	quiet        *QuietTable
	nsfwCategory snowflake.ID

	mu       sync.Mutex
	byReason map[Reason]int64
}

// NewPolicy creates a policy over the quiet table.
func NewPolicy(quiet *QuietTable, nsfwCategory snowflake.ID) *Policy {
	return &Policy{
		quiet:        quiet,
		nsfwCategory: nsfwCategory,
		byReason:     make(map[Reason]int64),
	}
}

// Quiet returns the policy's quiet table.
func (p *Policy) Quiet() *QuietTable {
	return p.quiet
}

// Decide applies the decision table; the first matching rule wins.
func (p *Policy) Decide(c msgctx.Context) Decision {
	d := p.decide(c)
	d.CharLimit = c.CharLimit
	if d.CharLimit <= 0 {
		d.CharLimit = msgctx.DefaultCharLimit
	}

	p.mu.Lock()
	p.byReason[d.Reason]++
	p.mu.Unlock()

	return d
}

func (p *Policy) decide(c msgctx.Context) Decision {
	addressed := c.WasMentioned || c.HasWakeWord

	switch {
	case p.quiet.IsQuiet(c.ChannelID) && !c.IsOwner:
		return silent(ReasonChannelQuiet)
	case c.Role == msgctx.RoleTicketHub && c.Trigger == msgctx.TriggerFreeText:
		return silent(ReasonTicketHubFreeText)
	case c.Role.IsNoise():
		return reply(ModeRedirect, ReasonNoiseChannel)
	case c.Role.IsTalk() && c.IsOwner:
		return reply(ModeShort, ReasonOwnerOverride)
	case c.Role.IsTalk() && containsQuestion(c.Content):
		return reply(ModeShort, ReasonQuestionInGeneral)
	case c.Role.IsTalk() && c.Role != msgctx.RoleGeneralChat:
		return silent(ReasonNoTriggerTalk)
	case c.Role == msgctx.RoleGeneralChat && !addressed:
		return silent(ReasonGeneralNoTrigger)
	case c.Role == msgctx.RoleGeneralChat:
		return reply(ModeShort, ReasonGeneralShort)
	case c.IsTicket && c.TicketType == "nsfw" && c.CategoryID != p.nsfwCategory:
		return reply(ModeRedirect, ReasonNSFWRedirect)
	case c.IsTicket && isGuidedType(c.TicketType):
		return reply(ModeGuided, ReasonTicketGuided)
	default:
		return reply(ModeShort, ReasonDefault)
	}
}

func silent(reason Reason) Decision {
	return Decision{ShouldReply: false, Mode: ModeSilent, Reason: reason}
}

func reply(mode Mode, reason Reason) Decision {
	return Decision{ShouldReply: true, Mode: mode, Reason: reason}
}

func containsQuestion(content string) bool {
	for _, r := range content {
		if r == '?' {
			return true
		}
	}
	return false
}

func isGuidedType(kind string) bool {
	_, ok := guidedTicketTypes[kind]
	return ok
}

// Counts returns how often each reason was decided.
func (p *Policy) Counts() map[Reason]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[Reason]int64, len(p.byReason))
	for reason, n := range p.byReason {
		out[reason] = n
	}
	return out
}
