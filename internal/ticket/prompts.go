package ticket

import "fmt"

// personas lists what the guided intake collects per kind.
var personas = map[Kind]string{
	KindGeneral:    "the question or problem, what they already tried, and how urgent it is",
	KindCommission: "the subject, art style, size or format, deadline, budget and reference images",
	KindNSFW:       "the subject, characters involved, limits and preferences, deadline and budget; keep it tasteful",
	KindMebinu:     "which Mebinu figure or design, quantity, customisation wishes and delivery deadline",
}

const guidedPrompt = `You are ISERO, collecting a %s ticket brief for the staff of an art community.
You need to learn: %s.
Ask exactly one short, focused question per turn about the most important missing detail.
Answer in the member's language (default Hungarian). At most %d characters.
Do not promise prices or dates. If everything is known, say thanks and that staff will reply soon.`

const summaryPrompt = `Summarise this ticket for staff in Hungarian.
Use at most %d characters. Include the goal, deadline, budget and open questions when known.
Plain text only, no greetings.`

func guidedSystemPrompt(kind Kind, limit int) string {
	persona, ok := personas[kind]
	if !ok {
		persona = personas[KindGeneral]
	}
	return fmt.Sprintf(guidedPrompt, kind.Label(), persona, limit)
}

func summarySystemPrompt(limit int) string {
	return fmt.Sprintf(summaryPrompt, limit)
}

// closePhrases end the intake when written by the owner.
var closePhrases = []string{
	"close ticket",
	"close the ticket",
	"lezárás",
	"lezárhatod",
	"lezárhatjátok",
	"zárd le",
	"zárjátok le",
	"ticket zárása",
}

// Texts posted by the flow.
const (
	textTooLong       = "Ez az üzenet túl hosszú (max %d karakter). Kérlek, írd le röviden."
	textWelcome       = "Köszönjük, hogy ticketet nyitottál! Írd le a kérésed saját szavaiddal, vagy kérd, hogy segítsek megírni."
	textGuidedDone    = "Köszönöm, minden fontosat tudok. Összefoglalom a kérést a staff számára."
	textReminder      = "Még itt vagy? Ha nem érkezik újabb üzenet, a ticketet hamarosan lezárom."
	textClosing       = "A ticketet lezártam. Köszönjük!"
	textBriefReceived = "Megkaptuk a briefet. Ha minden rendben, kérj összefoglalót vagy zárd le a ticketet."
)
