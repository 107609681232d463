package ticket_test

import (
	"fmt"
	"testing"

	"github.com/robalyx/isero/internal/ticket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	t.Parallel()

	session := ticket.Session{
		ChannelID:   10,
		Kind:        ticket.KindCommission,
		BriefText:   "Cél: portré a karakteremről\nHatáridő: március 20\nKeret: 30k",
		Attachments: []string{"https://cdn.test/a.png"},
	}
	for i := range 40 {
		session.Transcript = append(session.Transcript, ticket.Line{
			Speaker: ticket.SpeakerUser,
			Content: fmt.Sprintf("line %d", i),
		})
	}
	session.Transcript = append(session.Transcript,
		ticket.Line{Speaker: ticket.SpeakerUser, Content: "nézd: https://ref.test/pose.jpg."},
		ticket.Line{Speaker: ticket.SpeakerBot, Content: "Milyen stílusban?"},
		ticket.Line{Speaker: ticket.SpeakerUser, Content: "Stílus: anime"},
	)

	brief := ticket.Assemble(session)

	require.Len(t, brief.Lines, ticket.TranscriptWindow)
	assert.Equal(t, "Stílus: anime", brief.Lines[len(brief.Lines)-1].Content)

	assert.Equal(t, "portré a karakteremről", brief.Field("goal"))
	assert.Equal(t, "március 20", brief.Field("deadline"))
	assert.Equal(t, "30k", brief.Field("budget"))
	assert.Equal(t, "anime", brief.Field("style"))
	assert.Empty(t, brief.Field("size"))

	assert.Equal(t, []string{"https://cdn.test/a.png", "https://ref.test/pose.jpg"}, brief.References)

	rendered := brief.Render()
	assert.Contains(t, rendered, "Kategória: Megrendelés")
	assert.Contains(t, rendered, "deadline: március 20")
	assert.Contains(t, rendered, "bot: Milyen stílusban?")
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ticket.Kind
		ok   bool
	}{
		{"general", ticket.KindGeneral, true},
		{" NSFW ", ticket.KindNSFW, true},
		{"mebinu", ticket.KindMebinu, true},
		{"help", "", false},
	}

	for _, tt := range tests {
		got, ok := ticket.ParseKind(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestHubPanel(t *testing.T) {
	t.Parallel()

	panel := ticket.HubPanel()
	require.NotNil(t, panel.Select)
	assert.Equal(t, ticket.HubSelectID, panel.Select.CustomID)
	require.Len(t, panel.Select.Options, len(ticket.Kinds))
	assert.Equal(t, "nsfw", panel.Select.Options[2].Value)
}
