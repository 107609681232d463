package responder_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/ai/client"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/msgctx"
	"github.com/robalyx/isero/internal/platform/platformtest"
	"github.com/robalyx/isero/internal/responder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	botCommands snowflake.ID = 300
	ticketHub   snowflake.ID = 301
	general     snowflake.ID = 302
	author      snowflake.ID = 55
)

type fakeChat struct {
	mu       sync.Mutex
	requests []client.Request
	text     string
	err      error
}

func (f *fakeChat) Chat(_ context.Context, req client.Request) (client.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return client.Response{}, f.err
	}
	return client.Response{Text: f.text, TokensUsed: 10}, nil
}

func (f *fakeChat) Requests() []client.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.Request(nil), f.requests...)
}

type fakePrefs struct{}

func (fakePrefs) Preferences(_ context.Context, _ snowflake.ID) (string, string, bool) {
	return "en", "playful", true
}

type fakeSignals struct {
	mu      sync.Mutex
	intents []string
}

func (f *fakeSignals) RecordSignal(_ context.Context, _ snowflake.ID, intent string, _ float64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
	return nil
}

type sessionSet map[snowflake.ID]bool

func (s sessionSet) HasSession(id snowflake.ID) bool { return s[id] }

type replierFixture struct {
	replier  *responder.Replier
	chat     *fakeChat
	recorder *platformtest.Recorder
	signals  *fakeSignals
}

func newReplier(t *testing.T, chat *fakeChat, cfg responder.ReplierConfig, sessions responder.SessionLookup) *replierFixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	wake := newWake(t)
	recorder := platformtest.New()
	signals := &fakeSignals{}

	cfg.BotCommandsChannel = botCommands
	cfg.TicketHubChannel = ticketHub

	return &replierFixture{
		replier: responder.NewReplier(
			newPolicy(), wake, responder.NewCallLimiter(10, time.Minute, nil), chat, recorder,
			fakePrefs{}, signals, sessions, cfg, logger,
		),
		chat:     chat,
		recorder: recorder,
		signals:  signals,
	}
}

func envelope(channel snowflake.ID, content string, mctx msgctx.Context) event.Envelope {
	mctx.ChannelID = channel
	mctx.Content = content
	mctx.AuthorID = author
	if mctx.CharLimit == 0 {
		mctx.CharLimit = 300
	}
	return event.NewEnvelope(event.Message{
		ID:        999,
		ChannelID: channel,
		AuthorID:  author,
		Content:   content,
	}, mctx)
}

func TestReplier_AnswersMention(t *testing.T) {
	t.Parallel()

	f := newReplier(t, &fakeChat{text: strings.Repeat("válasz ", 100)}, responder.ReplierConfig{}, nil)
	env := envelope(general, "hey isero, plan this", msgctx.Context{
		Role: msgctx.RoleGeneralChat, WasMentioned: true, Locale: "hu",
	})

	f.replier.Handle(t.Context(), env)

	requests := f.chat.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "plan this", requests[0].User)
	assert.Contains(t, requests[0].System, "playful")
	assert.Contains(t, requests[0].System, "(default en)")

	sends := f.recorder.CallsOf("send")
	require.Len(t, sends, 1)
	assert.Equal(t, snowflake.ID(999), sends[0].Message.ReplyTo)
	assert.LessOrEqual(t, len([]rune(sends[0].Content)), 300)
	assert.Equal(t, []string{"general_short"}, f.signals.intents)

	diag, ok := f.replier.LastDiagnosis(general)
	require.True(t, ok)
	assert.Equal(t, responder.ReasonGeneralShort, diag.Decision.Reason)
}

func TestReplier_SkipsModerated(t *testing.T) {
	t.Parallel()

	f := newReplier(t, &fakeChat{text: "hi"}, responder.ReplierConfig{}, nil)
	env := envelope(general, "isero", msgctx.Context{Role: msgctx.RoleGeneralChat, WasMentioned: true})
	env.Moderated = true

	f.replier.Handle(t.Context(), env)

	assert.Empty(t, f.chat.Requests())
	assert.Empty(t, f.recorder.Calls())

	diag, ok := f.replier.LastDiagnosis(general)
	require.True(t, ok)
	assert.True(t, diag.Moderated)
}

func TestReplier_Silent(t *testing.T) {
	t.Parallel()

	f := newReplier(t, &fakeChat{text: "hi"}, responder.ReplierConfig{}, nil)
	f.replier.Handle(t.Context(), envelope(general, "hello", msgctx.Context{Role: msgctx.RoleGeneralChat}))

	assert.Empty(t, f.chat.Requests())
	assert.Empty(t, f.recorder.Calls())
}

func TestReplier_Redirects(t *testing.T) {
	t.Parallel()

	f := newReplier(t, &fakeChat{text: "hi"}, responder.ReplierConfig{}, nil)

	f.replier.Handle(t.Context(), envelope(400, "isero hello?", msgctx.Context{
		Role: msgctx.RoleAnnouncements, Trigger: msgctx.TriggerWakeWord, HasWakeWord: true,
	}))
	f.replier.Handle(t.Context(), envelope(401, "18+ request", msgctx.Context{
		Role: msgctx.RoleTicketThread, IsTicket: true, TicketType: "nsfw", CategoryID: 1,
	}))

	assert.Empty(t, f.chat.Requests(), "redirects never call the assistant")

	sends := f.recorder.CallsOf("send")
	require.Len(t, sends, 2)
	assert.Contains(t, sends[0].Content, "<#300>")
	assert.Contains(t, sends[1].Content, "<#301>")
}

func TestReplier_NoiseChannelFreeTextStaysSilent(t *testing.T) {
	t.Parallel()

	f := newReplier(t, &fakeChat{text: "hi"}, responder.ReplierConfig{}, nil)

	f.replier.Handle(t.Context(), envelope(400, "ban log entry", msgctx.Context{
		Role: msgctx.RoleModLogs, Trigger: msgctx.TriggerFreeText,
	}))
	f.replier.Handle(t.Context(), envelope(400, "nice announcement", msgctx.Context{
		Role: msgctx.RoleAnnouncements, Trigger: msgctx.TriggerFreeText,
	}))
	assert.Empty(t, f.recorder.Calls())

	last, ok := f.replier.LastDiagnosis(400)
	require.True(t, ok)
	assert.Equal(t, responder.ReasonNoiseChannel, last.Decision.Reason)

	f.replier.Handle(t.Context(), envelope(400, "@isero help", msgctx.Context{
		Role: msgctx.RoleModLogs, Trigger: msgctx.TriggerMention, WasMentioned: true,
	}))
	sends := f.recorder.CallsOf("send")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].Content, "<#300>")
	assert.Empty(t, f.chat.Requests())
}

func TestReplier_NSFWTicketSessionOwnsThread(t *testing.T) {
	t.Parallel()

	const thread snowflake.ID = 710
	f := newReplier(t, &fakeChat{text: "hi"}, responder.ReplierConfig{}, sessionSet{thread: true})

	// Ticket threads live under the hub, so their category is never the NSFW one.
	nsfwThread := msgctx.Context{
		Role: msgctx.RoleTicketThread, IsTicket: true,
		TicketType: "nsfw", CategoryID: 1, Trigger: msgctx.TriggerFreeText,
	}
	for _, content := range []string{"szia", "egy rajzot szeretnék", "köszi"} {
		f.replier.Handle(t.Context(), envelope(thread, content, nsfwThread))
	}
	assert.Empty(t, f.recorder.Calls())
	assert.Empty(t, f.chat.Requests())

	last, ok := f.replier.LastDiagnosis(thread)
	require.True(t, ok)
	assert.Equal(t, responder.ReasonNSFWRedirect, last.Decision.Reason)

	// Without a session the thread is not a live ticket and still redirects.
	f.replier.Handle(t.Context(), envelope(711, "szia", nsfwThread))
	sends := f.recorder.CallsOf("send")
	require.Len(t, sends, 1)
	assert.Equal(t, snowflake.ID(711), sends[0].ChannelID)
	assert.Contains(t, sends[0].Content, "<#301>")
}

func TestReplier_TicketSessionOwnsGuidedTurns(t *testing.T) {
	t.Parallel()

	const thread snowflake.ID = 700
	f := newReplier(t, &fakeChat{text: "hi"}, responder.ReplierConfig{}, sessionSet{thread: true})

	f.replier.Handle(t.Context(), envelope(thread, "I want a drawing", msgctx.Context{
		Role: msgctx.RoleTicketThread, IsTicket: true, TicketType: "commission",
	}))
	assert.Empty(t, f.chat.Requests())

	f.replier.Handle(t.Context(), envelope(701, "I want a drawing", msgctx.Context{
		Role: msgctx.RoleTicketThread, IsTicket: true, TicketType: "commission",
	}))
	requests := f.chat.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].System, "commission")
}

func TestReplier_AllowedChannels(t *testing.T) {
	t.Parallel()

	f := newReplier(t, &fakeChat{text: "hi"}, responder.ReplierConfig{
		AllowedChannels: map[snowflake.ID]struct{}{botCommands: {}},
	}, nil)

	f.replier.Handle(t.Context(), envelope(general, "isero", msgctx.Context{Role: msgctx.RoleGeneralChat, WasMentioned: true}))
	assert.Empty(t, f.chat.Requests())

	f.replier.Handle(t.Context(), envelope(botCommands, "help?", msgctx.Context{Role: msgctx.RoleBotCommands}))
	assert.Len(t, f.chat.Requests(), 1)
}

func TestReplier_DebounceAndErrors(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errors.New("timeout")}
	f := newReplier(t, chat, responder.ReplierConfig{}, nil)
	mctx := msgctx.Context{Role: msgctx.RoleGeneralChat, WasMentioned: true}

	f.replier.Handle(t.Context(), envelope(general, "isero?", mctx))
	f.replier.Handle(t.Context(), envelope(general, "isero?", mctx))

	assert.Len(t, chat.Requests(), 1, "second call is debounced")
	assert.Empty(t, f.recorder.Calls(), "failed completions post nothing")
}
