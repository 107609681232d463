package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/msgctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingSubscriber struct {
	name     string
	marks    bool
	moderate bool
	panics   bool

	mu   sync.Mutex
	seen []event.Envelope
}

func (s *recordingSubscriber) Name() string         { return s.name }
func (s *recordingSubscriber) MarksModerated() bool { return s.marks }

func (s *recordingSubscriber) Handle(_ context.Context, env event.Envelope) event.Outcome {
	s.mu.Lock()
	s.seen = append(s.seen, env)
	s.mu.Unlock()

	if s.panics {
		panic("boom")
	}
	return event.Outcome{Moderated: s.moderate}
}

func (s *recordingSubscriber) Seen() []event.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Envelope(nil), s.seen...)
}

func TestRegistry_ModeratedFlagFlowsForward(t *testing.T) {
	t.Parallel()

	before := &recordingSubscriber{name: "before"}
	guard := &recordingSubscriber{name: "guard", marks: true, moderate: true}
	after := &recordingSubscriber{name: "after"}

	registry := event.NewRegistry(zaptest.NewLogger(t), before, guard, after)
	env := event.NewEnvelope(event.Message{ID: 1, ChannelID: 2, Content: "x"}, msgctx.Context{})

	final := registry.Publish(t.Context(), env)

	assert.True(t, final.Moderated)
	assert.False(t, env.Moderated, "caller copy is untouched")
	require.Len(t, before.Seen(), 1)
	assert.False(t, before.Seen()[0].Moderated)
	require.Len(t, after.Seen(), 1)
	assert.True(t, after.Seen()[0].Moderated)
}

func TestRegistry_UndeclaredSubscriberCannotModerate(t *testing.T) {
	t.Parallel()

	rogue := &recordingSubscriber{name: "rogue", moderate: true}
	after := &recordingSubscriber{name: "after"}

	registry := event.NewRegistry(zaptest.NewLogger(t), rogue, after)
	final := registry.Publish(t.Context(), event.NewEnvelope(event.Message{}, msgctx.Context{}))

	assert.False(t, final.Moderated)
	assert.False(t, after.Seen()[0].Moderated)
}

func TestRegistry_PanicIsIsolated(t *testing.T) {
	t.Parallel()

	bad := &recordingSubscriber{name: "bad", panics: true}
	after := &recordingSubscriber{name: "after"}

	registry := event.NewRegistry(zaptest.NewLogger(t), bad, after)
	assert.NotPanics(t, func() {
		registry.Publish(t.Context(), event.NewEnvelope(event.Message{}, msgctx.Context{}))
	})
	assert.Len(t, after.Seen(), 1)
}

type orderSubscriber struct {
	mu    sync.Mutex
	order map[snowflake.ID][]snowflake.ID
}

func (s *orderSubscriber) Name() string         { return "order" }
func (s *orderSubscriber) MarksModerated() bool { return false }

func (s *orderSubscriber) Handle(_ context.Context, env event.Envelope) event.Outcome {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	s.order[env.Message.ChannelID] = append(s.order[env.Message.ChannelID], env.Message.ID)
	s.mu.Unlock()
	return event.Outcome{}
}

func TestDispatcher_PerChannelOrder(t *testing.T) {
	t.Parallel()

	sub := &orderSubscriber{order: make(map[snowflake.ID][]snowflake.ID)}
	d := event.NewDispatcher(event.NewRegistry(zaptest.NewLogger(t), sub), zaptest.NewLogger(t))

	const perChannel = 20
	for i := 1; i <= perChannel; i++ {
		for _, channel := range []snowflake.ID{100, 200, 300} {
			msg := event.Message{ID: snowflake.ID(i), ChannelID: channel}
			require.True(t, d.Submit(t.Context(), event.NewEnvelope(msg, msgctx.Context{})))
		}
	}

	d.Close()
	assert.False(t, d.Submit(t.Context(), event.NewEnvelope(event.Message{ChannelID: 100}, msgctx.Context{})))
	assert.Zero(t, d.Pending())

	for _, channel := range []snowflake.ID{100, 200, 300} {
		ids := sub.order[channel]
		require.Len(t, ids, perChannel)
		for i, id := range ids {
			assert.Equal(t, snowflake.ID(i+1), id)
		}
	}
}

func TestAttachment_IsImage(t *testing.T) {
	t.Parallel()

	assert.True(t, event.Attachment{ContentType: "image/png"}.IsImage())
	assert.True(t, event.Attachment{Filename: "REF.JPG"}.IsImage())
	assert.False(t, event.Attachment{Filename: "brief.pdf", ContentType: "application/pdf"}.IsImage())

	msg := event.Message{Attachments: []event.Attachment{
		{URL: "a", ContentType: "image/webp"},
		{URL: "b", Filename: "notes.txt"},
		{URL: "c", Filename: "x.gif"},
	}}
	assert.Equal(t, []string{"a", "c"}, msg.ImageURLs())
}
