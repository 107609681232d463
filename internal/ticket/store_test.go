package ticket_test

import (
	"sync"
	"testing"
	"time"

	"github.com/robalyx/isero/internal/ticket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStore_Lifecycle(t *testing.T) {
	t.Parallel()

	store := ticket.NewStore(time.Minute, newClock().Now)

	require.NoError(t, store.Create(ticket.Session{ChannelID: 10, OwnerID: 1, Kind: ticket.KindGeneral}))
	assert.ErrorIs(t, store.Create(ticket.Session{ChannelID: 10}), ticket.ErrSessionExists)
	assert.True(t, store.HasSession(10))

	kind, ok := store.TicketKind(10)
	require.True(t, ok)
	assert.Equal(t, "general", kind)

	_, err := store.Update(99, func(*ticket.Session) error { return nil })
	require.ErrorIs(t, err, ticket.ErrNoSession)

	closed, err := store.MarkClosed(10)
	require.NoError(t, err)
	assert.Equal(t, ticket.StageClosed, closed.Stage)
	assert.False(t, store.HasSession(10))

	_, err = store.Update(10, func(*ticket.Session) error { return nil })
	require.ErrorIs(t, err, ticket.ErrSessionClosed)

	store.Remove(10)
	assert.Equal(t, 0, store.Len())

	_, err = store.Update(10, func(*ticket.Session) error { return nil })
	assert.ErrorIs(t, err, ticket.ErrSessionClosed)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	store := ticket.NewStore(time.Minute, newClock().Now)
	require.NoError(t, store.Create(ticket.Session{ChannelID: 10, Attachments: []string{"a"}}))

	got, ok := store.Get(10)
	require.True(t, ok)
	got.Attachments[0] = "changed"

	again, _ := store.Get(10)
	assert.Equal(t, []string{"a"}, again.Attachments)
}

func TestStore_Cooldown(t *testing.T) {
	t.Parallel()

	c := newClock()
	store := ticket.NewStore(30*time.Second, c.Now)

	require.NoError(t, store.TryOpen(1))
	require.ErrorIs(t, store.TryOpen(1), ticket.ErrCooldown)
	require.NoError(t, store.TryOpen(2))

	until, ok := store.CooldownUntil(1)
	require.True(t, ok)
	assert.Equal(t, c.Now().Add(30*time.Second), until)

	c.Advance(30 * time.Second)
	assert.NoError(t, store.TryOpen(1))
}

func TestStore_Idle(t *testing.T) {
	t.Parallel()

	c := newClock()
	store := ticket.NewStore(time.Minute, c.Now)
	require.NoError(t, store.Create(ticket.Session{ChannelID: 10}))

	c.Advance(5 * time.Minute)
	require.NoError(t, store.Create(ticket.Session{ChannelID: 11}))

	c.Advance(6 * time.Minute)
	idle := store.Idle(10 * time.Minute)
	require.Len(t, idle, 1)
	assert.Equal(t, uint64(10), uint64(idle[0].ChannelID))
}
