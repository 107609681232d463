package responder_test

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/responder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallLimiter(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := responder.NewCallLimiter(3, 2*time.Second, func() time.Time { return now })
	const user snowflake.ID = 7

	require.NoError(t, l.Allow(user))
	require.ErrorIs(t, l.Allow(user), responder.ErrDebounced)

	now = now.Add(3 * time.Second)
	require.NoError(t, l.Allow(user))
	now = now.Add(3 * time.Second)
	require.NoError(t, l.Allow(user))
	now = now.Add(3 * time.Second)
	require.ErrorIs(t, l.Allow(user), responder.ErrHourlyCap)

	assert.NoError(t, l.Allow(8), "other users are independent")

	now = now.Add(time.Hour)
	assert.NoError(t, l.Allow(user), "cap slides with the hour")
}

func TestCallLimiter_SweepDropsIdleUsers(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := responder.NewCallLimiter(3, 0, func() time.Time { return now })

	require.NoError(t, l.Allow(1))
	now = now.Add(30 * time.Minute)
	require.NoError(t, l.Allow(2))
	assert.Equal(t, 2, l.Tracked())

	assert.Zero(t, l.Sweep())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Tracked())

	now = now.Add(time.Hour)
	assert.Equal(t, 1, l.Sweep())
	assert.Zero(t, l.Tracked())
}
