package moderation_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/event"
	"github.com/robalyx/isero/internal/moderation"
	"github.com/robalyx/isero/internal/msgctx"
	"github.com/robalyx/isero/internal/platform"
	"github.com/robalyx/isero/internal/platform/platformtest"
	"github.com/robalyx/isero/internal/profanity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	guildID   snowflake.ID = 1
	channelID snowflake.ID = 2
	userID    snowflake.ID = 3
	muteRole  snowflake.ID = 4
)

type clock struct {
	mu  sync.Mutex
	now time.Time
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

type fixture struct {
	guard    *moderation.Guard
	store    *moderation.Store
	recorder *platformtest.Recorder
	clock    *clock
	nextID   snowflake.ID
}

func newFixture(t *testing.T, mutate func(*moderation.GuardConfig)) *fixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	c := &clock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := moderation.NewStore(30*time.Second, c.Now)
	t.Cleanup(store.Close)

	cfg := moderation.GuardConfig{
		FreeWordsPerMsg: 2,
		Policy:          moderation.DefaultPolicy(),
		UseWebhookMimic: true,
		StaffFreeSpeech: true,
		MuteRoleID:      muteRole,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	matcher := profanity.NewMatcher([]string{"geci", "kurva", "szar", "fasz"}, profanity.DefaultOptions(), logger)
	recorder := platformtest.New()

	return &fixture{
		guard:    moderation.NewGuard(matcher, store, recorder, cfg, logger),
		store:    store,
		recorder: recorder,
		clock:    c,
		nextID:   100,
	}
}

func (f *fixture) send(t *testing.T, content string, mctx msgctx.Context) event.Outcome {
	t.Helper()

	f.nextID++
	msg := event.Message{
		ID:         f.nextID,
		GuildID:    guildID,
		ChannelID:  channelID,
		AuthorID:   userID,
		AuthorName: "Tester",
		AvatarURL:  "https://cdn.example/avatar.png",
		Content:    content,
	}
	mctx.AuthorID = userID
	mctx.ChannelID = channelID

	return f.guard.Handle(t.Context(), event.NewEnvelope(msg, mctx))
}

// hits builds a message with n separate flagged words.
func hits(n int) string {
	return strings.TrimSpace(strings.Repeat("geci ", n))
}

func TestGuard_CleanMessagePassesThrough(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	outcome := f.send(t, "szép napot mindenkinek", msgctx.Context{})

	assert.False(t, outcome.Moderated)
	assert.Empty(t, f.recorder.Calls())
	assert.Equal(t, int64(1), f.guard.Counters().Scanned)
}

func TestGuard_CensorsAndEchoes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	outcome := f.send(t, "te geci!", msgctx.Context{})

	assert.True(t, outcome.Moderated)

	calls := f.recorder.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "delete", calls[0].Op)
	assert.Equal(t, "send_as", calls[1].Op)
	assert.Equal(t, platform.CensorWebhookName, calls[1].Name)
	assert.Equal(t, "Tester", calls[1].As.Username)
	assert.Equal(t, "te g**i!", calls[1].Content)
}

func TestGuard_WebhookFailureFallsBackToPlainMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.recorder.FailOn("send_as", platform.ErrPermission)

	f.send(t, "kurva", msgctx.Context{})

	sends := f.recorder.CallsOf("send")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].Content, "k***a")
	assert.False(t, sends[0].Message.AllowUserMentions)
}

func TestGuard_PlainEchoEscapesAuthorName(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *moderation.GuardConfig) {
		c.UseWebhookMimic = false
	})

	msg := event.Message{
		ID:         500,
		GuildID:    guildID,
		ChannelID:  channelID,
		AuthorID:   userID,
		AuthorName: "**_boss_**",
		Content:    "kurva",
	}
	f.guard.Handle(t.Context(), event.NewEnvelope(msg, msgctx.Context{AuthorID: userID, ChannelID: channelID}))

	sends := f.recorder.CallsOf("send")
	require.Len(t, sends, 1)
	assert.True(t, strings.HasPrefix(sends[0].Content, `**\*\*\_boss\_\*\*:** `), sends[0].Content)
	assert.Empty(t, f.recorder.CallsOf("send_as"))
}

func TestGuard_DeleteFailureStillScores(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *moderation.GuardConfig) { c.UseWebhookMimic = false })
	f.recorder.FailOn("delete", platform.ErrPermission)

	outcome := f.send(t, hits(3), msgctx.Context{})

	assert.True(t, outcome.Moderated)
	rec, ok := f.store.Get(userID)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Points)
	assert.Len(t, f.recorder.CallsOf("send"), 1)
}

func TestGuard_EchoThrottle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	f.send(t, "geci", msgctx.Context{})
	f.send(t, "geci", msgctx.Context{})
	assert.Len(t, f.recorder.CallsOf("send_as"), 1)
	assert.Len(t, f.recorder.CallsOf("delete"), 2)
	assert.Equal(t, int64(1), f.guard.Counters().Throttled)

	f.clock.Advance(31 * time.Second)
	f.send(t, "geci", msgctx.Context{})
	assert.Len(t, f.recorder.CallsOf("send_as"), 2)
}

func TestGuard_FreeWords(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	f.send(t, hits(2), msgctx.Context{})
	_, ok := f.store.Get(userID)
	assert.False(t, ok, "two hits cost nothing")

	f.send(t, hits(3), msgctx.Context{})
	rec, ok := f.store.Get(userID)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Points)
}

func TestGuard_EscalationIsMonotonic(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	start := f.clock.Now()

	stages := make([]moderation.Stage, 0, 5)
	for range 5 {
		f.send(t, hits(5), msgctx.Context{})
		rec, _ := f.store.Get(userID)
		stages = append(stages, rec.Stage)
	}

	assert.Equal(t, []moderation.Stage{
		moderation.StageClean,
		moderation.StageWarned,
		moderation.StageTimedOut,
		moderation.StageMuted,
		moderation.StageMuted,
	}, stages)

	timeouts := f.recorder.CallsOf("timeout")
	require.Len(t, timeouts, 1, "crossing level 2 times out exactly once")
	require.NotNil(t, timeouts[0].Until)
	assert.Equal(t, start.Add(40*time.Minute), *timeouts[0].Until)

	roles := f.recorder.CallsOf("add_role")
	require.Len(t, roles, 1)
	assert.Equal(t, muteRole, roles[0].RoleID)

	counters := f.guard.Counters()
	assert.Equal(t, int64(1), counters.Warnings)
	assert.Equal(t, int64(1), counters.Timeouts)
	assert.Equal(t, int64(1), counters.Mutes)
}

func TestGuard_JumpAppliesOnlyHighestStage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *moderation.GuardConfig) { c.MuteRoleID = 0 })
	start := f.clock.Now()

	f.send(t, hits(13), msgctx.Context{})

	rec, _ := f.store.Get(userID)
	assert.Equal(t, moderation.StageMuted, rec.Stage)

	timeouts := f.recorder.CallsOf("timeout")
	require.Len(t, timeouts, 1, "mute without a role falls back to the longest timeout")
	assert.Equal(t, start.Add(platform.MaxTimeout), *timeouts[0].Until)
	assert.Empty(t, f.recorder.CallsOf("add_role"))
}

func TestGuard_MuteRoleFailureFallsBackToTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.recorder.FailOn("add_role", platform.ErrPermission)

	f.send(t, hits(13), msgctx.Context{})

	assert.Len(t, f.recorder.CallsOf("add_role"), 1)
	assert.Len(t, f.recorder.CallsOf("timeout"), 1)
}

func TestGuard_WindowReset(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	f.send(t, hits(8), msgctx.Context{})
	rec, _ := f.store.Get(userID)
	assert.Equal(t, moderation.StageWarned, rec.Stage)

	f.clock.Advance(25 * time.Hour)
	f.send(t, hits(3), msgctx.Context{})

	rec, _ = f.store.Get(userID)
	assert.Equal(t, moderation.StageClean, rec.Stage)
	assert.Equal(t, 1, rec.Points)
}

func TestGuard_SkippedAuthors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mctx   msgctx.Context
		mutate func(*moderation.GuardConfig)
	}{
		{name: "nsfw channel", mctx: msgctx.Context{IsNSFW: true}},
		{name: "owner", mctx: msgctx.Context{IsOwner: true}},
		{name: "staff with free speech", mctx: msgctx.Context{IsStaff: true}},
		{
			name: "exempt user",
			mutate: func(c *moderation.GuardConfig) {
				c.ExemptUserIDs = map[snowflake.ID]struct{}{userID: {}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.mutate)
			for range 4 {
				outcome := f.send(t, hits(10), tt.mctx)
				assert.True(t, outcome.Moderated, "text is still censored")
			}

			_, ok := f.store.Get(userID)
			assert.False(t, ok)
			assert.Empty(t, f.recorder.CallsOf("timeout"))
			assert.Empty(t, f.recorder.CallsOf("add_role"))
		})
	}
}

func TestGuard_StaffWithoutFreeSpeechIsScored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *moderation.GuardConfig) { c.StaffFreeSpeech = false })
	f.send(t, hits(3), msgctx.Context{IsStaff: true})

	rec, ok := f.store.Get(userID)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Points)
}

func TestGuard_EarlyUserDiscount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *moderation.GuardConfig) {
		c.EarlyUserIDs = map[snowflake.ID]struct{}{userID: {}}
	})

	f.send(t, hits(3), msgctx.Context{})
	_, ok := f.store.Get(userID)
	assert.False(t, ok, "0.7 of one point floors to zero")

	f.send(t, hits(12), msgctx.Context{})
	rec, ok := f.store.Get(userID)
	require.True(t, ok)
	assert.Equal(t, 7, rec.Points)
	assert.Equal(t, moderation.StageWarned, rec.Stage)
}

func TestGuard_BotMessagesIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	outcome := f.guard.Handle(t.Context(), event.NewEnvelope(event.Message{
		ChannelID: channelID, AuthorID: userID, Content: "geci", IsBot: true,
	}, msgctx.Context{}))

	assert.False(t, outcome.Moderated)
	assert.Empty(t, f.recorder.Calls())
}

func TestGuard_Unmute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.send(t, hits(13), msgctx.Context{})
	f.recorder.Reset()

	require.NoError(t, f.guard.Unmute(t.Context(), guildID, userID, "appeal accepted"))

	_, ok := f.guard.Record(userID)
	assert.False(t, ok)

	removed := f.recorder.CallsOf("remove_role")
	require.Len(t, removed, 1)
	assert.Equal(t, muteRole, removed[0].RoleID)

	timeouts := f.recorder.CallsOf("timeout")
	require.Len(t, timeouts, 1)
	assert.Nil(t, timeouts[0].Until)

	f.send(t, hits(3), msgctx.Context{})
	rec, _ := f.guard.Record(userID)
	assert.Equal(t, moderation.StageClean, rec.Stage)
}

func TestGuard_UnmuteToleratesMissingRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.recorder.FailOn("remove_role", platform.ErrNotFound)
	require.NoError(t, f.guard.Unmute(t.Context(), guildID, userID, "cleanup"))

	f.recorder.FailOn("timeout", platform.ErrPermission)
	assert.ErrorIs(t, f.guard.Unmute(t.Context(), guildID, userID, "cleanup"), platform.ErrPermission)
}

func TestGuard_LongTimeoutUsesRoleWithRelease(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *moderation.GuardConfig) {
		c.Policy.TimeoutLvl3 = 60 * 24 * time.Hour
	})

	f.send(t, hits(13), msgctx.Context{})

	assert.Len(t, f.recorder.CallsOf("add_role"), 1)
	assert.Empty(t, f.recorder.CallsOf("timeout"))
	assert.Equal(t, 1, f.store.PendingReleases())

	require.NoError(t, f.guard.Unmute(t.Context(), guildID, userID, "early release"))
	assert.Equal(t, 0, f.store.PendingReleases())
}
