package responder_test

import (
	"testing"

	"github.com/robalyx/isero/internal/responder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWake(t *testing.T) *responder.WakeMatcher {
	t.Helper()

	prefixes := append(append([]string{}, responder.DefaultWakePrefixesHU...), responder.DefaultWakePrefixesEN...)
	w, err := responder.NewWakeMatcher([]string{"isero", "issero"}, prefixes, responder.DefaultMaxPrefixTokens)
	require.NoError(t, err)
	return w
}

func TestWakeMatcher_Match(t *testing.T) {
	t.Parallel()

	w := newWake(t)

	tests := []struct {
		input string
		want  bool
	}{
		{input: "hey isero, plan this", want: true},
		{input: "ISSERO mit gondolsz?", want: true},
		{input: "szia Isero!", want: true},
		{input: "laserosity", want: false},
		{input: "iserok", want: false},
		{input: "hello everyone", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, w.Match(tt.input))
		})
	}
}

func TestWakeMatcher_MentionAlwaysCounts(t *testing.T) {
	t.Parallel()

	w := newWake(t)
	assert.True(t, w.MatchMessage("no name at all", true))
	assert.False(t, w.MatchMessage("no name at all", false))
}

func TestWakeMatcher_Strip(t *testing.T) {
	t.Parallel()

	w := newWake(t)

	assert.Equal(t, "plan this", w.Strip("hey isero, plan this"))
	assert.Equal(t, "mit gondolsz?", w.Strip("szia  issero   mit gondolsz?"))
	assert.Equal(t, "kérdés isero", w.Strip("isero kérdés isero"), "only the first occurrence")
	assert.Equal(t, "nothing here", w.Strip("nothing   here"))
}
