package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DISCORD_TOKEN": "token",
	}
}

func TestParseSettings_Defaults(t *testing.T) {
	t.Parallel()

	settings, err := config.ParseSettings(baseEnv(), zaptest.NewLogger(t))
	require.NoError(t, err)

	p := settings.Profanity
	assert.Equal(t, 2, p.FreeWordsPerMsg)
	assert.Equal(t, []int{5, 8, 11}, []int{p.Lvl1Threshold, p.Lvl2Threshold, p.Lvl3Threshold})
	assert.Equal(t, 40*time.Minute, p.TimeoutLvl2)
	assert.Zero(t, p.TimeoutLvl3)
	assert.True(t, p.UseWebhookMimic)
	assert.Equal(t, 30*time.Second, p.EchoTTL)

	tk := settings.Tickets
	assert.Equal(t, 3, tk.SLADays)
	assert.Equal(t, 800, tk.BriefMaxChars)
	assert.Equal(t, 4, tk.BriefMaxImages)
	assert.Equal(t, 10*time.Minute, tk.IdleAfter)
	assert.Equal(t, 10, tk.PrechatTurns)

	assert.Equal(t, 300, settings.Agent.MaxMsgChars)
	assert.Equal(t, 20000, settings.Agent.DailyTokenLimit)
	assert.Equal(t, "auto", settings.Agent.Selection)
	assert.Equal(t, []string{"isero", "issero"}, settings.Wake.Core)
	assert.Equal(t, 28*24*time.Hour, settings.PlatformMaxTimeout)
}

func TestParseSettings_IDs(t *testing.T) {
	t.Parallel()

	env := baseEnv()
	env["CHANNEL_GENERAL_CHAT"] = "1234"
	env["CHANNEL_RULES"] = "not-a-number"
	env["STAFF_ROLE_ID"] = "10"
	env["STAFF_EXTRA_ROLE_IDS"] = "11, 12,bogus"
	env["NSFW_CHANNELS"] = "20 21"
	env["AGENT_ALLOWED_CHANNELS"] = "30"
	env["WAKE_WORDS"] = "izi"

	settings, err := config.ParseSettings(env, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, snowflake.ID(1234), settings.Channels.GeneralChat)
	assert.Zero(t, settings.Channels.Rules)
	assert.Equal(t, []snowflake.ID{10, 11, 12}, settings.Roles.StaffRoleIDs)
	assert.Len(t, settings.Channels.NSFWChannels, 2)
	assert.Contains(t, settings.Agent.AllowedChannels, snowflake.ID(30))
	assert.Equal(t, []string{"isero", "issero", "izi"}, settings.Wake.Core)
	assert.True(t, settings.Roles.IsStaff([]snowflake.ID{99, 12}))
	assert.False(t, settings.Roles.IsStaff([]snowflake.ID{99}))
}

func TestParseSettings_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{}},
		{"negative budget", map[string]string{"AGENT_DAILY_TOKEN_LIMIT": "-1"}},
		{"thresholds not increasing", map[string]string{"PROFANITY_LVL2_THRESHOLD": "5"}},
		{"zero stage 2 timeout", map[string]string{"PROFANITY_TIMEOUT_MIN_LVL2": "0"}},
		{"separator too large", map[string]string{"PROFANITY_SEPARATOR_MAX": "9"}},
		{"repeat zero", map[string]string{"PROFANITY_REPEAT_MAX": "0"}},
		{"brief cap zero", map[string]string{"BRIEF_MAX_CHARS": "0"}},
		{"unknown model", map[string]string{"AGENT_MODEL": "huge"}},
		{"long platform timeout", map[string]string{"PLATFORM_MAX_TIMEOUT_DAYS": "30"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := baseEnv()
			if tt.name == "missing token" {
				env = map[string]string{}
			}
			for k, v := range tt.env {
				env[k] = v
			}

			_, err := config.ParseSettings(env, zaptest.NewLogger(t))
			assert.ErrorIs(t, err, config.ErrInvalidSettings)
		})
	}
}

func TestParseSettings_NotANumber(t *testing.T) {
	t.Parallel()

	env := baseEnv()
	env["BRIEF_MAX_CHARS"] = "lots"

	_, err := config.ParseSettings(env, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestLoadSettings_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "isero.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
discord_token = "from-file"
max_msg_chars = 250
wake_core = ["isero", "isi"]

[ticket]
idle_seconds = 120
`), 0o600))

	t.Setenv(config.OverlayEnv, path)
	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Chdir(dir)

	settings, err := config.LoadSettings(zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "from-env", settings.Discord.Token)
	assert.Equal(t, 250, settings.Agent.MaxMsgChars)
	assert.Equal(t, []string{"isero", "isi"}, settings.Wake.Core)
	assert.Equal(t, 2*time.Minute, settings.Tickets.IdleAfter)
}

func TestLoadSettings_MissingOverlay(t *testing.T) {
	t.Setenv(config.OverlayEnv, filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("DISCORD_TOKEN", "token")

	_, err := config.LoadSettings(zaptest.NewLogger(t))
	assert.ErrorIs(t, err, config.ErrOverlayUnreadable)
}
