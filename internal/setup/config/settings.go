package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Settings is the immutable runtime configuration.
type Settings struct {
	Discord            Discord
	Log                Log
	Channels           Channels
	Roles              Roles
	Profanity          Profanity
	Tickets            Tickets
	Agent              Agent
	Wake               Wake
	DatabasePath       string
	PlatformMaxTimeout time.Duration
}

// Discord holds the gateway credentials.
type Discord struct {
	Token   string
	GuildID snowflake.ID
}

// Log tunes the session log files.
type Log struct {
	Level       string
	Dir         string
	MaxSessions int
	MaxLines    int
}

// Channels holds the ids of the community's channels and categories.
type Channels struct {
	TicketHub       snowflake.ID
	GeneralChat     snowflake.ID
	BotCommands     snowflake.ID
	Suggestions     snowflake.ID
	Announcements   snowflake.ID
	Rules           snowflake.ID
	ServerGuide     snowflake.ID
	ModLogs         snowflake.ID
	ModQueue        snowflake.ID
	TicketsCategory snowflake.ID
	NSFWCategory    snowflake.ID
	SocialCategory  snowflake.ID
	NSFWChannels    map[snowflake.ID]struct{}
}

// Roles holds the member and role ids with special meaning.
type Roles struct {
	OwnerID      snowflake.ID
	StaffRoleIDs []snowflake.ID
	MuteRoleID   snowflake.ID
	NSFWRoleID   snowflake.ID
}

// Profanity tunes the word matcher and the sanction ladder.
type Profanity struct {
	Words           []string
	FreeWordsPerMsg int
	Lvl1Threshold   int
	Lvl2Threshold   int
	Lvl3Threshold   int
	TimeoutLvl2     time.Duration
	// TimeoutLvl3 of zero means a persistent mute.
	TimeoutLvl3     time.Duration
	UseWebhookMimic bool
	EchoTTL         time.Duration
	ExemptUserIDs   map[snowflake.ID]struct{}
	EarlyUserIDs    map[snowflake.ID]struct{}
	StaffFreeSpeech bool
	SeparatorMax    int
	RepeatMax       int
}

// Tickets tunes the ticket intake.
type Tickets struct {
	SLADays            int
	NotifyChannelID    snowflake.ID
	AutoSubmitFirstMsg bool
	MinChars           int
	PingOwnerOnNew     bool
	Cooldown           time.Duration
	IdleAfter          time.Duration
	BriefMaxChars      int
	BriefMaxImages     int
	PrechatTurns       int
}

// Agent tunes the language model and the assistant limits.
type Agent struct {
	APIKey              string
	BaseURL             string
	ModelMini           string
	ModelHeavy          string
	Selection           string
	DailyTokenLimit     int
	MaxCallsPerUserHour int
	Debounce            time.Duration
	AllowedChannels     map[snowflake.ID]struct{}
	MaxMsgChars         int
	MaxConcurrent       int
}

// Wake tunes the wake-word matcher.
type Wake struct {
	Core            []string
	PrefixesHU      []string
	PrefixesEN      []string
	MaxPrefixTokens int
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	p := s.Profanity
	check(s.Discord.Token != "", "DISCORD_TOKEN is required")
	check(s.Agent.DailyTokenLimit >= 0, "AGENT_DAILY_TOKEN_LIMIT must not be negative")
	check(p.Lvl1Threshold > 0, "PROFANITY_LVL1_THRESHOLD must be positive")
	check(p.Lvl1Threshold < p.Lvl2Threshold && p.Lvl2Threshold < p.Lvl3Threshold,
		"profanity thresholds must increase strictly (got %d/%d/%d)", p.Lvl1Threshold, p.Lvl2Threshold, p.Lvl3Threshold)
	check(p.TimeoutLvl2 > 0, "PROFANITY_TIMEOUT_MIN_LVL2 must be positive")
	check(p.TimeoutLvl3 >= 0, "PROFANITY_TIMEOUT_MIN_LVL3 must not be negative")
	check(p.FreeWordsPerMsg >= 0, "PROFANITY_FREE_WORDS_PER_MSG must not be negative")
	check(p.SeparatorMax >= 0 && p.SeparatorMax <= 8, "PROFANITY_SEPARATOR_MAX must be within 0..8")
	check(p.RepeatMax >= 1 && p.RepeatMax <= 16, "PROFANITY_REPEAT_MAX must be within 1..16")
	check(p.EchoTTL >= 0, "PROFANITY_ECHO_TTL_S must not be negative")
	check(s.Tickets.BriefMaxChars > 0, "BRIEF_MAX_CHARS must be positive")
	check(s.Tickets.BriefMaxImages > 0, "BRIEF_MAX_IMAGES must be positive")
	check(s.Tickets.PrechatTurns > 0, "PRECHAT_TURNS must be positive")
	check(s.Tickets.SLADays >= 0, "TICKET_DEFAULT_SLA_DAYS must not be negative")
	check(s.Tickets.IdleAfter > 0, "TICKET_IDLE_SECONDS must be positive")
	check(s.Tickets.Cooldown >= 0, "TICKET_COOLDOWN_SECONDS must not be negative")
	check(s.Agent.MaxMsgChars > 0, "MAX_MSG_CHARS must be positive")
	check(s.Agent.MaxCallsPerUserHour >= 0, "AI_MAX_CALLS_PER_USER_HOUR must not be negative")
	check(s.Agent.Debounce >= 0, "AI_DEBOUNCE_MS must not be negative")
	check(s.Wake.MaxPrefixTokens >= 0, "WAKE_MAX_PREFIX_TOKENS must not be negative")
	check(s.PlatformMaxTimeout > 0 && s.PlatformMaxTimeout <= 28*24*time.Hour,
		"PLATFORM_MAX_TIMEOUT_DAYS must be within 1..28")

	switch s.Agent.Selection {
	case "auto", "mini", "heavy":
	default:
		errs = append(errs, fmt.Errorf("AGENT_MODEL must be auto, mini or heavy (got %q)", s.Agent.Selection))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// IsStaff reports whether any of the roles is a staff role.
func (r Roles) IsStaff(roleIDs []snowflake.ID) bool {
	for _, id := range roleIDs {
		for _, staff := range r.StaffRoleIDs {
			if id == staff {
				return true
			}
		}
	}
	return false
}
