package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robalyx/isero/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrInvalidSettings wraps every validation failure.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrOverlayUnreadable is returned when ISERO_CONFIG points to an unusable file.
	ErrOverlayUnreadable = errors.New("could not read settings overlay")
)

// OverlayEnv names the optional TOML file providing defaults for any variable.
const OverlayEnv = "ISERO_CONFIG"

// rawEnv mirrors the environment. Ids stay strings so bad values can be dropped with a log entry.
type rawEnv struct {
	DiscordToken   string `env:"DISCORD_TOKEN"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`

	LogLevel       string `env:"LOG_LEVEL"        envDefault:"info"`
	LogDir         string `env:"LOG_DIR"          envDefault:"logs"`
	LogMaxSessions int    `env:"LOG_MAX_SESSIONS" envDefault:"10"`
	LogMaxLines    int    `env:"LOG_MAX_LINES"    envDefault:"10000"`

	ChannelTicketHub     string `env:"CHANNEL_TICKET_HUB"`
	ChannelGeneralChat   string `env:"CHANNEL_GENERAL_CHAT"`
	ChannelBotCommands   string `env:"CHANNEL_BOT_COMMANDS"`
	ChannelSuggestions   string `env:"CHANNEL_SUGGESTIONS"`
	ChannelAnnouncements string `env:"CHANNEL_ANNOUNCEMENTS"`
	ChannelRules         string `env:"CHANNEL_RULES"`
	ChannelServerGuide   string `env:"CHANNEL_SERVER_GUIDE"`
	ChannelModLogs       string `env:"CHANNEL_MOD_LOGS"`
	ChannelModQueue      string `env:"CHANNEL_MOD_QUEUE"`
	CategoryTickets      string `env:"CATEGORY_TICKETS"`
	CategoryNSFW         string `env:"CATEGORY_NSFW"`
	CategorySocial       string `env:"CATEGORY_SOCIAL"`
	NSFWChannels         string `env:"NSFW_CHANNELS"`

	OwnerID           string `env:"OWNER_ID"`
	StaffRoleID       string `env:"STAFF_ROLE_ID"`
	StaffExtraRoleIDs string `env:"STAFF_EXTRA_ROLE_IDS"`
	MuteRoleID        string `env:"MUTE_ROLE_ID"`
	NSFWRoleID        string `env:"NSFW_ROLE_ID"`

	ProfanityWords           string `env:"PROFANITY_WORDS"`
	ProfanityFreeWordsPerMsg int    `env:"PROFANITY_FREE_WORDS_PER_MSG" envDefault:"2"`
	ProfanityLvl1Threshold   int    `env:"PROFANITY_LVL1_THRESHOLD"     envDefault:"5"`
	ProfanityLvl2Threshold   int    `env:"PROFANITY_LVL2_THRESHOLD"     envDefault:"8"`
	ProfanityLvl3Threshold   int    `env:"PROFANITY_LVL3_THRESHOLD"     envDefault:"11"`
	ProfanityTimeoutMinLvl2  int    `env:"PROFANITY_TIMEOUT_MIN_LVL2"   envDefault:"40"`
	ProfanityTimeoutMinLvl3  int    `env:"PROFANITY_TIMEOUT_MIN_LVL3"   envDefault:"0"`
	UseWebhookMimic          bool   `env:"USE_WEBHOOK_MIMIC"            envDefault:"true"`
	ProfanityEchoTTLSeconds  int    `env:"PROFANITY_ECHO_TTL_S"         envDefault:"30"`
	ProfanityExemptUserIDs   string `env:"PROFANITY_EXEMPT_USER_IDS"`
	ProfanityEarlyUserIDs    string `env:"PROFANITY_EARLY_USER_IDS"`
	ProfanityStaffFreeSpeech bool   `env:"PROFANITY_STAFF_FREE_SPEECH"  envDefault:"false"`
	ProfanitySeparatorMax    int    `env:"PROFANITY_SEPARATOR_MAX"      envDefault:"4"`
	ProfanityRepeatMax       int    `env:"PROFANITY_REPEAT_MAX"         envDefault:"1"`

	TicketDefaultSLADays       int    `env:"TICKET_DEFAULT_SLA_DAYS"         envDefault:"3"`
	TicketNotifyChannelID      string `env:"TICKET_NOTIFY_CHANNEL_ID"`
	TicketAutoSubmitOnFirstMsg bool   `env:"TICKET_AUTO_SUBMIT_ON_FIRST_MSG" envDefault:"false"`
	TicketMinChars             int    `env:"TICKET_MIN_CHARS"                envDefault:"10"`
	TicketPingOwnerOnNew       bool   `env:"TICKET_PING_OWNER_ON_NEW"        envDefault:"false"`
	TicketCooldownSeconds      int    `env:"TICKET_COOLDOWN_SECONDS"         envDefault:"30"`
	TicketIdleSeconds          int    `env:"TICKET_IDLE_SECONDS"             envDefault:"600"`
	BriefMaxChars              int    `env:"BRIEF_MAX_CHARS"                 envDefault:"800"`
	BriefMaxImages             int    `env:"BRIEF_MAX_IMAGES"                envDefault:"4"`
	MaxMsgChars                int    `env:"MAX_MSG_CHARS"                   envDefault:"300"`
	PrechatTurns               int    `env:"PRECHAT_TURNS"                   envDefault:"10"`

	OpenAIAPIKey          string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL         string `env:"OPENAI_BASE_URL"`
	AgentModelMini        string `env:"AGENT_MODEL_MINI"           envDefault:"gpt-4o-mini"`
	AgentModelHeavy       string `env:"AGENT_MODEL_HEAVY"          envDefault:"gpt-4o"`
	AgentModel            string `env:"AGENT_MODEL"                envDefault:"auto"`
	AgentDailyTokenLimit  int    `env:"AGENT_DAILY_TOKEN_LIMIT"    envDefault:"20000"`
	AIMaxCallsPerUserHour int    `env:"AI_MAX_CALLS_PER_USER_HOUR" envDefault:"20"`
	AIDebounceMS          int    `env:"AI_DEBOUNCE_MS"             envDefault:"1500"`
	AgentAllowedChannels  string `env:"AGENT_ALLOWED_CHANNELS"`
	AgentMaxConcurrent    int    `env:"AGENT_MAX_CONCURRENT"       envDefault:"4"`

	WakeCore            string `env:"WAKE_CORE"              envDefault:"isero,issero"`
	WakeWords           string `env:"WAKE_WORDS"`
	WakePrefixesHU      string `env:"WAKE_PREFIXES_HU"`
	WakePrefixesEN      string `env:"WAKE_PREFIXES_EN"`
	WakeMaxPrefixTokens int    `env:"WAKE_MAX_PREFIX_TOKENS" envDefault:"2"`

	DatabasePath           string `env:"DATABASE_PATH"             envDefault:"data/isero.db"`
	PlatformMaxTimeoutDays int    `env:"PLATFORM_MAX_TIMEOUT_DAYS" envDefault:"28"`
}

// LoadSettings reads .env, the optional TOML overlay and the environment.
// Real environment variables take precedence over the overlay.
func LoadSettings(logger *zap.Logger) (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info(".env file not found, relying on environment variables")
	}

	environ := environMap(os.Environ())

	if path := environ[OverlayEnv]; path != "" {
		overlay, err := loadOverlay(path)
		if err != nil {
			return nil, err
		}
		for key, value := range overlay {
			if _, set := environ[key]; !set {
				environ[key] = value
			}
		}
		logger.Info("Loaded settings overlay", zap.String("path", path), zap.Int("keys", len(overlay)))
	}

	return ParseSettings(environ, logger)
}

// ParseSettings builds validated settings from a variable map.
func ParseSettings(environ map[string]string, logger *zap.Logger) (*Settings, error) {
	var raw rawEnv
	if err := env.ParseWithOptions(&raw, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}

	settings := raw.settings(logger)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// loadOverlay flattens a TOML file into upper-case variable names.
// Nested tables join with an underscore so [ticket] idle_seconds becomes TICKET_IDLE_SECONDS.
func loadOverlay(path string) (map[string]string, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOverlayUnreadable, path, err)
	}

	out := make(map[string]string)
	for key, value := range k.All() {
		name := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		out[name] = overlayValue(value)
	}
	return out, nil
}

func overlayValue(value any) string {
	switch v := value.(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok {
			out[key] = value
		}
	}
	return out
}

// idParser converts raw ids, logging and dropping values that are not snowflakes.
type idParser struct {
	logger *zap.Logger
}

func (p idParser) one(name, value string) snowflake.ID {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	id, err := snowflake.Parse(value)
	if err != nil || id == 0 {
		p.logger.Warn("Ignoring invalid id", zap.String("variable", name), zap.String("value", value))
		return 0
	}
	return id
}

func (p idParser) list(name, value string) []snowflake.ID {
	var ids []snowflake.ID
	for _, item := range utils.SplitList(value) {
		if id := p.one(name, item); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p idParser) set(name, value string) map[snowflake.ID]struct{} {
	ids := p.list(name, value)
	set := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (r rawEnv) settings(logger *zap.Logger) *Settings {
	ids := idParser{logger: logger}

	staffRoles := ids.list("STAFF_EXTRA_ROLE_IDS", r.StaffExtraRoleIDs)
	if id := ids.one("STAFF_ROLE_ID", r.StaffRoleID); id != 0 {
		staffRoles = append([]snowflake.ID{id}, staffRoles...)
	}

	wakeCore := append(utils.SplitList(r.WakeCore), utils.SplitList(r.WakeWords)...)

	return &Settings{
		Discord: Discord{
			Token:   strings.TrimSpace(r.DiscordToken),
			GuildID: ids.one("DISCORD_GUILD_ID", r.DiscordGuildID),
		},
		Log: Log{
			Level:       r.LogLevel,
			Dir:         r.LogDir,
			MaxSessions: r.LogMaxSessions,
			MaxLines:    r.LogMaxLines,
		},
		Channels: Channels{
			TicketHub:       ids.one("CHANNEL_TICKET_HUB", r.ChannelTicketHub),
			GeneralChat:     ids.one("CHANNEL_GENERAL_CHAT", r.ChannelGeneralChat),
			BotCommands:     ids.one("CHANNEL_BOT_COMMANDS", r.ChannelBotCommands),
			Suggestions:     ids.one("CHANNEL_SUGGESTIONS", r.ChannelSuggestions),
			Announcements:   ids.one("CHANNEL_ANNOUNCEMENTS", r.ChannelAnnouncements),
			Rules:           ids.one("CHANNEL_RULES", r.ChannelRules),
			ServerGuide:     ids.one("CHANNEL_SERVER_GUIDE", r.ChannelServerGuide),
			ModLogs:         ids.one("CHANNEL_MOD_LOGS", r.ChannelModLogs),
			ModQueue:        ids.one("CHANNEL_MOD_QUEUE", r.ChannelModQueue),
			TicketsCategory: ids.one("CATEGORY_TICKETS", r.CategoryTickets),
			NSFWCategory:    ids.one("CATEGORY_NSFW", r.CategoryNSFW),
			SocialCategory:  ids.one("CATEGORY_SOCIAL", r.CategorySocial),
			NSFWChannels:    ids.set("NSFW_CHANNELS", r.NSFWChannels),
		},
		Roles: Roles{
			OwnerID:      ids.one("OWNER_ID", r.OwnerID),
			StaffRoleIDs: staffRoles,
			MuteRoleID:   ids.one("MUTE_ROLE_ID", r.MuteRoleID),
			NSFWRoleID:   ids.one("NSFW_ROLE_ID", r.NSFWRoleID),
		},
		Profanity: Profanity{
			Words:           utils.SplitList(r.ProfanityWords),
			FreeWordsPerMsg: r.ProfanityFreeWordsPerMsg,
			Lvl1Threshold:   r.ProfanityLvl1Threshold,
			Lvl2Threshold:   r.ProfanityLvl2Threshold,
			Lvl3Threshold:   r.ProfanityLvl3Threshold,
			TimeoutLvl2:     time.Duration(r.ProfanityTimeoutMinLvl2) * time.Minute,
			TimeoutLvl3:     time.Duration(r.ProfanityTimeoutMinLvl3) * time.Minute,
			UseWebhookMimic: r.UseWebhookMimic,
			EchoTTL:         time.Duration(r.ProfanityEchoTTLSeconds) * time.Second,
			ExemptUserIDs:   ids.set("PROFANITY_EXEMPT_USER_IDS", r.ProfanityExemptUserIDs),
			EarlyUserIDs:    ids.set("PROFANITY_EARLY_USER_IDS", r.ProfanityEarlyUserIDs),
			StaffFreeSpeech: r.ProfanityStaffFreeSpeech,
			SeparatorMax:    r.ProfanitySeparatorMax,
			RepeatMax:       r.ProfanityRepeatMax,
		},
		Tickets: Tickets{
			SLADays:            r.TicketDefaultSLADays,
			NotifyChannelID:    ids.one("TICKET_NOTIFY_CHANNEL_ID", r.TicketNotifyChannelID),
			AutoSubmitFirstMsg: r.TicketAutoSubmitOnFirstMsg,
			MinChars:           r.TicketMinChars,
			PingOwnerOnNew:     r.TicketPingOwnerOnNew,
			Cooldown:           time.Duration(r.TicketCooldownSeconds) * time.Second,
			IdleAfter:          time.Duration(r.TicketIdleSeconds) * time.Second,
			BriefMaxChars:      r.BriefMaxChars,
			BriefMaxImages:     r.BriefMaxImages,
			PrechatTurns:       r.PrechatTurns,
		},
		Agent: Agent{
			APIKey:              strings.TrimSpace(r.OpenAIAPIKey),
			BaseURL:             r.OpenAIBaseURL,
			ModelMini:           r.AgentModelMini,
			ModelHeavy:          r.AgentModelHeavy,
			Selection:           strings.ToLower(strings.TrimSpace(r.AgentModel)),
			DailyTokenLimit:     r.AgentDailyTokenLimit,
			MaxCallsPerUserHour: r.AIMaxCallsPerUserHour,
			Debounce:            time.Duration(r.AIDebounceMS) * time.Millisecond,
			AllowedChannels:     ids.set("AGENT_ALLOWED_CHANNELS", r.AgentAllowedChannels),
			MaxMsgChars:         r.MaxMsgChars,
			MaxConcurrent:       r.AgentMaxConcurrent,
		},
		Wake: Wake{
			Core:            wakeCore,
			PrefixesHU:      utils.SplitList(r.WakePrefixesHU),
			PrefixesEN:      utils.SplitList(r.WakePrefixesEN),
			MaxPrefixTokens: r.WakeMaxPrefixTokens,
		},
		DatabasePath:       strings.TrimSpace(r.DatabasePath),
		PlatformMaxTimeout: time.Duration(r.PlatformMaxTimeoutDays) * 24 * time.Hour,
	}
}
