// Package platform describes the chat platform operations the bot relies on.
// Components depend on the Platform interface; internal/discord provides the
// gateway-backed implementation.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

var (
	// ErrTransient marks rate limits and network failures that may succeed on retry.
	ErrTransient = errors.New("transient platform error")
	// ErrPermission marks requests rejected for missing permissions.
	ErrPermission = errors.New("missing platform permission")
	// ErrNotFound marks requests that reference an unknown resource.
	ErrNotFound = errors.New("platform resource not found")
)

// Webhook names used when mimicking members.
const (
	CensorWebhookName = "ISERO Censor"
	EchoWebhookName   = "ISERO Echo"
)

// MaxTimeout is the longest timeout the platform accepts.
const MaxTimeout = 28 * 24 * time.Hour

// Platform is the set of chat platform operations used by the bot.
type Platform interface {
	// Send posts a message and returns its id.
	Send(ctx context.Context, channelID snowflake.ID, msg Message) (snowflake.ID, error)
	// Edit replaces the content of a message.
	Edit(ctx context.Context, channelID, messageID snowflake.ID, content string) error
	// Delete removes a message.
	Delete(ctx context.Context, channelID, messageID snowflake.ID) error
	// SendAs posts content through the named channel webhook, impersonating a member.
	SendAs(ctx context.Context, channelID snowflake.ID, webhookName string, as Impersonation, content string) error
	// CreatePrivateThread opens a non-invitable private thread under parent.
	CreatePrivateThread(ctx context.Context, parentID snowflake.ID, name string) (snowflake.ID, error)
	// AddThreadMember adds a user to a thread.
	AddThreadMember(ctx context.Context, threadID, userID snowflake.ID) error
	// ArchiveThread archives and locks a thread.
	ArchiveThread(ctx context.Context, threadID snowflake.ID) error
	// AddRole grants a role to a member.
	AddRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error
	// RemoveRole revokes a role from a member.
	RemoveRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error
	// CreateRole creates a guild role and returns its id.
	CreateRole(ctx context.Context, guildID snowflake.ID, name string) (snowflake.ID, error)
	// Timeout disables communication until the given time. A nil until clears it.
	Timeout(ctx context.Context, guildID, userID snowflake.ID, until *time.Time, reason string) error
}

// Impersonation carries the identity shown on webhook messages.
type Impersonation struct {
	Username  string
	AvatarURL string
}

// ButtonStyle selects the appearance of a message button.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is an inline message action.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

// SelectOption is a single choice of a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// Select is a string select menu.
type Select struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// EmbedField is a titled section of an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Fields      []EmbedField
	Footer      string
	ImageURL    string
	Timestamp   *time.Time
}

// Message is an outgoing message.
type Message struct {
	Content string
	Embeds  []Embed
	Buttons []Button
	Select  *Select
	// ReplyTo references the message being answered, zero for none.
	ReplyTo snowflake.ID
	// AllowUserMentions enables pings for user mentions in Content.
	AllowUserMentions bool
}
