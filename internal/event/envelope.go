// Package event carries inbound messages through the statically registered
// subscribers in a fixed order.
package event

import (
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/robalyx/isero/internal/msgctx"
)

// Attachment is a file attached to a message.
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
}

// IsImage reports whether the attachment is an image.
func (a Attachment) IsImage() bool {
	if strings.HasPrefix(a.ContentType, "image/") {
		return true
	}

	name := strings.ToLower(a.Filename)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Message is an inbound chat message.
type Message struct {
	ID         snowflake.ID
	GuildID    snowflake.ID
	ChannelID  snowflake.ID
	AuthorID   snowflake.ID
	AuthorName string
	AvatarURL  string
	Content    string

	Attachments []Attachment

	IsBot     bool
	IsWebhook bool
	CreatedAt time.Time
}

// ImageURLs returns the URLs of the image attachments in order.
func (m Message) ImageURLs() []string {
	var urls []string
	for _, a := range m.Attachments {
		if a.IsImage() {
			urls = append(urls, a.URL)
		}
	}
	return urls
}

// Envelope is a single inbound message together with its resolved context.
// It is passed by value; the registry owns the moderated flag.
type Envelope struct {
	ID         uuid.UUID
	Message    Message
	Context    msgctx.Context
	Moderated  bool
	ReceivedAt time.Time
}

// NewEnvelope wraps a message with a fresh id.
func NewEnvelope(msg Message, ctx msgctx.Context) Envelope {
	return Envelope{
		ID:         uuid.New(),
		Message:    msg,
		Context:    ctx,
		ReceivedAt: time.Now(),
	}
}
