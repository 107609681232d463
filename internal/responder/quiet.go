package responder

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/pkg/utils"
)

// QuietTable tracks channels where the bot stays silent until an expiry.
type QuietTable struct {
	entries *utils.TTLMap[snowflake.ID, struct{}]
}

// NewQuietTable creates an empty quiet table.
func NewQuietTable(now utils.Clock) *QuietTable {
	return &QuietTable{entries: utils.NewTTLMap[snowflake.ID, struct{}](time.Hour, now)}
}

// Quiet silences a channel for ttl.
func (q *QuietTable) Quiet(channelID snowflake.ID, ttl time.Duration) {
	q.entries.SetFor(channelID, struct{}{}, ttl)
}

// Unquiet lifts the silence on a channel.
func (q *QuietTable) Unquiet(channelID snowflake.ID) {
	q.entries.Delete(channelID)
}

// IsQuiet reports whether the channel is silenced. Expired entries are dropped.
func (q *QuietTable) IsQuiet(channelID snowflake.ID) bool {
	_, ok := q.entries.Get(channelID)
	return ok
}

// Until returns when the silence on a channel ends.
func (q *QuietTable) Until(channelID snowflake.ID) (time.Time, bool) {
	return q.entries.Expiry(channelID)
}
