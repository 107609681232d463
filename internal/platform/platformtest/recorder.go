// Package platformtest provides an in-memory platform.Platform for tests.
package platformtest

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/internal/platform"
)

// Call is a single recorded platform operation.
type Call struct {
	Op        string
	ChannelID snowflake.ID
	MessageID snowflake.ID
	GuildID   snowflake.ID
	UserID    snowflake.ID
	RoleID    snowflake.ID
	Name      string
	Content   string
	Message   platform.Message
	As        platform.Impersonation
	Until     *time.Time
	Reason    string
}

// Recorder records every call and returns configured errors per operation.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	errors map[string]error
	nextID snowflake.ID
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{
		errors: make(map[string]error),
		nextID: 1000,
	}
}

// FailOn makes every call of op return err. A nil err clears the failure.
func (r *Recorder) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		delete(r.errors, op)
		return
	}
	r.errors[op] = err
}

// Calls returns a copy of all recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsOf returns the recorded calls of a single operation.
func (r *Recorder) CallsOf(op string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) record(c Call) (snowflake.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, c)
	if err := r.errors[c.Op]; err != nil {
		return 0, err
	}
	r.nextID++
	return r.nextID, nil
}

func (r *Recorder) Send(_ context.Context, channelID snowflake.ID, msg platform.Message) (snowflake.ID, error) {
	return r.record(Call{Op: "send", ChannelID: channelID, Message: msg, Content: msg.Content})
}

func (r *Recorder) Edit(_ context.Context, channelID, messageID snowflake.ID, content string) error {
	_, err := r.record(Call{Op: "edit", ChannelID: channelID, MessageID: messageID, Content: content})
	return err
}

func (r *Recorder) Delete(_ context.Context, channelID, messageID snowflake.ID) error {
	_, err := r.record(Call{Op: "delete", ChannelID: channelID, MessageID: messageID})
	return err
}

func (r *Recorder) SendAs(
	_ context.Context, channelID snowflake.ID, webhookName string, as platform.Impersonation, content string,
) error {
	_, err := r.record(Call{Op: "send_as", ChannelID: channelID, Name: webhookName, As: as, Content: content})
	return err
}

func (r *Recorder) CreatePrivateThread(_ context.Context, parentID snowflake.ID, name string) (snowflake.ID, error) {
	return r.record(Call{Op: "create_thread", ChannelID: parentID, Name: name})
}

func (r *Recorder) AddThreadMember(_ context.Context, threadID, userID snowflake.ID) error {
	_, err := r.record(Call{Op: "add_thread_member", ChannelID: threadID, UserID: userID})
	return err
}

func (r *Recorder) ArchiveThread(_ context.Context, threadID snowflake.ID) error {
	_, err := r.record(Call{Op: "archive_thread", ChannelID: threadID})
	return err
}

func (r *Recorder) AddRole(_ context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	_, err := r.record(Call{Op: "add_role", GuildID: guildID, UserID: userID, RoleID: roleID, Reason: reason})
	return err
}

func (r *Recorder) RemoveRole(_ context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	_, err := r.record(Call{Op: "remove_role", GuildID: guildID, UserID: userID, RoleID: roleID, Reason: reason})
	return err
}

func (r *Recorder) CreateRole(_ context.Context, guildID snowflake.ID, name string) (snowflake.ID, error) {
	return r.record(Call{Op: "create_role", GuildID: guildID, Name: name})
}

func (r *Recorder) Timeout(
	_ context.Context, guildID, userID snowflake.ID, until *time.Time, reason string,
) error {
	_, err := r.record(Call{Op: "timeout", GuildID: guildID, UserID: userID, Until: until, Reason: reason})
	return err
}

var _ platform.Platform = (*Recorder)(nil)
