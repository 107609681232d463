package ticket

import (
	"errors"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/pkg/utils"
)

var (
	// ErrSessionClosed is returned when mutating a closed ticket.
	ErrSessionClosed = errors.New("ticket is already closed")
	// ErrNoSession is returned when a channel has no ticket session.
	ErrNoSession = errors.New("no ticket session in channel")
	// ErrSessionExists is returned when a channel already has a session.
	ErrSessionExists = errors.New("ticket session already exists")
	// ErrCooldown is returned when a member opens tickets too quickly.
	ErrCooldown = errors.New("ticket open cooldown active")
)

// closedRetention is how long a closed channel keeps answering ErrSessionClosed.
const closedRetention = 24 * time.Hour

// Store holds the open ticket sessions keyed by thread id.
// It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	sessions  map[snowflake.ID]*Session
	closed    *utils.TTLMap[snowflake.ID, struct{}]
	cooldowns *utils.TTLMap[snowflake.ID, struct{}]
	now       utils.Clock
}

// NewStore creates an empty store with the per-member open cooldown.
func NewStore(cooldown time.Duration, now utils.Clock) *Store {
	if now == nil {
		now = time.Now
	}

	return &Store{
		sessions:  make(map[snowflake.ID]*Session),
		closed:    utils.NewTTLMap[snowflake.ID, struct{}](closedRetention, now),
		cooldowns: utils.NewTTLMap[snowflake.ID, struct{}](cooldown, now),
		now:       now,
	}
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// TryOpen starts the member's cooldown or returns ErrCooldown if it is still running.
func (s *Store) TryOpen(userID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cooldowns.Get(userID); ok {
		return ErrCooldown
	}
	s.cooldowns.Set(userID, struct{}{})
	return nil
}

// CooldownUntil returns when the member may open another ticket.
func (s *Store) CooldownUntil(userID snowflake.ID) (time.Time, bool) {
	return s.cooldowns.Expiry(userID)
}

// Create adds a new session.
func (s *Store) Create(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ChannelID]; ok {
		return ErrSessionExists
	}

	now := s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = now
	}

	stored := session.clone()
	s.sessions[session.ChannelID] = &stored
	s.closed.Delete(session.ChannelID)
	return nil
}

// Get returns a copy of the session in the channel.
func (s *Store) Get(channelID snowflake.ID) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[channelID]
	if !ok {
		return Session{}, false
	}
	return session.clone(), true
}

// Update applies fn to the session atomically and returns the updated copy.
// Closed sessions are immutable.
func (s *Store) Update(channelID snowflake.ID, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.lookupLocked(channelID)
	if err != nil {
		return Session{}, err
	}

	if err := fn(session); err != nil {
		return session.clone(), err
	}
	return session.clone(), nil
}

// MarkClosed moves the session to closed and returns its final copy.
func (s *Store) MarkClosed(channelID snowflake.ID) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.lookupLocked(channelID)
	if err != nil {
		return Session{}, err
	}

	session.Stage = StageClosed
	return session.clone(), nil
}

// Remove drops a session, remembering closed ones so later mutations are refused.
func (s *Store) Remove(channelID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[channelID]; ok && session.Stage == StageClosed {
		s.closed.Set(channelID, struct{}{})
	}
	delete(s.sessions, channelID)
}

func (s *Store) lookupLocked(channelID snowflake.ID) (*Session, error) {
	session, ok := s.sessions[channelID]
	if !ok {
		if _, wasClosed := s.closed.Get(channelID); wasClosed {
			return nil, ErrSessionClosed
		}
		return nil, ErrNoSession
	}
	if session.Stage == StageClosed {
		return nil, ErrSessionClosed
	}
	return session, nil
}

// Idle returns copies of sessions inactive for longer than after.
func (s *Store) Idle(after time.Duration) []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var idle []Session
	for _, session := range s.sessions {
		if session.Stage != StageClosed && now.Sub(session.LastActivityAt) > after {
			idle = append(idle, session.clone())
		}
	}
	return idle
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// HasSession reports whether the channel has an open session.
func (s *Store) HasSession(channelID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[channelID]
	return ok && session.Stage != StageClosed
}

// TicketKind reports the kind of the session in the channel.
func (s *Store) TicketKind(channelID snowflake.ID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[channelID]
	if !ok {
		return "", false
	}
	return string(session.Kind), true
}
