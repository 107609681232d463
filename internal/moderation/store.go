package moderation

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/pkg/utils"
)

// Window is the rolling period after which a user's record resets.
const Window = 24 * time.Hour

// Record is a user's violation state within the current window.
type Record struct {
	Points      int
	Stage       Stage
	WindowStart time.Time
}

type echoKey struct {
	userID    snowflake.ID
	channelID snowflake.ID
}

// Store keeps violation records, the echo throttle and delayed release timers.
// It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	records map[snowflake.ID]*Record
	timers  map[snowflake.ID]*time.Timer
	echoes  *utils.TTLMap[echoKey, struct{}]
	now     utils.Clock
}

// NewStore creates a store with the given echo throttle TTL.
func NewStore(echoTTL time.Duration, now utils.Clock) *Store {
	if now == nil {
		now = time.Now
	}

	return &Store{
		records: make(map[snowflake.ID]*Record),
		timers:  make(map[snowflake.ID]*time.Timer),
		echoes:  utils.NewTTLMap[echoKey, struct{}](echoTTL, now),
		now:     now,
	}
}

// recordLocked returns the user's record, resetting it when the window has elapsed.
func (s *Store) recordLocked(userID snowflake.ID) *Record {
	now := s.now()

	rec, ok := s.records[userID]
	if !ok {
		rec = &Record{WindowStart: now}
		s.records[userID] = rec
		return rec
	}

	if now.Sub(rec.WindowStart) > Window {
		*rec = Record{WindowStart: now}
	}

	return rec
}

// Score adds points to a user and applies the resulting stage transition atomically.
// Concurrent calls for the same user observe each transition exactly once.
func (s *Store) Score(userID snowflake.ID, points int, policy Policy) (Record, Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(userID)
	rec.Points += max(points, 0)

	decision := Evaluate(rec.Points, rec.Stage, policy)
	if decision.Changed() {
		rec.Stage = decision.To
	}

	return *rec, decision
}

// Get returns a user's current record.
func (s *Store) Get(userID snowflake.ID) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return Record{}, false
	}
	if s.now().Sub(rec.WindowStart) > Window {
		return Record{WindowStart: s.now()}, true
	}
	return *rec, true
}

// Reset clears a user's record and cancels any pending release.
func (s *Store) Reset(userID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
		delete(s.timers, userID)
	}
}

// AllowEcho reports whether a censor echo may be posted for the user in the channel.
// An allowed echo starts the throttle window.
func (s *Store) AllowEcho(userID, channelID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := echoKey{userID: userID, channelID: channelID}
	if _, ok := s.echoes.Get(key); ok {
		return false
	}
	s.echoes.Set(key, struct{}{})
	return true
}

// ScheduleRelease runs release after the delay unless cancelled by Reset or CancelRelease.
// A previously scheduled release for the user is replaced.
func (s *Store) ScheduleRelease(userID snowflake.ID, after time.Duration, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(after, func() {
		s.mu.Lock()
		current, ok := s.timers[userID]
		if ok && current == timer {
			delete(s.timers, userID)
		}
		s.mu.Unlock()

		if ok && current == timer {
			release()
		}
	})
	s.timers[userID] = timer
}

// CancelRelease stops a pending release and reports whether one existed.
func (s *Store) CancelRelease(userID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[userID]
	if ok {
		timer.Stop()
		delete(s.timers, userID)
	}
	return ok
}

// PendingReleases returns the number of scheduled releases.
func (s *Store) PendingReleases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Sweep drops expired echo throttle entries.
func (s *Store) Sweep() int {
	return s.echoes.Sweep()
}

// Close cancels every pending release.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, userID)
	}
}
