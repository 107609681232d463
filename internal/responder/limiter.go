package responder

import (
	"errors"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/pkg/utils"
)

var (
	// ErrHourlyCap is returned when a user spent their hourly assistant calls.
	ErrHourlyCap = errors.New("hourly assistant call cap reached")
	// ErrDebounced is returned when a user calls again within the debounce interval.
	ErrDebounced = errors.New("assistant call debounced")
)

// CallLimiter enforces a per-user hourly cap and a debounce between calls.
type CallLimiter struct {
	mu       sync.Mutex
	calls    map[snowflake.ID][]time.Time
	maxCalls int
	debounce time.Duration
	now      utils.Clock
}

// NewCallLimiter creates a limiter. A non-positive maxCalls disables the hourly cap.
func NewCallLimiter(maxCalls int, debounce time.Duration, now utils.Clock) *CallLimiter {
	if now == nil {
		now = time.Now
	}
	return &CallLimiter{
		calls:    make(map[snowflake.ID][]time.Time),
		maxCalls: maxCalls,
		debounce: debounce,
		now:      now,
	}
}

// Allow records a call for the user or returns why it is refused.
func (l *CallLimiter) Allow(userID snowflake.ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-time.Hour)

	recent := l.calls[userID][:0]
	for _, at := range l.calls[userID] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}

	if n := len(recent); n > 0 && l.debounce > 0 && now.Sub(recent[n-1]) < l.debounce {
		l.calls[userID] = recent
		return ErrDebounced
	}
	if l.maxCalls > 0 && len(recent) >= l.maxCalls {
		l.calls[userID] = recent
		return ErrHourlyCap
	}

	l.calls[userID] = append(recent, now)
	return nil
}

// Sweep drops users without calls in the last hour and returns how many were dropped.
func (l *CallLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-time.Hour)
	dropped := 0
	for userID, calls := range l.calls {
		if len(calls) == 0 || !calls[len(calls)-1].After(cutoff) {
			delete(l.calls, userID)
			dropped++
		}
	}
	return dropped
}

// Tracked returns the number of users with recorded calls.
func (l *CallLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.calls)
}
