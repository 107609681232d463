package client

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/robalyx/isero/pkg/utils"
)

// DefaultDailyTokenLimit is the default daily token budget.
const DefaultDailyTokenLimit = 20000

// TokenBudget is a process-wide daily token counter that resets on UTC date rollover.
// A limit of zero refuses every call.
type TokenBudget struct {
	mu    sync.Mutex
	limit int
	used  int
	day   string
	now   utils.Clock
}

// NewTokenBudget creates a budget with the given daily limit.
func NewTokenBudget(limit int, now utils.Clock) *TokenBudget {
	if now == nil {
		now = time.Now
	}
	return &TokenBudget{
		limit: max(limit, 0),
		day:   dayOf(now()),
		now:   now,
	}
}

func dayOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// rolloverLocked zeroes the counter when the UTC day changed.
func (b *TokenBudget) rolloverLocked() {
	if day := dayOf(b.now()); day != b.day {
		b.day = day
		b.used = 0
	}
}

// Allow returns ErrBudgetExceeded when no tokens remain today.
func (b *TokenBudget) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()
	if b.used >= b.limit {
		return ErrBudgetExceeded
	}
	return nil
}

// Add records spent tokens.
func (b *TokenBudget) Add(tokens int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()
	b.used += max(tokens, 0)
}

// Usage returns the accounting for the current day.
func (b *TokenBudget) Usage() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()
	return Usage{
		Used:      b.used,
		Limit:     b.limit,
		Remaining: max(b.limit-b.used, 0),
		Day:       b.day,
	}
}

// EstimateTokens approximates usage when the provider does not report it.
func EstimateTokens(system, user, output string) int {
	in := utf8.RuneCountInString(system) + utf8.RuneCountInString(user)
	return max(1, utf8.RuneCountInString(output)/4) + max(1, in/4)
}
