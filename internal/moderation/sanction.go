// Package moderation scores profanity hits per user and escalates them
// through warn, timeout and persistent mute stages.
package moderation

import (
	"errors"
	"fmt"
	"time"
)

// Stage is the disciplinary level of a user within a window.
type Stage int

const (
	StageClean Stage = iota
	StageWarned
	StageTimedOut
	StageMuted
)

// String returns the log name of the stage.
func (s Stage) String() string {
	switch s {
	case StageClean:
		return "clean"
	case StageWarned:
		return "warned"
	case StageTimedOut:
		return "timed_out"
	case StageMuted:
		return "muted"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Action is the platform side effect of a stage transition.
type Action int

const (
	ActionNone Action = iota
	ActionWarn
	ActionTimeout
	ActionMute
)

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("invalid sanction policy")

// Policy holds the stage thresholds and timeouts.
type Policy struct {
	Lvl1Threshold int
	Lvl2Threshold int
	Lvl3Threshold int
	// TimeoutLvl2 is the timeout applied when entering stage 2.
	TimeoutLvl2 time.Duration
	// TimeoutLvl3 is the timeout applied when entering stage 3. Zero means a persistent mute.
	TimeoutLvl3 time.Duration
}

// DefaultPolicy returns the 5/8/11 thresholds with a 40 minute stage 2 timeout and a persistent stage 3.
func DefaultPolicy() Policy {
	return Policy{
		Lvl1Threshold: 5,
		Lvl2Threshold: 8,
		Lvl3Threshold: 11,
		TimeoutLvl2:   40 * time.Minute,
		TimeoutLvl3:   0,
	}
}

// Validate checks that thresholds increase strictly and timeouts are consistent.
func (p Policy) Validate() error {
	if p.Lvl1Threshold <= 0 {
		return fmt.Errorf("%w: level 1 threshold must be positive", ErrInvalidPolicy)
	}
	if p.Lvl2Threshold <= p.Lvl1Threshold || p.Lvl3Threshold <= p.Lvl2Threshold {
		return fmt.Errorf("%w: thresholds must be strictly increasing (%d, %d, %d)",
			ErrInvalidPolicy, p.Lvl1Threshold, p.Lvl2Threshold, p.Lvl3Threshold)
	}
	if p.TimeoutLvl2 <= 0 {
		return fmt.Errorf("%w: level 2 timeout must be positive", ErrInvalidPolicy)
	}
	if p.TimeoutLvl3 < 0 || (p.TimeoutLvl3 > 0 && p.TimeoutLvl3 <= p.TimeoutLvl2) {
		return fmt.Errorf("%w: level 3 timeout must be zero or longer than level 2", ErrInvalidPolicy)
	}
	return nil
}

// Decision is the outcome of evaluating a user's points.
type Decision struct {
	From     Stage
	To       Stage
	Action   Action
	Duration time.Duration
}

// Changed reports whether the decision advances the stage.
func (d Decision) Changed() bool {
	return d.To > d.From
}

// Evaluate maps accumulated points to a stage transition.
// Stages never regress; when several stages are crossed at once only the highest applies.
func Evaluate(points int, current Stage, p Policy) Decision {
	target := StageClean
	switch {
	case points >= p.Lvl3Threshold:
		target = StageMuted
	case points >= p.Lvl2Threshold:
		target = StageTimedOut
	case points >= p.Lvl1Threshold:
		target = StageWarned
	}

	if target <= current {
		return Decision{From: current, To: current, Action: ActionNone}
	}

	d := Decision{From: current, To: target}
	switch target {
	case StageWarned:
		d.Action = ActionWarn
	case StageTimedOut:
		d.Action = ActionTimeout
		d.Duration = p.TimeoutLvl2
	case StageMuted:
		if p.TimeoutLvl3 > 0 {
			d.Action = ActionTimeout
			d.Duration = p.TimeoutLvl3
		} else {
			d.Action = ActionMute
		}
	}

	return d
}
