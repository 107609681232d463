package event

import (
	"context"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Outcome is what a subscriber reports back after handling an envelope.
type Outcome struct {
	// Moderated hides the message from every later subscriber.
	Moderated bool
}

// Subscriber consumes inbound message envelopes.
type Subscriber interface {
	// Name identifies the subscriber in logs.
	Name() string
	// MarksModerated reports whether the subscriber may set the moderated flag.
	MarksModerated() bool
	// Handle processes the envelope.
	Handle(ctx context.Context, env Envelope) Outcome
}

// Registry runs its subscribers in registration order.
type Registry struct {
	subscribers []Subscriber
	logger      *zap.Logger
}

// NewRegistry creates a registry with a fixed subscriber list.
func NewRegistry(logger *zap.Logger, subscribers ...Subscriber) *Registry {
	return &Registry{
		subscribers: subscribers,
		logger:      logger.Named("event_registry"),
	}
}

// Subscribers returns the registered subscribers in order.
func (r *Registry) Subscribers() []Subscriber {
	return r.subscribers
}

// Publish hands the envelope to every subscriber and returns the final envelope.
// A panicking subscriber is logged with the event id and the chain continues.
func (r *Registry) Publish(ctx context.Context, env Envelope) Envelope {
	for _, sub := range r.subscribers {
		if ctx.Err() != nil {
			return env
		}

		var (
			outcome Outcome
			catcher panics.Catcher
		)

		catcher.Try(func() {
			outcome = sub.Handle(ctx, env)
		})

		if recovered := catcher.Recovered(); recovered != nil {
			r.logger.Error("Subscriber panicked",
				zap.String("event_id", env.ID.String()),
				zap.String("subscriber", sub.Name()),
				zap.Error(recovered.AsError()))
			continue
		}

		if outcome.Moderated && !env.Moderated {
			if !sub.MarksModerated() {
				r.logger.Warn("Ignoring moderated flag from subscriber",
					zap.String("event_id", env.ID.String()),
					zap.String("subscriber", sub.Name()))
				continue
			}
			env.Moderated = true
		}
	}

	return env
}
