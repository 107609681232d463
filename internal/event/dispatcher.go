package event

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Dispatcher delivers envelopes to a registry with one FIFO lane per channel.
// Lanes of different channels run concurrently.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger

	mu     sync.Mutex
	lanes  map[snowflake.ID][]Envelope
	closed bool
	wg     conc.WaitGroup
}

// NewDispatcher creates a dispatcher publishing to the registry.
func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger.Named("event_dispatcher"),
		lanes:    make(map[snowflake.ID][]Envelope),
	}
}

// Submit queues an envelope on its channel lane. It returns false once the dispatcher is closed.
func (d *Dispatcher) Submit(ctx context.Context, env Envelope) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	channelID := env.Message.ChannelID
	queue, running := d.lanes[channelID]
	d.lanes[channelID] = append(queue, env)

	if !running {
		d.wg.Go(func() {
			d.drain(context.WithoutCancel(ctx), channelID)
		})
	}

	return true
}

// drain processes a lane until it is empty, then removes it.
func (d *Dispatcher) drain(ctx context.Context, channelID snowflake.ID) {
	for {
		d.mu.Lock()
		queue := d.lanes[channelID]
		if len(queue) == 0 {
			delete(d.lanes, channelID)
			d.mu.Unlock()
			return
		}
		env := queue[0]
		d.lanes[channelID] = queue[1:]
		d.mu.Unlock()

		d.registry.Publish(ctx, env)
	}
}

// Pending returns the number of queued envelopes across all lanes.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := 0
	for _, queue := range d.lanes {
		total += len(queue)
	}
	return total
}

// Close stops accepting envelopes and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Debug("Dispatcher drained")
}
