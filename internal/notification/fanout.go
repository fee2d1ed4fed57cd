package notification

import (
	"context"

	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/types"
	"github.com/sourcegraph/conc"
)

// Sink receives lifecycle events. Implementations must tolerate duplicate
// delivery, the fan-out is at-most-once per sink per publish but callers may
// republish after partial failures elsewhere.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event *types.NotificationEvent) error
}

// Fanout broadcasts lifecycle events to all registered sinks concurrently.
// Delivery is best effort: one sink failing or panicking never affects the
// others and never fails the operation that emitted the event.
type Fanout struct {
	sinks  []Sink
	logger *logger.Logger
}

// NewFanout creates a fan-out over the given sinks. Zero sinks is valid,
// Publish becomes a no-op.
func NewFanout(logger *logger.Logger, sinks ...Sink) *Fanout {
	return &Fanout{
		sinks:  sinks,
		logger: logger,
	}
}

// Publish delivers the event to every sink and returns once all attempts
// finished. Failures are logged, never returned.
func (f *Fanout) Publish(ctx context.Context, event *types.NotificationEvent) {
	if event == nil || len(f.sinks) == 0 {
		return
	}

	var wg conc.WaitGroup
	for _, sink := range f.sinks {
		sink := sink
		wg.Go(func() {
			f.deliver(ctx, sink, event)
		})
	}
	wg.Wait()
}

func (f *Fanout) deliver(ctx context.Context, sink Sink, event *types.NotificationEvent) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Errorw("notification sink panicked",
				"sink", sink.Name(),
				"event_id", event.ID,
				"event_name", event.EventName,
				"panic", r,
			)
		}
	}()

	if err := sink.Deliver(ctx, event); err != nil {
		f.logger.Errorw("notification delivery failed",
			"error", err,
			"sink", sink.Name(),
			"event_id", event.ID,
			"event_name", event.EventName,
		)
		return
	}

	f.logger.Debugw("notification delivered",
		"sink", sink.Name(),
		"event_id", event.ID,
		"event_name", event.EventName,
	)
}
