package testutil

import (
	"context"
	"sync"

	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/types"
)

// CaptureSink records every delivered event for assertions
type CaptureSink struct {
	mu     sync.Mutex
	events []*types.NotificationEvent
}

// NewCaptureSink creates a recording sink
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (s *CaptureSink) Name() string {
	return "capture"
}

func (s *CaptureSink) Deliver(ctx context.Context, event *types.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything delivered so far
func (s *CaptureSink) Events() []*types.NotificationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.NotificationEvent, len(s.events))
	copy(out, s.events)
	return out
}

// EventNames returns the delivered event names in order
func (s *CaptureSink) EventNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventName)
	}
	return out
}

// Clear drops all recorded events
func (s *CaptureSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// FailingSink always fails delivery
type FailingSink struct{}

func (FailingSink) Name() string {
	return "failing"
}

func (FailingSink) Deliver(ctx context.Context, event *types.NotificationEvent) error {
	return ierr.NewError("sink unavailable").
		WithHint("This sink always fails").
		Mark(ierr.ErrSystem)
}

// PanickingSink always panics during delivery
type PanickingSink struct{}

func (PanickingSink) Name() string {
	return "panicking"
}

func (PanickingSink) Deliver(ctx context.Context, event *types.NotificationEvent) error {
	panic("sink exploded")
}
