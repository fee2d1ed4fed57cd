package testutil

import (
	"context"
	"sync"

	"github.com/menumate/menumate/internal/domain/webhookevent"
	ierr "github.com/menumate/menumate/internal/errors"
)

// InMemoryWebhookEventStore implements webhookevent.Repository. MarkProcessed
// is conditional on the event id being unseen, matching the postgres unique
// constraint.
type InMemoryWebhookEventStore struct {
	mu     sync.Mutex
	events map[string]*webhookevent.ProcessedEvent
}

// NewInMemoryWebhookEventStore creates a new in-memory dedup store
func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		events: make(map[string]*webhookevent.ProcessedEvent),
	}
}

func (s *InMemoryWebhookEventStore) MarkProcessed(ctx context.Context, event *webhookevent.ProcessedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.EventID]; exists {
		return ierr.NewError("event already processed").
			WithHintf("Event %s is already marked processed", event.EventID).
			Mark(ierr.ErrAlreadyExists)
	}
	cp := *event
	s.events[event.EventID] = &cp
	return nil
}

func (s *InMemoryWebhookEventStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.events[eventID]
	return exists, nil
}

func (s *InMemoryWebhookEventStore) Get(ctx context.Context, eventID string) (*webhookevent.ProcessedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, ierr.NewError("processed event not found").
			WithHintf("Event %s has no processed marker", eventID).
			Mark(ierr.ErrNotFound)
	}
	cp := *event
	return &cp, nil
}

// Clear removes all processed markers
func (s *InMemoryWebhookEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]*webhookevent.ProcessedEvent)
}
