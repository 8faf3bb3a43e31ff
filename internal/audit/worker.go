package audit

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryStore retains events in process for single-node deployments and
// tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByUser returns the recorded events for one user in emission order.
func (s *MemoryStore) ListByUser(_ context.Context, userID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, event := range s.events {
		if event.UserID == userID {
			out = append(out, event)
		}
	}
	return out
}

// Store is the sink the channel worker drains into.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// ChannelPublisher decouples emitters from persistence through a buffered
// channel. When the buffer is full the event is dropped rather than blocking
// the verification path.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{inbox: make(chan Event, buffer), logger: logger}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) {
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event", "kind", event.Kind)
	}
}

// Inbox exposes the receive side for the worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

// Worker consumes audit events from a channel and persists them. It keeps
// background processing testable without wiring a broker.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
