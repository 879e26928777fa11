// Package broadcast delivers import progress events to interested parties:
// it persists every event, fans out to in-process subscribers (the SSE
// endpoint), and optionally publishes to Kafka for external consumers.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-importer/internal/observability"
	"github.com/jonathan/recipe-importer/internal/types"
)

// EventStore persists status events. *db.DB satisfies this.
type EventStore interface {
	InsertStatusEvent(ctx context.Context, event *types.StatusEvent) error
}

// Publisher pushes events to an external transport. *Producer satisfies this.
type Publisher interface {
	Publish(ctx context.Context, event types.StatusEvent) error
}

// Broadcaster is the single fanout point for import progress. Persistence
// failures are returned to the caller; subscriber and publisher delivery are
// best effort and never fail the pipeline action emitting the event.
type Broadcaster struct {
	store     EventStore
	publisher Publisher
	logger    *observability.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan types.StatusEvent]struct{}
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithPublisher attaches an external event publisher.
func WithPublisher(p Publisher) Option {
	return func(b *Broadcaster) { b.publisher = p }
}

// New returns a Broadcaster backed by the given event store.
func New(store EventStore, logger *observability.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		store:  store,
		logger: logger,
		subs:   make(map[uuid.UUID]map[chan types.StatusEvent]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Notify records and distributes a status event. The event ID and timestamp
// are filled in when absent.
func (b *Broadcaster) Notify(ctx context.Context, event types.StatusEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	if b.store != nil {
		if err := b.store.InsertStatusEvent(ctx, &event); err != nil {
			return err
		}
	}

	b.Broadcast(event)

	if b.publisher != nil {
		if err := b.publisher.Publish(ctx, event); err != nil {
			b.logger.Warnf("failed to publish status event for import %s: %v", event.ImportID, err)
		}
	}
	return nil
}

// Broadcast fans an already-persisted event out to in-process subscribers,
// without storing or re-publishing it. The API process uses this to relay
// events arriving from Kafka, where the worker that produced them already
// wrote the row.
func (b *Broadcaster) Broadcast(event types.StatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[event.ImportID] {
		select {
		case ch <- event:
		default:
			// Slow subscribers drop events rather than block the sender.
			b.logger.Warnf("dropping status event %s for slow subscriber on import %s", event.Status, event.ImportID)
		}
	}
}

// Subscribe registers for events on one import. The returned cancel func must
// be called when the subscriber goes away; it closes the channel.
func (b *Broadcaster) Subscribe(importID uuid.UUID) (<-chan types.StatusEvent, func()) {
	ch := make(chan types.StatusEvent, 16)

	b.mu.Lock()
	if b.subs[importID] == nil {
		b.subs[importID] = make(map[chan types.StatusEvent]struct{})
	}
	b.subs[importID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[importID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, importID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
