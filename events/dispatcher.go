// Package events delivers domain events. Listeners registered on the Dispatcher
// run synchronously inside the per-game transaction; Publishers receive events
// only after that transaction has committed.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/repositories"
)

// Listener reacts to an event inside the transaction that produced it. A
// returned error aborts that transaction.
type Listener func(ctx context.Context, exec repositories.SQLExecutor, event models.DomainEvent) error

// Publisher is told about events that are already durable.
type Publisher interface {
	Publish(event models.DomainEvent)
}

type Dispatcher struct {
	mu         sync.RWMutex
	listeners  map[models.DomainEventType][]Listener
	publishers []Publisher
	logger     *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[models.DomainEventType][]Listener),
		logger:    logger,
	}
}

// Subscribe registers l for eventType. Listeners run in registration order.
func (d *Dispatcher) Subscribe(eventType models.DomainEventType, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], l)
}

func (d *Dispatcher) AddPublisher(p Publisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publishers = append(d.publishers, p)
}

// Dispatch runs every listener of the event type and stops at the first error.
func (d *Dispatcher) Dispatch(ctx context.Context, exec repositories.SQLExecutor, event models.DomainEvent) error {
	d.mu.RLock()
	listeners := d.listeners[event.Type]
	d.mu.RUnlock()

	for i, l := range listeners {
		if err := l(ctx, exec, event); err != nil {
			return fmt.Errorf("listener %d for %s failed: %w", i, event.Type, err)
		}
	}
	return nil
}

// Publish forwards committed events to every publisher.
func (d *Dispatcher) Publish(committed ...models.DomainEvent) {
	d.mu.RLock()
	publishers := d.publishers
	d.mu.RUnlock()

	for _, e := range committed {
		d.logger.Debug("domain event committed",
			slog.String("type", string(e.Type)),
			slog.Int("game_id", e.GameID),
			slog.String("competition_id", e.CompetitionID))
		for _, p := range publishers {
			p.Publish(e)
		}
	}
}

// Recorder collects events during one unit of work so they can be published
// once it commits.
type Recorder struct {
	dispatcher *Dispatcher
	events     []models.DomainEvent
}

func (d *Dispatcher) NewRecorder() *Recorder {
	return &Recorder{dispatcher: d}
}

// Emit dispatches the event to in-transaction listeners and keeps it for publishing.
func (r *Recorder) Emit(ctx context.Context, exec repositories.SQLExecutor, event models.DomainEvent) error {
	if err := r.dispatcher.Dispatch(ctx, exec, event); err != nil {
		return err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []models.DomainEvent {
	return append([]models.DomainEvent(nil), r.events...)
}

// Flush publishes the recorded events and forgets them.
func (r *Recorder) Flush() {
	r.dispatcher.Publish(r.events...)
	r.events = nil
}

// Discard drops events of a rolled back unit of work.
func (r *Recorder) Discard() {
	r.events = nil
}
