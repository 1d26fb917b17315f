package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a fire-and-forget in-process notification. The moderation
// pipeline publishes one per committed submission; observers (metrics,
// future audit sinks) subscribe by type.
type Event interface {
	ID() string
	Type() string
	Timestamp() time.Time
	Payload() any
}

// BaseEvent is the standard Event implementation.
type BaseEvent struct {
	EventID        string
	EventType      string
	EventTimestamp time.Time
	EventPayload   any
}

func (e *BaseEvent) ID() string           { return e.EventID }
func (e *BaseEvent) Type() string         { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time { return e.EventTimestamp }
func (e *BaseEvent) Payload() any         { return e.EventPayload }

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(eventType string, payload any) *BaseEvent {
	return &BaseEvent{
		EventID:        uuid.NewString(),
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}
}

// Handler consumes one event. Handlers must not block for long; the bus
// runs them on its dispatch goroutine pool per event.
type Handler func(ctx context.Context, event Event)

// Bus is the in-process event bus interface.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType string, handler Handler)
	Close()
}

// InMemoryBus is a buffered, non-blocking in-memory bus. Publish never
// blocks the caller. When the buffer is full the event is dropped with a
// warning, which is acceptable for observability events.
type InMemoryBus struct {
	mu        sync.RWMutex
	handlers  map[string][]Handler
	eventChan chan eventWrapper
	closed    bool
	logger    *zap.Logger
	wg        sync.WaitGroup
}

type eventWrapper struct {
	ctx   context.Context
	event Event
}

// NewInMemoryBus creates and starts the bus.
func NewInMemoryBus(logger *zap.Logger, bufferSize int) *InMemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := &InMemoryBus{
		handlers:  make(map[string][]Handler),
		eventChan: make(chan eventWrapper, bufferSize),
		logger:    logger,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Publish enqueues an event without blocking.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	b.mu.RUnlock()

	select {
	case b.eventChan <- eventWrapper{ctx: ctx, event: event}:
		b.logger.Debug("Event published", zap.String("type", event.Type()))
	default:
		b.logger.Warn("Event buffer full, dropping event", zap.String("type", event.Type()))
	}
}

// Subscribe registers a handler for an event type. "*" matches all types.
func (b *InMemoryBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Close stops the bus after draining buffered events.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.eventChan)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("Event bus closed")
}

func (b *InMemoryBus) dispatch() {
	defer b.wg.Done()

	for wrapper := range b.eventChan {
		b.dispatchEvent(wrapper.ctx, wrapper.event)
	}
}

func (b *InMemoryBus) dispatchEvent(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0)
	if h, ok := b.handlers[event.Type()]; ok {
		handlers = append(handlers, h...)
	}
	if h, ok := b.handlers["*"]; ok {
		handlers = append(handlers, h...)
	}
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Event handler panicked",
						zap.String("type", event.Type()),
						zap.Any("panic", r),
					)
				}
			}()
			h(ctx, event)
		}(handler)
	}
	wg.Wait()
}

// SinkAdapter exposes the bus through the domain's EventSink shape so the
// pipeline never imports this package's types directly.
type SinkAdapter struct {
	bus Bus
}

// NewSinkAdapter wraps a bus as an event sink.
func NewSinkAdapter(bus Bus) *SinkAdapter {
	return &SinkAdapter{bus: bus}
}

// Publish wraps the payload in a BaseEvent and enqueues it.
func (s *SinkAdapter) Publish(ctx context.Context, eventType string, payload any) {
	s.bus.Publish(ctx, NewEvent(eventType, payload))
}
