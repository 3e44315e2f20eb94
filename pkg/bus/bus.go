// Package bus provides the in-process event bus that decouples channel
// adapters, persistence and the orchestrator. Publish is fire-and-forget:
// handlers are scheduled on their own goroutines, so a slow or panicking
// handler never stalls the publisher or its sibling handlers.
package bus

import (
	"sync"
	"time"

	"github.com/amayadev/amaya/pkg/logger"
)

// EventType classifies events for routing. The set is closed: every event
// kind flowing through the system is declared here.
type EventType string

const (
	EventMessageReceived   EventType = "io.message_received"
	EventSendMessage       EventType = "io.send_message"
	EventReminderCreated   EventType = "reminder.created"
	EventReminderTriggered EventType = "reminder.triggered"
	EventReminderSent      EventType = "reminder.sent"
	EventSystemShutdown    EventType = "system.shutdown"
)

// Event is one published occurrence. Payload is the event-kind-specific
// value (domain.IncomingMessage, domain.OutgoingMessage, domain.Reminder...).
type Event struct {
	Type       EventType
	OccurredAt time.Time
	Payload    any
}

// Handler processes one event. Handlers run on their own goroutine and
// should be idempotent; the bus itself makes no delivery guarantee.
type Handler func(Event)

// Bus is the in-process dispatcher. Multiple handlers may subscribe to the
// same event type; execution order across handlers is unspecified.
type Bus struct {
	handlers    map[EventType][]Handler
	allHandlers []Handler
	mu          sync.RWMutex
	closed      bool
	wg          sync.WaitGroup
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Publish dispatches the payload to all handlers of the given type without
// waiting for them. Returns immediately.
func (b *Bus) Publish(eventType EventType, payload any) {
	event := Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, handler := range b.handlers[eventType] {
		b.dispatch(handler, event)
	}
	for _, handler := range b.allHandlers {
		b.dispatch(handler, event)
	}
}

// dispatch runs one handler on its own goroutine, isolating panics so one
// failing handler cannot take down the others.
func (b *Bus) dispatch(handler Handler, event Event) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorCF("bus", "event handler panicked",
					map[string]any{"event": string(event.Type), "panic": r})
			}
		}()
		handler(event)
	}()
}

// HandlerCount returns the total number of registered handlers (diagnostics).
func (b *Bus) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	count := len(b.allHandlers)
	for _, handlers := range b.handlers {
		count += len(handlers)
	}
	return count
}

// Close stops dispatch of new events and waits for in-flight handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
