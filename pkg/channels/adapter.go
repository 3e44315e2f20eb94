// Package channels holds the platform adapters and the manager that routes
// outbound messages to them. Adapters normalize platform events into
// domain.IncomingMessage and publish them; the core never sees wire formats.
package channels

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
)

const component = "channels"

// sendTimeout bounds one outbound platform call.
const sendTimeout = 30 * time.Second

// Adapter is one platform connection. Start must not block: it spawns the
// adapter's background work and returns once the connection is set up.
type Adapter interface {
	Type() domain.ChannelType
	Start(ctx context.Context) error
	Send(ctx context.Context, msg domain.OutgoingMessage) error
	Stop()
}

// Manager owns the adapter set and subscribes to message.send. Each outbound
// message goes to exactly one adapter, keyed by channel type. A failed send
// is retried once after a short delay, then dropped with an error log; the
// orchestrator never blocks on delivery.
type Manager struct {
	adapters   map[domain.ChannelType]Adapter
	retryDelay time.Duration

	mu      sync.Mutex
	started []Adapter
}

// NewManager registers the adapters and the message.send subscription.
func NewManager(b *bus.Bus, adapters ...Adapter) *Manager {
	m := &Manager{
		adapters:   make(map[domain.ChannelType]Adapter, len(adapters)),
		retryDelay: 2 * time.Second,
	}
	for _, a := range adapters {
		m.adapters[a.Type()] = a
	}
	b.Subscribe(bus.EventSendMessage, m.onSend)
	return m
}

// StartAll starts every adapter. The first failure stops and tears down the
// ones already started.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, a := range m.adapters {
		if err := a.Start(ctx); err != nil {
			m.StopAll()
			return fmt.Errorf("start %s adapter: %w", a.Type(), err)
		}
		m.mu.Lock()
		m.started = append(m.started, a)
		m.mu.Unlock()
		logger.InfoCF(component, "adapter started", map[string]any{"channel": string(a.Type())})
	}
	return nil
}

// StopAll stops every started adapter.
func (m *Manager) StopAll() {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()
	for _, a := range started {
		a.Stop()
	}
}

func (m *Manager) onSend(e bus.Event) {
	out, ok := e.Payload.(domain.OutgoingMessage)
	if !ok {
		logger.WarnCF(component, "unexpected send_message payload",
			map[string]any{"type": fmt.Sprintf("%T", e.Payload)})
		return
	}

	adapter, ok := m.adapters[out.Channel]
	if !ok {
		logger.ErrorCF(component, "no adapter for channel",
			map[string]any{"channel": string(out.Channel)})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	err := adapter.Send(ctx, out)
	if err == nil {
		return
	}
	logger.ErrorCF(component, "send failed, retrying once",
		map[string]any{"channel": string(out.Channel), "error": err.Error()})

	time.Sleep(m.retryDelay)
	retryCtx, retryCancel := context.WithTimeout(context.Background(), sendTimeout)
	defer retryCancel()
	if err := adapter.Send(retryCtx, out); err != nil {
		logger.ErrorCF(component, "retry failed, dropping message",
			map[string]any{"channel": string(out.Channel), "error": err.Error()})
	}
}
