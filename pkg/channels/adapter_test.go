package channels

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/domain"
)

type fakeAdapter struct {
	channel domain.ChannelType

	mu       sync.Mutex
	sent     []domain.OutgoingMessage
	failures int
	started  bool
	stopped  bool
}

func (f *fakeAdapter) Type() domain.ChannelType { return f.channel }

func (f *fakeAdapter) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeAdapter) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAdapter) Send(_ context.Context, msg domain.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("platform hiccup")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeAdapter) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestManagerRoutesByChannelType(t *testing.T) {
	b := bus.New()
	t.Cleanup(b.Close)

	cli := &fakeAdapter{channel: domain.ChannelCLI}
	tg := &fakeAdapter{channel: domain.ChannelTelegram}
	NewManager(b, cli, tg)

	b.Publish(bus.EventSendMessage, domain.OutgoingMessage{
		Channel: domain.ChannelTelegram,
		Route:   domain.TelegramRoute{ChatID: 9},
		Content: "to telegram",
	})

	waitFor(t, func() bool { return tg.sentCount() == 1 })
	if cli.sentCount() != 0 {
		t.Errorf("message leaked to the wrong adapter")
	}
}

func TestManagerRetriesOnce(t *testing.T) {
	b := bus.New()
	t.Cleanup(b.Close)

	cli := &fakeAdapter{channel: domain.ChannelCLI, failures: 1}
	m := NewManager(b, cli)
	m.retryDelay = 10 * time.Millisecond

	b.Publish(bus.EventSendMessage, domain.OutgoingMessage{
		Channel: domain.ChannelCLI,
		Route:   domain.CLIRoute{},
		Content: "flaky delivery",
	})

	waitFor(t, func() bool { return cli.sentCount() == 1 })
}

func TestManagerGivesUpAfterRetry(t *testing.T) {
	b := bus.New()
	t.Cleanup(b.Close)

	cli := &fakeAdapter{channel: domain.ChannelCLI, failures: 2}
	m := NewManager(b, cli)
	m.retryDelay = 10 * time.Millisecond

	b.Publish(bus.EventSendMessage, domain.OutgoingMessage{
		Channel: domain.ChannelCLI,
		Route:   domain.CLIRoute{},
		Content: "doomed",
	})

	// Both attempts fail; the message is dropped, not retried forever.
	time.Sleep(200 * time.Millisecond)
	if cli.sentCount() != 0 {
		t.Errorf("sent = %d, want 0", cli.sentCount())
	}
	cli.mu.Lock()
	remaining := cli.failures
	cli.mu.Unlock()
	if remaining != 0 {
		t.Errorf("expected exactly two attempts, %d failure(s) unconsumed", remaining)
	}
}

func TestManagerStartStopAll(t *testing.T) {
	b := bus.New()
	t.Cleanup(b.Close)

	cli := &fakeAdapter{channel: domain.ChannelCLI}
	tg := &fakeAdapter{channel: domain.ChannelTelegram}
	m := NewManager(b, cli, tg)

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if !cli.started || !tg.started {
		t.Error("not all adapters started")
	}

	m.StopAll()
	if !cli.stopped || !tg.stopped {
		t.Error("not all adapters stopped")
	}
}
