package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPublishFansOutToAllHandlers(t *testing.T) {
	b := New()
	defer b.Close()

	var got atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		b.Subscribe(EventMessageReceived, func(e Event) {
			defer wg.Done()
			if e.Type != EventMessageReceived {
				t.Errorf("unexpected event type %s", e.Type)
			}
			got.Add(1)
		})
	}

	b.Publish(EventMessageReceived, "hello")
	wg.Wait()

	if got.Load() != 3 {
		t.Fatalf("expected 3 handler invocations, got %d", got.Load())
	}
}

func TestPublishDoesNotBlockOnSlowHandler(t *testing.T) {
	b := New()
	defer b.Close()

	release := make(chan struct{})
	b.Subscribe(EventSendMessage, func(Event) {
		<-release
	})

	done := make(chan struct{})
	go func() {
		b.Publish(EventSendMessage, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow handler")
	}
	close(release)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := New()

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	b.Subscribe(EventReminderTriggered, func(Event) {
		panic("boom")
	})
	b.Subscribe(EventReminderTriggered, func(Event) {
		defer wg.Done()
		ran.Store(true)
	})

	b.Publish(EventReminderTriggered, nil)
	wg.Wait()
	b.Close()

	if !ran.Load() {
		t.Fatal("sibling handler did not run after a panic")
	}
}

func TestSubscribeAllReceivesEveryEvent(t *testing.T) {
	b := New()

	var got atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)
	b.SubscribeAll(func(Event) {
		defer wg.Done()
		got.Add(1)
	})

	b.Publish(EventMessageReceived, nil)
	b.Publish(EventReminderSent, nil)
	wg.Wait()
	b.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2 events, got %d", got.Load())
	}
}

func TestClosedBusDropsEvents(t *testing.T) {
	b := New()

	var ran atomic.Bool
	b.Subscribe(EventMessageReceived, func(Event) {
		ran.Store(true)
	})
	b.Close()

	b.Publish(EventMessageReceived, nil)
	time.Sleep(20 * time.Millisecond)

	if ran.Load() {
		t.Fatal("handler ran after Close")
	}
}

func TestHandlerCount(t *testing.T) {
	b := New()
	defer b.Close()

	b.Subscribe(EventMessageReceived, func(Event) {})
	b.Subscribe(EventSendMessage, func(Event) {})
	b.SubscribeAll(func(Event) {})

	if got := b.HandlerCount(); got != 3 {
		t.Fatalf("expected 3 handlers, got %d", got)
	}
}
