// Package agent implements the Amaya orchestrator: a single-goroutine
// planning and delivery loop. New input interrupts the in-flight plan,
// snapshots what was about to be said, and replans from scratch.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
	"github.com/amayadev/amaya/pkg/metrics"
	"github.com/amayadev/amaya/pkg/providers"
	"github.com/amayadev/amaya/pkg/segment"
)

const component = "agent"

// storeTimeout bounds persistence calls made from bus handlers.
const storeTimeout = 5 * time.Second

// Deps are the orchestrator's collaborators.
type Deps struct {
	Bus       *bus.Bus
	Messages  domain.MessageStore
	Reminders domain.ReminderStore
	Memory    domain.MemoryStore
	Generator providers.Generator
	Metrics   *metrics.Runtime

	// PrimaryRoute is where all planned output is delivered.
	PrimaryRoute domain.Route
	// Timezone renders times in planning context.
	Timezone     string
	HistoryLimit int
	// Tick is the delivery cadence. One queued delay unit == one tick.
	Tick time.Duration
}

// ---------------------------------------------------------------------------
// Think task plumbing
// ---------------------------------------------------------------------------

type thinkOutcome int

const (
	thinkCompleted thinkOutcome = iota
	thinkCancelled
	thinkFailed
)

// thinkResult is what one planning task reports back to the loop, tagged
// with the generation that started it so stale results can be discarded.
type thinkResult struct {
	generation uint64
	outcome    thinkOutcome
	text       string
	err        error
}

type thinkTask struct {
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// pendingTrigger carries reminder-driven planning hints to the next think.
type pendingTrigger struct {
	instruction  string
	worldContext string
}

// ---------------------------------------------------------------------------
// Amaya
// ---------------------------------------------------------------------------

// Amaya owns the plan being delivered and the at-most-one think task.
// pending and buffer are touched only by the Run goroutine.
type Amaya struct {
	deps Deps

	notify  chan struct{}
	results chan thinkResult

	pending []segment.Segment
	buffer  []segment.Segment
	think   *thinkTask

	generation uint64

	// trigger hints are written from bus handlers, consumed by the loop.
	triggerMu sync.Mutex
	trigger   pendingTrigger
}

// New builds the orchestrator and registers its bus subscriptions.
func New(deps Deps) *Amaya {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = 30
	}
	if deps.Tick <= 0 {
		deps.Tick = time.Second
	}
	a := &Amaya{
		deps:    deps,
		notify:  make(chan struct{}, 1),
		results: make(chan thinkResult, 1),
	}
	deps.Bus.Subscribe(bus.EventMessageReceived, a.onMessageReceived)
	deps.Bus.Subscribe(bus.EventReminderTriggered, a.onReminderTriggered)
	return a
}

// NotifyNewMessage signals that new input arrived. Level-triggered: a burst
// of notifications coalesces into one replan.
func (a *Amaya) NotifyNewMessage() {
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is cancelled. Must be called exactly once.
func (a *Amaya) Run(ctx context.Context) {
	logger.InfoC(component, "orchestrator loop started")
	ticker := time.NewTicker(a.deps.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.stopThink()
			logger.InfoC(component, "orchestrator loop stopped")
			return
		case <-a.notify:
			a.replan(ctx)
		case res := <-a.results:
			a.applyResult(res)
		case <-ticker.C:
			a.deliverTick(ctx)
		}
	}
}

// replan is the interruption handshake: cancel and await the running think,
// snapshot the undelivered plan, start a fresh think.
func (a *Amaya) replan(ctx context.Context) {
	a.stopThink()

	if len(a.pending) > 0 {
		logger.InfoC(component, "replanning over an interrupted plan")
		a.buffer = append(a.buffer[:0:0], a.pending...)
		a.pending = nil
	} else {
		logger.InfoC(component, "planning a reply")
	}

	a.startThink(ctx)
}

// stopThink cancels the running think task, waits for its goroutine to exit
// and discards any stale result it managed to queue.
func (a *Amaya) stopThink() {
	if a.think == nil {
		return
	}
	a.think.cancel()
	<-a.think.done
	a.think = nil

	select {
	case res := <-a.results:
		logger.DebugCF(component, "discarded stale think result",
			map[string]any{"generation": res.generation})
	default:
	}
}

func (a *Amaya) startThink(ctx context.Context) {
	a.generation++

	a.triggerMu.Lock()
	trigger := a.trigger
	a.trigger = pendingTrigger{}
	a.triggerMu.Unlock()

	thinkCtx, cancel := context.WithCancel(ctx)
	task := &thinkTask{
		generation: a.generation,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	a.think = task

	bufferSnapshot := append([]segment.Segment(nil), a.buffer...)

	go func() {
		defer close(task.done)
		defer cancel()

		text, err := a.plan(thinkCtx, bufferSnapshot, trigger)
		res := thinkResult{generation: task.generation}
		switch {
		case err == nil:
			res.outcome = thinkCompleted
			res.text = text
		case domain.IsCancellation(err):
			res.outcome = thinkCancelled
		default:
			res.outcome = thinkFailed
			res.err = err
		}
		// Capacity one is always free: the loop drains the channel before
		// starting a new task, and only one task exists at a time.
		a.results <- res
	}()
}

// applyResult installs a completed plan. Stale generations are discarded so
// a cancelled task racing to completion can never deliver.
func (a *Amaya) applyResult(res thinkResult) {
	if res.generation != a.generation {
		logger.DebugCF(component, "ignoring stale think result",
			map[string]any{"generation": res.generation})
		return
	}
	a.think = nil

	switch res.outcome {
	case thinkCompleted:
		segments := segment.Split(res.text)
		a.pending = segments
		a.buffer = append([]segment.Segment(nil), segments...)
		logger.InfoCF(component, "plan ready",
			map[string]any{"segments": len(segments)})
	case thinkCancelled:
		// The interruption snapshot in buffer feeds the next plan.
		logger.InfoC(component, "think task cancelled")
	case thinkFailed:
		logger.ErrorCF(component, "plan generation failed",
			map[string]any{"error": res.err.Error()})
	}
}

// deliverTick sends the head segment once its delay has run down. Strictly
// in order, one segment per tick at most.
func (a *Amaya) deliverTick(ctx context.Context) {
	if len(a.pending) == 0 {
		return
	}
	if a.pending[0].DelaySeconds > 0 {
		a.pending[0].DelaySeconds--
		return
	}

	head := a.pending[0]
	a.pending = a.pending[1:]

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	msg := domain.NewMessage(a.deps.PrimaryRoute.Channel(), domain.RoleAmaya, head.Text)
	if err := a.deps.Messages.Append(storeCtx, msg); err != nil {
		logger.ErrorCF(component, "failed to persist outgoing message",
			map[string]any{"error": err.Error()})
	}

	a.deps.Bus.Publish(bus.EventSendMessage, domain.OutgoingMessage{
		Channel: a.deps.PrimaryRoute.Channel(),
		Route:   a.deps.PrimaryRoute,
		Content: head.Text,
	})
	a.deps.Metrics.RecordMessageOut()
}

// ---------------------------------------------------------------------------
// Bus handlers (run on bus goroutines)
// ---------------------------------------------------------------------------

func (a *Amaya) onMessageReceived(e bus.Event) {
	incoming, ok := e.Payload.(domain.IncomingMessage)
	if !ok {
		logger.WarnCF(component, "unexpected message_received payload",
			map[string]any{"type": fmt.Sprintf("%T", e.Payload)})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	msg := domain.NewMessage(incoming.Channel, domain.RoleUser, incoming.Content)
	if incoming.SenderID != "" {
		msg.Metadata.Set("sender_id", incoming.SenderID)
	}
	if err := a.deps.Messages.Append(ctx, msg); err != nil {
		logger.ErrorCF(component, "failed to persist incoming message",
			map[string]any{"error": err.Error()})
		return
	}

	a.deps.Metrics.RecordMessageIn()
	a.NotifyNewMessage()
}

func (a *Amaya) onReminderTriggered(e bus.Event) {
	reminder, ok := e.Payload.(domain.Reminder)
	if !ok {
		logger.WarnCF(component, "unexpected reminder_triggered payload",
			map[string]any{"type": fmt.Sprintf("%T", e.Payload)})
		return
	}
	logger.InfoCF(component, "reminder triggered",
		map[string]any{"reminder_id": reminder.ID, "title": reminder.Title})

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	world := fmt.Sprintf("Reminder %q (id %d) has just triggered.", reminder.Title, reminder.ID)
	msg := domain.NewMessage(a.deps.PrimaryRoute.Channel(), domain.RoleWorld, world)
	if err := a.deps.Messages.Append(ctx, msg); err != nil {
		logger.ErrorCF(component, "failed to persist reminder world message",
			map[string]any{"error": err.Error()})
	}

	// Recurring reminders stay pending so the poller can reschedule them;
	// only one-shot reminders advance to sent.
	if reminder.RecurCron == "" {
		if err := reminder.Transition(domain.ReminderSent); err != nil {
			logger.WarnCF(component, "reminder status transition rejected",
				map[string]any{"reminder_id": reminder.ID, "error": err.Error()})
		} else if err := a.deps.Reminders.Update(ctx, reminder); err != nil {
			logger.ErrorCF(component, "failed to mark reminder sent",
				map[string]any{"reminder_id": reminder.ID, "error": err.Error()})
		}
	}
	a.deps.Bus.Publish(bus.EventReminderSent, reminder)
	a.deps.Metrics.RecordReminderTriggered()

	a.triggerMu.Lock()
	a.trigger = pendingTrigger{instruction: reminder.Prompt, worldContext: world}
	a.triggerMu.Unlock()

	a.NotifyNewMessage()
}
