// Package reminder runs the time-driven poller that fires due reminders.
package reminder

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
)

const component = "reminder"

// Poller scans for due reminders on a fixed interval and publishes
// reminder.triggered for each. One-shot reminders advance to triggered with
// their next action cleared, so a later cycle cannot re-fire them. Recurring
// reminders stay pending and get rescheduled to their next cron tick.
type Poller struct {
	store    domain.ReminderStore
	bus      *bus.Bus
	interval time.Duration
	cron     *gronx.Gronx
}

// New builds a poller. interval <= 0 falls back to 25s, the cadence the
// minute-precision schedule comfortably tolerates.
func New(store domain.ReminderStore, b *bus.Bus, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 25 * time.Second
	}
	return &Poller{
		store:    store,
		bus:      b,
		interval: interval,
		cron:     gronx.New(),
	}
}

// Run drives the poll loop until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	logger.InfoCF(component, "poller started",
		map[string]any{"interval": p.interval.String()})
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.cycle(ctx)
		select {
		case <-ctx.Done():
			logger.InfoC(component, "poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// cycle triggers everything due right now. Storage errors are logged and the
// loop carries on; the next cycle retries naturally.
func (p *Poller) cycle(ctx context.Context) {
	due, err := p.store.Due(ctx, domain.NowUTCMinute())
	if err != nil {
		if !domain.IsCancellation(err) {
			logger.ErrorCF(component, "due query failed",
				map[string]any{"error": err.Error()})
		}
		return
	}

	for _, r := range due {
		if err := p.trigger(ctx, r); err != nil {
			logger.ErrorCF(component, "failed to trigger reminder",
				map[string]any{"reminder_id": r.ID, "error": err.Error()})
		}
	}
}

func (p *Poller) trigger(ctx context.Context, r domain.Reminder) error {
	if r.RecurCron != "" {
		next, err := gronx.NextTick(r.RecurCron, false)
		if err != nil {
			// A reminder with a broken cron must not fire every cycle;
			// degrade it to one-shot.
			logger.WarnCF(component, "invalid recurrence, degrading to one-shot",
				map[string]any{"reminder_id": r.ID, "cron": r.RecurCron, "error": err.Error()})
			r.RecurCron = ""
		} else {
			r.NextActionAtUTC = next.UTC().Format(domain.MinuteLayout)
		}
	}

	if r.RecurCron == "" {
		if err := r.Transition(domain.ReminderTriggered); err != nil {
			return err
		}
		r.NextActionAtUTC = ""
	}

	// Persist first: if the update fails we retry next cycle instead of
	// publishing a trigger we could not record.
	if err := p.store.Update(ctx, r); err != nil {
		return err
	}

	logger.InfoCF(component, "reminder due",
		map[string]any{"reminder_id": r.ID, "title": r.Title})
	p.bus.Publish(bus.EventReminderTriggered, r)
	return nil
}
