package domain

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Reminders
// ---------------------------------------------------------------------------

// MinuteLayout is the wire format for reminder times. Reminder times are
// minute-precision UTC strings.
const MinuteLayout = "2006-01-02 15:04"

// ReminderStatus is the lifecycle state of a reminder.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderTriggered ReminderStatus = "triggered"
	ReminderSent      ReminderStatus = "sent"
	ReminderAcked     ReminderStatus = "acked"
	ReminderSnoozed   ReminderStatus = "snoozed"
	ReminderEscalated ReminderStatus = "escalated"
	ReminderIgnored   ReminderStatus = "ignored"
	ReminderCancelled ReminderStatus = "cancelled"
)

func (s ReminderStatus) String() string { return string(s) }

// rank orders the forward lifecycle. Statuses past "sent" are follow-up
// states reserved for future flows; they all rank after sent.
func (s ReminderStatus) rank() int {
	switch s {
	case ReminderPending:
		return 0
	case ReminderTriggered:
		return 1
	case ReminderSent:
		return 2
	case ReminderAcked, ReminderSnoozed, ReminderEscalated, ReminderIgnored:
		return 3
	case ReminderCancelled:
		return 4
	}
	return -1
}

// CanTransition reports whether moving from s to next is allowed. Transitions
// are monotonic: no backward movement, except that cancellation is allowed
// from any non-terminal state.
func (s ReminderStatus) CanTransition(next ReminderStatus) bool {
	if next == ReminderCancelled {
		return s != ReminderCancelled
	}
	return next.rank() > s.rank()
}

// Reminder is a scheduled trigger. RemindAtUTC and NextActionAtUTC are
// minute-precision UTC strings (MinuteLayout). NextActionAtUTC empty means
// no further automatic action is scheduled; the poller only considers rows
// where it is set and due.
type Reminder struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	RemindAtUTC     string         `json:"remind_at_utc"`
	Prompt          string         `json:"prompt"`
	Status          ReminderStatus `json:"status"`
	NextActionAtUTC string         `json:"next_action_at_utc,omitempty"`
	RecurCron       string         `json:"recur_cron,omitempty"`
}

// Transition applies a status change, enforcing monotonicity.
func (r *Reminder) Transition(next ReminderStatus) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("reminder %d: invalid status transition %s -> %s", r.ID, r.Status, next)
	}
	r.Status = next
	return nil
}

// ---------------------------------------------------------------------------
// Minute-precision time helpers
// ---------------------------------------------------------------------------

// NowUTCMinute returns the current UTC time as a minute-precision string.
func NowUTCMinute() string {
	return time.Now().UTC().Format(MinuteLayout)
}

// LocalMinuteToUTC converts a "YYYY-MM-DD HH:MM" string in the given IANA
// zone to the equivalent minute-precision UTC string.
func LocalMinuteToUTC(local, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", tz, err)
	}
	t, err := time.ParseInLocation(MinuteLayout, local, loc)
	if err != nil {
		return "", fmt.Errorf("parse local time %q: %w", local, err)
	}
	return t.UTC().Format(MinuteLayout), nil
}

// UTCMinuteToLocal converts a minute-precision UTC string to the user's
// local zone for display. On parse failure the input is returned unchanged.
func UTCMinuteToLocal(utcMin, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return utcMin
	}
	t, err := time.ParseInLocation(MinuteLayout, utcMin, time.UTC)
	if err != nil {
		return utcMin
	}
	return t.In(loc).Format(MinuteLayout)
}

// NowLocalMinute returns the current time in the user's zone, minute precision.
func NowLocalMinute(tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return NowUTCMinute()
	}
	return time.Now().In(loc).Format(MinuteLayout)
}
