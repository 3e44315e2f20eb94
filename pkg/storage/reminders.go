package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amayadev/amaya/pkg/domain"
)

// ReminderStore is the SQLite-backed implementation of domain.ReminderStore.
type ReminderStore struct {
	db *sql.DB
}

const reminderColumns = `reminder_id, title, remind_at_utc, prompt, status, next_action_at_utc, recur_cron`

// Create inserts a reminder and returns it with its assigned ID.
func (s *ReminderStore) Create(ctx context.Context, r domain.Reminder) (domain.Reminder, error) {
	if r.Status == "" {
		r.Status = domain.ReminderPending
	}
	if r.NextActionAtUTC == "" {
		r.NextActionAtUTC = r.RemindAtUTC
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (title, remind_at_utc, prompt, status, next_action_at_utc, recur_cron)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Title, r.RemindAtUTC, r.Prompt, string(r.Status), nullable(r.NextActionAtUTC), r.RecurCron,
	)
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("reminder id: %w", err)
	}
	r.ID = id
	return r, nil
}

// Pending returns reminders still waiting to fire.
func (s *ReminderStore) Pending(ctx context.Context) ([]domain.Reminder, error) {
	return s.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE status = ? ORDER BY remind_at_utc`,
		string(domain.ReminderPending))
}

// Due returns reminders whose next action time is set and <= nowUTCMinute.
// Minute-precision strings compare correctly as text.
func (s *ReminderStore) Due(ctx context.Context, nowUTCMinute string) ([]domain.Reminder, error) {
	return s.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE next_action_at_utc IS NOT NULL AND next_action_at_utc <= ?`,
		nowUTCMinute)
}

// Update persists a reminder's status, next action time and recurrence.
func (s *ReminderStore) Update(ctx context.Context, r domain.Reminder) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders
		 SET status = ?, next_action_at_utc = ?, recur_cron = ?, updated_at_utc = CURRENT_TIMESTAMP
		 WHERE reminder_id = ?`,
		string(r.Status), nullable(r.NextActionAtUTC), r.RecurCron, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update reminder %d: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reminder %d: %w", r.ID, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ReminderStore) query(ctx context.Context, q string, args ...any) ([]domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []domain.Reminder
	for rows.Next() {
		var (
			r          domain.Reminder
			status     string
			nextAction sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.RemindAtUTC, &r.Prompt, &status, &nextAction, &r.RecurCron); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.Status = domain.ReminderStatus(status)
		if nextAction.Valid {
			r.NextActionAtUTC = nextAction.String
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// nullable maps an empty string to SQL NULL so the partial index on
// next_action_at_utc stays small and the due query stays honest.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ domain.ReminderStore = (*ReminderStore)(nil)
