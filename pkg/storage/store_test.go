package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amayadev/amaya/pkg/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "amaya.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "amaya.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	// Reopening an already-migrated database must not fail.
	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s.Close()
}

func TestMessageAppendThenRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := domain.NewMessage(domain.ChannelCLI, domain.RoleUser, "hello")
	second := domain.NewMessage(domain.ChannelCLI, domain.RoleAmaya, "hi!")
	second.Metadata = domain.Metadata{"segments": "2"}

	if err := s.Messages.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Messages.Append(ctx, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.Messages.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Most recent first.
	if got[0].Content != "hi!" || got[1].Content != "hello" {
		t.Errorf("order wrong: %q then %q", got[0].Content, got[1].Content)
	}
	if got[0].Metadata.Get("segments") != "2" {
		t.Errorf("metadata lost: %#v", got[0].Metadata)
	}
}

func TestMessageRecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		if err := s.Messages.Append(ctx, domain.NewMessage(domain.ChannelCLI, domain.RoleUser, content)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Messages.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Content != "c" {
		t.Errorf("got %d messages, first %q", len(got), got[0].Content)
	}
}

func TestMessageRejectsInvalidRole(t *testing.T) {
	s := openTestStore(t)

	msg := domain.NewMessage(domain.ChannelCLI, domain.MessageRole("bogus"), "x")
	if err := s.Messages.Append(context.Background(), msg); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestReminderLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Reminders.Create(ctx, domain.Reminder{
		Title:       "stand up",
		RemindAtUTC: "2026-09-01 09:00",
		Prompt:      "remind the user to stand up",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned ID")
	}
	if created.Status != domain.ReminderPending {
		t.Errorf("status = %s, want pending", created.Status)
	}
	if created.NextActionAtUTC != "2026-09-01 09:00" {
		t.Errorf("next action = %q, want remind time", created.NextActionAtUTC)
	}

	pending, err := s.Reminders.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("pending = %#v", pending)
	}

	// Not due a minute before, due at the exact minute.
	due, err := s.Reminders.Due(ctx, "2026-09-01 08:59")
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due early: %#v", due)
	}
	due, err = s.Reminders.Due(ctx, "2026-09-01 09:00")
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due = %#v", due)
	}

	// Trigger: status advances and next action clears.
	created.Status = domain.ReminderTriggered
	created.NextActionAtUTC = ""
	if err := s.Reminders.Update(ctx, created); err != nil {
		t.Fatalf("Update: %v", err)
	}

	due, err = s.Reminders.Due(ctx, "2026-09-01 09:05")
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("cleared reminder still due: %#v", due)
	}
	pending, err = s.Reminders.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("triggered reminder still pending: %#v", pending)
	}
}

func TestReminderUpdateMissingRow(t *testing.T) {
	s := openTestStore(t)

	err := s.Reminders.Update(context.Background(), domain.Reminder{
		ID:     999,
		Status: domain.ReminderCancelled,
	})
	if err != domain.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReminderRecurringKeepsCron(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Reminders.Create(ctx, domain.Reminder{
		Title:       "drink water",
		RemindAtUTC: "2026-09-01 10:00",
		Prompt:      "hydration check",
		RecurCron:   "0 */2 * * *",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Reschedule: stays pending, next action moves forward.
	created.NextActionAtUTC = "2026-09-01 12:00"
	if err := s.Reminders.Update(ctx, created); err != nil {
		t.Fatalf("Update: %v", err)
	}

	due, err := s.Reminders.Due(ctx, "2026-09-01 12:00")
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 1 || due[0].RecurCron != "0 */2 * * *" {
		t.Fatalf("due = %#v", due)
	}
}

func TestMemoryGroupsAndPoints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.Memory.CreateGroup(ctx, "user_preferences")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	// Same title returns the same group.
	id2, err := s.Memory.CreateGroup(ctx, "user_preferences")
	if err != nil {
		t.Fatalf("CreateGroup again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("duplicate title made a new group: %d vs %d", id1, id2)
	}

	if _, err := s.Memory.CreatePoint(ctx, "user_preferences", "coffee", "prefers oat milk", 2.0); err != nil {
		t.Fatalf("CreatePoint: %v", err)
	}
	pointID, err := s.Memory.CreatePoint(ctx, "user_preferences", "sleep", "usually up past midnight", 1.0)
	if err != nil {
		t.Fatalf("CreatePoint: %v", err)
	}

	points, err := s.Memory.PointsByGroup(ctx, id1)
	if err != nil {
		t.Fatalf("PointsByGroup: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %#v", points)
	}
	// Heaviest first.
	if points[0].Anchor != "coffee" {
		t.Errorf("order wrong: %q first", points[0].Anchor)
	}

	if err := s.Memory.UpdatePointContent(ctx, pointID, "sleeps early now"); err != nil {
		t.Fatalf("UpdatePointContent: %v", err)
	}
	points, err = s.Memory.PointsByGroup(ctx, id1)
	if err != nil {
		t.Fatalf("PointsByGroup: %v", err)
	}
	if points[1].Content != "sleeps early now" {
		t.Errorf("content = %q", points[1].Content)
	}

	if err := s.Memory.UpdatePointContent(ctx, 999, "x"); err != domain.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	groups, err := s.Memory.Groups(ctx)
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Title != "user_preferences" {
		t.Errorf("groups = %#v", groups)
	}
}
