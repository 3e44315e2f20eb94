package domain

import "context"

// ---------------------------------------------------------------------------
// Storage ports, implemented by pkg/storage and consumed by the core
// ---------------------------------------------------------------------------

// MessageStore persists the append-only conversation log. Implementations
// must give read-after-write consistency: a message appended by the core is
// visible to the very next Recent call.
type MessageStore interface {
	// Append writes one immutable message record.
	Append(ctx context.Context, msg Message) error
	// Recent returns up to limit messages, most recent first.
	Recent(ctx context.Context, limit int) ([]Message, error)
}

// ReminderStore persists reminders and their lifecycle.
type ReminderStore interface {
	// Create inserts a reminder and returns it with its assigned ID.
	Create(ctx context.Context, r Reminder) (Reminder, error)
	// Pending returns reminders still waiting to fire.
	Pending(ctx context.Context) ([]Reminder, error)
	// Due returns reminders whose next action time is set and <= nowUTCMinute.
	Due(ctx context.Context, nowUTCMinute string) ([]Reminder, error)
	// Update persists a reminder's status and next action time.
	Update(ctx context.Context, r Reminder) error
}

// MemoryGroup is a folder-like container for memory points.
type MemoryGroup struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// MemoryPoint is one remembered fact, keyed by a short anchor.
type MemoryPoint struct {
	ID      int64   `json:"id"`
	GroupID int64   `json:"group_id"`
	Anchor  string  `json:"anchor"`
	Content string  `json:"content"`
	Weight  float64 `json:"weight"`
}

// MemoryStore persists Amaya's working memory: groups of anchored points.
// Read during context assembly, written through LLM tools.
type MemoryStore interface {
	CreateGroup(ctx context.Context, title string) (int64, error)
	Groups(ctx context.Context) ([]MemoryGroup, error)
	CreatePoint(ctx context.Context, groupTitle, anchor, content string, weight float64) (int64, error)
	PointsByGroup(ctx context.Context, groupID int64) ([]MemoryPoint, error)
	UpdatePointContent(ctx context.Context, pointID int64, content string) error
}
