// Package domain holds the core data model shared across all Amaya
// components: conversation messages, reminders, channel envelopes and the
// storage ports they flow through.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Conversation messages
// ---------------------------------------------------------------------------

// MessageRole identifies who a conversation message is attributed to.
type MessageRole string

const (
	// RoleSystem is reserved for fixed instructions.
	RoleSystem MessageRole = "system"
	// RoleWorld carries ambient context: time, memory, triggered reminders.
	RoleWorld MessageRole = "world"
	// RoleUser is a human message from any channel.
	RoleUser MessageRole = "user"
	// RoleAmaya is Amaya's own output.
	RoleAmaya MessageRole = "amaya"
)

func (r MessageRole) String() string { return string(r) }

// Valid reports whether the role is one of the known roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleSystem, RoleWorld, RoleUser, RoleAmaya:
		return true
	}
	return false
}

// Message is one immutable conversation record. Messages are never mutated
// after creation; ordering is by ID, which sorts lexicographically by
// creation time.
type Message struct {
	ID        string      `json:"id"`
	Channel   ChannelType `json:"channel"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Metadata  Metadata    `json:"metadata,omitempty"`
	CreatedAt time.Time   `json:"created_at_utc"`
}

// NewMessageID returns a fresh time-ordered message identifier. UUIDv7 IDs
// sort lexicographically by creation time, which is what message ordering
// relies on.
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewMessage builds a message with a fresh ID and the current UTC time.
func NewMessage(channel ChannelType, role MessageRole, content string) Message {
	return Message{
		ID:        NewMessageID(),
		Channel:   channel,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Metadata is a generic key-value map for extensible properties.
type Metadata map[string]string

// Get returns a metadata value, or empty string if not present.
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Set writes a metadata key-value pair. Initializes the map if nil.
func (m *Metadata) Set(key, value string) {
	if *m == nil {
		*m = make(Metadata)
	}
	(*m)[key] = value
}

// ---------------------------------------------------------------------------
// Channel boundary envelopes
// ---------------------------------------------------------------------------

// IncomingMessage is the transport-agnostic envelope a channel adapter
// produces from a platform event. The core never inspects Route beyond
// passing it back out unchanged.
type IncomingMessage struct {
	Channel   ChannelType
	Route     Route
	SenderID  string
	Content   string
	Timestamp time.Time
}

// OutgoingMessage is the envelope the core hands to a channel adapter for
// platform delivery.
type OutgoingMessage struct {
	Channel ChannelType
	Route   Route
	Content string
}
