package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amayadev/amaya/pkg/domain"
)

// MessageStore is the SQLite-backed implementation of domain.MessageStore.
// Message rows are append-only; ordering is by the time-sortable message ID.
type MessageStore struct {
	db *sql.DB
}

// Append writes one immutable message record.
func (s *MessageStore) Append(ctx context.Context, msg domain.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("append message: invalid role %q", msg.Role)
	}
	if msg.ID == "" {
		msg.ID = domain.NewMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var metadata []byte
	if len(msg.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("marshal message metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, channel, role, content, metadata, created_at_utc)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, string(msg.Channel), string(msg.Role), msg.Content, metadata, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, most recent first.
func (s *MessageStore) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, channel, role, content, metadata, created_at_utc
		 FROM messages ORDER BY message_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			msg      domain.Message
			channel  string
			role     string
			metadata sql.NullString
		)
		if err := rows.Scan(&msg.ID, &channel, &role, &msg.Content, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Channel = domain.ChannelType(channel)
		msg.Role = domain.MessageRole(role)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal message metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

var _ domain.MessageStore = (*MessageStore)(nil)
