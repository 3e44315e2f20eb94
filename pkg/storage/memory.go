package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/amayadev/amaya/pkg/domain"
)

// MemoryStore is the SQLite-backed implementation of domain.MemoryStore.
type MemoryStore struct {
	db *sql.DB
}

// CreateGroup creates a memory group. Titles are unique; creating an
// existing title returns the existing group's ID.
func (s *MemoryStore) CreateGroup(ctx context.Context, title string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("create memory group: empty title")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_groups (title) VALUES (?)
		 ON CONFLICT (title) DO NOTHING`, title)
	if err != nil {
		return 0, fmt.Errorf("insert memory group: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT memory_group_id FROM memory_groups WHERE title = ?`, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup memory group %q: %w", title, err)
	}
	return id, nil
}

// Groups returns all memory groups, oldest first.
func (s *MemoryStore) Groups(ctx context.Context) ([]domain.MemoryGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT memory_group_id, title FROM memory_groups ORDER BY memory_group_id`)
	if err != nil {
		return nil, fmt.Errorf("query memory groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.MemoryGroup
	for rows.Next() {
		var g domain.MemoryGroup
		if err := rows.Scan(&g.ID, &g.Title); err != nil {
			return nil, fmt.Errorf("scan memory group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreatePoint records one memory point under the named group, creating the
// group if it does not exist yet.
func (s *MemoryStore) CreatePoint(ctx context.Context, groupTitle, anchor, content string, weight float64) (int64, error) {
	anchor = strings.TrimSpace(anchor)
	if anchor == "" {
		return 0, fmt.Errorf("create memory point: empty anchor")
	}
	if weight <= 0 {
		weight = 1.0
	}

	groupID, err := s.CreateGroup(ctx, groupTitle)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_points (memory_group_id, anchor, content, weight)
		 VALUES (?, ?, ?, ?)`,
		groupID, anchor, content, weight)
	if err != nil {
		return 0, fmt.Errorf("insert memory point: %w", err)
	}
	return res.LastInsertId()
}

// PointsByGroup returns the points of one group, heaviest first.
func (s *MemoryStore) PointsByGroup(ctx context.Context, groupID int64) ([]domain.MemoryPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT memory_point_id, memory_group_id, anchor, content, weight
		 FROM memory_points WHERE memory_group_id = ?
		 ORDER BY weight DESC, memory_point_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query memory points: %w", err)
	}
	defer rows.Close()

	var points []domain.MemoryPoint
	for rows.Next() {
		var p domain.MemoryPoint
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Anchor, &p.Content, &p.Weight); err != nil {
			return nil, fmt.Errorf("scan memory point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// UpdatePointContent replaces the content of one memory point.
func (s *MemoryStore) UpdatePointContent(ctx context.Context, pointID int64, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memory_points SET content = ? WHERE memory_point_id = ?`,
		content, pointID)
	if err != nil {
		return fmt.Errorf("update memory point %d: %w", pointID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update memory point %d: %w", pointID, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.MemoryStore = (*MemoryStore)(nil)
