package storage

import (
	"fmt"
	"time"
)

// Activity entry types.
const (
	ActivityPosted   = "posted"
	ActivityClaimed  = "claimed"
	ActivityResolved = "resolved"
)

// AppendActivity records a user action. The activity log is append-only.
func (s *Store) AppendActivity(e ActivityEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO activity (id, user_id, type, item_id, item_title, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Type, e.ItemID, e.ItemTitle, e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListActivityForUser returns the user's most recent activity entries.
func (s *Store) ListActivityForUser(userID string, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, user_id, type, item_id, item_title, created_at
		FROM activity WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.ItemID, &e.ItemTitle, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}
