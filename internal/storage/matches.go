package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertMatch records a scored lost/found pairing. The (lost_id, found_id)
// pair is unique: rescanning the same pair refreshes the score instead of
// inserting a duplicate row.
func (s *Store) UpsertMatch(m Match) error {
	_, err := s.db.Exec(`
		INSERT INTO matches (id, lost_id, found_id, score, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(lost_id, found_id) DO UPDATE SET score = excluded.score`,
		m.ID, m.LostID, m.FoundID, m.Score, m.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListMatchesForUser returns matches where either side was posted by the
// given user, newest first.
func (s *Store) ListMatchesForUser(userID string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT m.id, m.lost_id, m.found_id, m.score, m.created_at
		FROM matches m
		JOIN items l ON l.id = m.lost_id
		JOIN items f ON f.id = m.found_id
		WHERE l.owner_id = ? OR f.owner_id = ?
		ORDER BY m.created_at DESC LIMIT ?`,
		userID, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

// ListMatchesForItem returns matches referencing the given item on either side.
func (s *Store) ListMatchesForItem(itemID string) ([]Match, error) {
	rows, err := s.db.Query(`
		SELECT id, lost_id, found_id, score, created_at
		FROM matches WHERE lost_id = ? OR found_id = ?
		ORDER BY score DESC`,
		itemID, itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

func collectMatches(rows *sql.Rows) ([]Match, error) {
	var results []Match
	for rows.Next() {
		var m Match
		var createdAt string
		if err := rows.Scan(&m.ID, &m.LostID, &m.FoundID, &m.Score, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		m.CreatedAt = t
		results = append(results, m)
	}
	return results, rows.Err()
}
