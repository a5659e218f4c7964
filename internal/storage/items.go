package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const itemColumns = `id, kind, status, title, description, location, lat, lng, category,
	occurred_on, image_url, owner_id, secret_question, secret_hash, code_hash,
	claimed_by, claimed_at, resolved_at, created_at`

// SaveItem inserts a new item record.
func (s *Store) SaveItem(it Item) error {
	_, err := s.db.Exec(`
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Kind, it.Status, it.Title, it.Description, it.Location, it.Lat, it.Lng,
		it.Category, it.OccurredOn, it.ImageURL, it.OwnerID, it.SecretQuestion,
		it.SecretHash, it.CodeHash, nullString(it.ClaimedBy), nullTime(it.ClaimedAt),
		nullTime(it.ResolvedAt), it.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetItem returns the item with the given id, or ErrNotFound.
func (s *Store) GetItem(id string) (Item, error) {
	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return Item{}, ErrNotFound
	}
	return it, err
}

// ListItems returns items filtered by kind and/or status (empty string means
// no filter), newest first. A limit <= 0 means no limit.
func (s *Store) ListItems(kind, status string, limit, offset int) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListItemsByOwner returns all items posted by the given user, newest first.
func (s *Store) ListItemsByOwner(ownerID string) ([]Item, error) {
	rows, err := s.db.Query(`SELECT `+itemColumns+` FROM items WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// ClaimItem transitions an item from available to claimed, stamping claimed_by,
// claimed_at, and the handover code hash in one conditional update. The status
// guard makes the transition a compare-and-swap: if two claimants race, the
// second sees zero affected rows and gets ErrConflict.
func (s *Store) ClaimItem(id, claimantID string, claimedAt time.Time, codeHash string) error {
	res, err := s.db.Exec(`
		UPDATE items SET status = ?, claimed_by = ?, claimed_at = ?, code_hash = ?
		WHERE id = ? AND status = ?`,
		StatusClaimed, claimantID, claimedAt.UTC().Format(time.RFC3339), codeHash,
		id, StatusAvailable,
	)
	if err != nil {
		return err
	}
	return s.checkTransition(res, id)
}

// ResolveItem transitions an item from claimed to resolved with the same
// compare-and-swap guard as ClaimItem.
func (s *Store) ResolveItem(id string, resolvedAt time.Time) error {
	res, err := s.db.Exec(`
		UPDATE items SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?`,
		StatusResolved, resolvedAt.UTC().Format(time.RFC3339), id, StatusClaimed,
	)
	if err != nil {
		return err
	}
	return s.checkTransition(res, id)
}

// checkTransition disambiguates a zero-row conditional update into
// ErrNotFound (no such item) or ErrConflict (wrong current status).
func (s *Store) checkTransition(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM items WHERE id = ?", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	var claimedBy, claimedAt, resolvedAt sql.NullString
	var createdAt string
	err := row.Scan(
		&it.ID, &it.Kind, &it.Status, &it.Title, &it.Description, &it.Location,
		&it.Lat, &it.Lng, &it.Category, &it.OccurredOn, &it.ImageURL, &it.OwnerID,
		&it.SecretQuestion, &it.SecretHash, &it.CodeHash,
		&claimedBy, &claimedAt, &resolvedAt, &createdAt,
	)
	if err != nil {
		return Item{}, err
	}

	it.ClaimedBy = claimedBy.String
	if it.ClaimedAt, err = parseNullTime(claimedAt); err != nil {
		return Item{}, fmt.Errorf("parsing claimed_at: %w", err)
	}
	if it.ResolvedAt, err = parseNullTime(resolvedAt); err != nil {
		return Item{}, fmt.Errorf("parsing resolved_at: %w", err)
	}
	if it.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Item{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return it, nil
}

func collectItems(rows *sql.Rows) ([]Item, error) {
	var results []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, it)
	}
	return results, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
