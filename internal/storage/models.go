package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional status transition fails
// because the record is no longer in the expected state.
var ErrConflict = errors.New("conflict")

// Item kinds.
const (
	KindLost  = "lost"
	KindFound = "found"
)

// Item statuses. Transitions are monotonic: available -> claimed -> resolved.
const (
	StatusAvailable = "available"
	StatusClaimed   = "claimed"
	StatusResolved  = "resolved"
)

// Item is a lost or found report posted by a community member.
// Secret answers and handover codes are stored as bcrypt hashes only.
type Item struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Location       string     `json:"location,omitempty"`
	Lat            *float64   `json:"lat,omitempty"`
	Lng            *float64   `json:"lng,omitempty"`
	Category       string     `json:"category,omitempty"`
	OccurredOn     string     `json:"occurred_on,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	OwnerID        string     `json:"owner_id"`
	SecretQuestion string     `json:"secret_question,omitempty"`
	SecretHash     string     `json:"-"`
	CodeHash       string     `json:"-"`
	ClaimedBy      string     `json:"claimed_by,omitempty"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Match is a scored pairing between a lost item and a found item.
// At most one match exists per (lost, found) pair; rescans refresh the score.
type Match struct {
	ID        string    `json:"id"`
	LostID    string    `json:"lost_id"`
	FoundID   string    `json:"found_id"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityEntry is an append-only record of a user action, kept for display.
type ActivityEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	ItemID    string    `json:"item_id"`
	ItemTitle string    `json:"item_title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
