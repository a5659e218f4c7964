// Package claims implements the claim-verification protocol: a claimant must
// answer the secret challenge attached to a found item before custody intent
// is recorded. Success atomically transitions the item to claimed and issues
// a one-time 6-digit handover code; presenting that code back is what later
// moves the item to resolved.
package claims

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

// ErrNotClaimable is returned when the item's kind does not admit claims
// (lost reports are reunited through matching, not through this path).
var ErrNotClaimable = errors.New("item cannot be claimed")

// ErrSelfClaim is returned when a poster tries to claim their own report.
var ErrSelfClaim = errors.New("cannot claim your own item")

// ErrNotPoster is returned when someone other than the poster tries to
// resolve a handover.
var ErrNotPoster = errors.New("only the poster can resolve an item")

// ItemStore abstracts the storage operations the verifier needs.
type ItemStore interface {
	GetItem(id string) (storage.Item, error)
	ClaimItem(id, claimantID string, claimedAt time.Time, codeHash string) error
	ResolveItem(id string, resolvedAt time.Time) error
	AppendActivity(e storage.ActivityEntry) error
}

// Result is the outcome of a verification attempt. Code is present only on
// an accepted claim and is never persisted in plaintext; this response is the
// claimant's single chance to read it.
type Result struct {
	Accepted bool   `json:"accepted"`
	Code     string `json:"code,omitempty"`
}

// Verifier validates secret challenge responses and performs the
// available -> claimed -> resolved transitions.
type Verifier struct {
	store  ItemStore
	logger *slog.Logger
}

// NewVerifier creates a Verifier backed by store.
func NewVerifier(store ItemStore) *Verifier {
	return &Verifier{store: store, logger: slog.Default()}
}

// VerifyClaim checks the claimant's answer against the item's secret
// challenge. Structural rejections surface as errors (storage.ErrNotFound,
// storage.ErrConflict, ErrNotClaimable, ErrSelfClaim); a wrong answer is a
// clean Result{Accepted: false}, nil.
//
// The status read and claimed write are not a read-then-write pair: the
// final transition is a conditional update in the store, so of two racing
// claimants exactly one succeeds and the other observes storage.ErrConflict
// with no partial mutation.
func (v *Verifier) VerifyClaim(ctx context.Context, itemID, claimantID, response string) (Result, error) {
	item, err := v.store.GetItem(itemID)
	if err != nil {
		return Result{}, err
	}

	// Ordering: structural checks come before the secret comparison, so a
	// poster probing their own item never learns whether an answer matched.
	if item.Kind != storage.KindFound {
		return Result{}, ErrNotClaimable
	}
	if item.Status != storage.StatusAvailable {
		return Result{}, storage.ErrConflict
	}
	if claimantID == item.OwnerID {
		return Result{}, ErrSelfClaim
	}

	if bcrypt.CompareHashAndPassword([]byte(item.SecretHash), []byte(NormalizeAnswer(response))) != nil {
		return Result{Accepted: false}, nil
	}

	code, err := generateCode()
	if err != nil {
		return Result{}, fmt.Errorf("generating handover code: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("hashing handover code: %w", err)
	}

	if err := v.store.ClaimItem(itemID, claimantID, time.Now().UTC(), string(codeHash)); err != nil {
		return Result{}, err
	}

	v.appendActivity(claimantID, storage.ActivityClaimed, item)
	return Result{Accepted: true, Code: code}, nil
}

// Resolve completes a handover: the poster presents the code the claimant
// received, and on a match the item transitions claimed -> resolved. A wrong
// code is Result{Accepted: false}, nil; after this the item is immutable.
func (v *Verifier) Resolve(ctx context.Context, itemID, posterID, code string) (Result, error) {
	item, err := v.store.GetItem(itemID)
	if err != nil {
		return Result{}, err
	}

	if item.Status != storage.StatusClaimed {
		return Result{}, storage.ErrConflict
	}
	if posterID != item.OwnerID {
		return Result{}, ErrNotPoster
	}

	if bcrypt.CompareHashAndPassword([]byte(item.CodeHash), []byte(strings.TrimSpace(code))) != nil {
		return Result{Accepted: false}, nil
	}

	if err := v.store.ResolveItem(itemID, time.Now().UTC()); err != nil {
		return Result{}, err
	}

	v.appendActivity(posterID, storage.ActivityResolved, item)
	return Result{Accepted: true}, nil
}

// appendActivity is fire-and-forget: the log is display-only and must never
// fail a verified claim.
func (v *Verifier) appendActivity(userID, activityType string, item storage.Item) {
	err := v.store.AppendActivity(storage.ActivityEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      activityType,
		ItemID:    item.ID,
		ItemTitle: item.Title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		v.logger.Warn("appending activity failed", "type", activityType, "item_id", item.ID, "error", err)
	}
}

// NormalizeAnswer canonicalizes a secret answer for hashing and comparison:
// surrounding whitespace is trimmed and case is folded, so " Apple " and
// "apple" are the same answer.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashAnswer returns the bcrypt hash of a normalized secret answer. Plaintext
// answers exist only in the initial posting request.
func HashAnswer(answer string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(NormalizeAnswer(answer)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// generateCode draws a uniform 6-digit code from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
