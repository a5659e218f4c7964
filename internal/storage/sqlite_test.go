package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testItem(id, kind, ownerID string) Item {
	return Item{
		ID:        id,
		Kind:      kind,
		Status:    StatusAvailable,
		Title:     "Blue water bottle",
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

// TestIndexesExist verifies the migration creates the expected indexes.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{
		"idx_items_kind_status",
		"idx_items_owner",
		"idx_matches_lost",
		"idx_matches_found",
		"idx_activity_user_created",
		"idx_jobs_status_run_after",
	}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestSaveAndGetItem(t *testing.T) {
	s := openTestStore(t)

	lat, lng := 40.7829, -73.9654
	now := time.Now().UTC().Truncate(time.Second)
	want := Item{
		ID:             "item-001",
		Kind:           KindFound,
		Status:         StatusAvailable,
		Title:          "Black wallet",
		Description:    "Leather, slightly worn",
		Location:       "Central Park",
		Lat:            &lat,
		Lng:            &lng,
		Category:       "accessories",
		OccurredOn:     "2025-06-01",
		ImageURL:       "https://example.com/wallet.jpg",
		OwnerID:        "finder-1",
		SecretQuestion: "What brand is it?",
		SecretHash:     "$2a$10$fakehash",
		CreatedAt:      now,
	}

	if err := s.SaveItem(want); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}

	got, err := s.GetItem("item-001")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}

	if got.Kind != want.Kind || got.Status != want.Status || got.Title != want.Title {
		t.Errorf("round-trip mismatch: got %+v", got)
	}
	if got.Description != want.Description || got.Location != want.Location {
		t.Errorf("text fields mismatch: got %+v", got)
	}
	if got.Lat == nil || *got.Lat != lat || got.Lng == nil || *got.Lng != lng {
		t.Errorf("coordinates mismatch: got lat=%v lng=%v", got.Lat, got.Lng)
	}
	if got.SecretQuestion != want.SecretQuestion || got.SecretHash != want.SecretHash {
		t.Errorf("secret fields mismatch: got %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if got.ClaimedAt != nil || got.ResolvedAt != nil {
		t.Errorf("fresh item must have nil claim timestamps, got %+v", got)
	}
}

func TestGetItemNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetItem("no-such-item")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListItemsFilters(t *testing.T) {
	s := openTestStore(t)

	for _, it := range []Item{
		testItem("l1", KindLost, "u1"),
		testItem("l2", KindLost, "u2"),
		testItem("f1", KindFound, "u3"),
	} {
		if err := s.SaveItem(it); err != nil {
			t.Fatalf("SaveItem(%s): %v", it.ID, err)
		}
	}
	if err := s.ClaimItem("l2", "claimant", time.Now().UTC(), "hash"); err != nil {
		t.Fatalf("ClaimItem: %v", err)
	}

	lost, err := s.ListItems(KindLost, "", 0, 0)
	if err != nil {
		t.Fatalf("ListItems(lost): %v", err)
	}
	if len(lost) != 2 {
		t.Errorf("expected 2 lost items, got %d", len(lost))
	}

	available, err := s.ListItems("", StatusAvailable, 0, 0)
	if err != nil {
		t.Fatalf("ListItems(available): %v", err)
	}
	if len(available) != 2 {
		t.Errorf("expected 2 available items, got %d", len(available))
	}

	lostAvailable, err := s.ListItems(KindLost, StatusAvailable, 0, 0)
	if err != nil {
		t.Fatalf("ListItems(lost, available): %v", err)
	}
	if len(lostAvailable) != 1 || lostAvailable[0].ID != "l1" {
		t.Errorf("expected only l1, got %+v", lostAvailable)
	}

	limited, err := s.ListItems("", "", 2, 0)
	if err != nil {
		t.Fatalf("ListItems(limit=2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 items with limit, got %d", len(limited))
	}
}

func TestListItemsByOwner(t *testing.T) {
	s := openTestStore(t)

	for _, it := range []Item{
		testItem("a1", KindLost, "alice"),
		testItem("a2", KindFound, "alice"),
		testItem("b1", KindLost, "bob"),
	} {
		if err := s.SaveItem(it); err != nil {
			t.Fatalf("SaveItem(%s): %v", it.ID, err)
		}
	}

	items, err := s.ListItemsByOwner("alice")
	if err != nil {
		t.Fatalf("ListItemsByOwner: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items for alice, got %d", len(items))
	}
}

func TestClaimItemTransition(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveItem(testItem("f1", KindFound, "finder-1")); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}

	claimedAt := time.Now().UTC().Truncate(time.Second)
	if err := s.ClaimItem("f1", "owner-1", claimedAt, "code-hash"); err != nil {
		t.Fatalf("ClaimItem: %v", err)
	}

	got, err := s.GetItem("f1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Status != StatusClaimed {
		t.Errorf("status = %q, want claimed", got.Status)
	}
	if got.ClaimedBy != "owner-1" {
		t.Errorf("claimed_by = %q, want owner-1", got.ClaimedBy)
	}
	if got.ClaimedAt == nil || !got.ClaimedAt.Equal(claimedAt) {
		t.Errorf("claimed_at = %v, want %v", got.ClaimedAt, claimedAt)
	}
	if got.CodeHash != "code-hash" {
		t.Errorf("code_hash = %q", got.CodeHash)
	}

	// A second claim must fail: the item is no longer available.
	err = s.ClaimItem("f1", "owner-2", time.Now().UTC(), "other-hash")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on double claim, got %v", err)
	}

	// The losing claim must not have mutated anything.
	got, _ = s.GetItem("f1")
	if got.ClaimedBy != "owner-1" {
		t.Errorf("claimed_by changed to %q after failed claim", got.ClaimedBy)
	}
}

func TestClaimItemNotFound(t *testing.T) {
	s := openTestStore(t)

	err := s.ClaimItem("missing", "owner-1", time.Now().UTC(), "hash")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveItemTransition(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveItem(testItem("f1", KindFound, "finder-1")); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}

	// Resolving an unclaimed item must fail.
	err := s.ResolveItem("f1", time.Now().UTC())
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict resolving unclaimed item, got %v", err)
	}

	if err := s.ClaimItem("f1", "owner-1", time.Now().UTC(), "hash"); err != nil {
		t.Fatalf("ClaimItem: %v", err)
	}

	resolvedAt := time.Now().UTC().Truncate(time.Second)
	if err := s.ResolveItem("f1", resolvedAt); err != nil {
		t.Fatalf("ResolveItem: %v", err)
	}

	got, err := s.GetItem("f1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Status != StatusResolved {
		t.Errorf("status = %q, want resolved", got.Status)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("resolved_at = %v, want %v", got.ResolvedAt, resolvedAt)
	}

	// Resolved items are terminal.
	err = s.ResolveItem("f1", time.Now().UTC())
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on double resolve, got %v", err)
	}
}

func TestUpsertMatchDeduplicates(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveItem(testItem("l1", KindLost, "alice")); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}
	if err := s.SaveItem(testItem("f1", KindFound, "bob")); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.UpsertMatch(Match{ID: "m1", LostID: "l1", FoundID: "f1", Score: 0.7, CreatedAt: now}); err != nil {
		t.Fatalf("first UpsertMatch: %v", err)
	}
	// A rescan of the same pair refreshes the score instead of duplicating.
	if err := s.UpsertMatch(Match{ID: "m2", LostID: "l1", FoundID: "f1", Score: 0.9, CreatedAt: now}); err != nil {
		t.Fatalf("second UpsertMatch: %v", err)
	}

	matches, err := s.ListMatchesForItem("l1")
	if err != nil {
		t.Fatalf("ListMatchesForItem: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match after upsert, got %d", len(matches))
	}
	if matches[0].Score != 0.9 {
		t.Errorf("score = %v, want refreshed 0.9", matches[0].Score)
	}
}

func TestListMatchesForUser(t *testing.T) {
	s := openTestStore(t)

	for _, it := range []Item{
		testItem("l1", KindLost, "alice"),
		testItem("f1", KindFound, "bob"),
		testItem("l2", KindLost, "carol"),
		testItem("f2", KindFound, "dave"),
	} {
		if err := s.SaveItem(it); err != nil {
			t.Fatalf("SaveItem(%s): %v", it.ID, err)
		}
	}

	now := time.Now().UTC()
	if err := s.UpsertMatch(Match{ID: "m1", LostID: "l1", FoundID: "f1", Score: 0.8, CreatedAt: now}); err != nil {
		t.Fatalf("UpsertMatch: %v", err)
	}
	if err := s.UpsertMatch(Match{ID: "m2", LostID: "l2", FoundID: "f2", Score: 0.6, CreatedAt: now}); err != nil {
		t.Fatalf("UpsertMatch: %v", err)
	}

	// alice posted the lost side of m1; bob the found side.
	for _, user := range []string{"alice", "bob"} {
		matches, err := s.ListMatchesForUser(user, 10)
		if err != nil {
			t.Fatalf("ListMatchesForUser(%s): %v", user, err)
		}
		if len(matches) != 1 || matches[0].ID != "m1" {
			t.Errorf("ListMatchesForUser(%s) = %+v, want only m1", user, matches)
		}
	}

	matches, err := s.ListMatchesForUser("stranger", 10)
	if err != nil {
		t.Fatalf("ListMatchesForUser(stranger): %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches for stranger, got %d", len(matches))
	}
}

func TestActivityRoundTrip(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	entries := []ActivityEntry{
		{ID: "a1", UserID: "alice", Type: ActivityPosted, ItemID: "l1", ItemTitle: "Umbrella", CreatedAt: now.Add(-2 * time.Minute)},
		{ID: "a2", UserID: "alice", Type: ActivityClaimed, ItemID: "f1", ItemTitle: "Wallet", CreatedAt: now},
		{ID: "a3", UserID: "bob", Type: ActivityPosted, ItemID: "f1", ItemTitle: "Wallet", CreatedAt: now},
	}
	for _, e := range entries {
		if err := s.AppendActivity(e); err != nil {
			t.Fatalf("AppendActivity(%s): %v", e.ID, err)
		}
	}

	got, err := s.ListActivityForUser("alice", 10)
	if err != nil {
		t.Fatalf("ListActivityForUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for alice, got %d", len(got))
	}
	// Newest first.
	if got[0].ID != "a2" || got[1].ID != "a1" {
		t.Errorf("unexpected ordering: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: "j1", Type: "match_scan", PayloadJSON: `{"item_id":"l1"}`}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, err := s.ClaimNextJob([]string{"match_scan"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected to claim the pending job")
	}
	if claimed.ID != "j1" || claimed.Status != "running" {
		t.Errorf("claimed = %+v", claimed)
	}

	// No second runnable job while the first is running.
	second, err := s.ClaimNextJob([]string{"match_scan"})
	if err != nil {
		t.Fatalf("second ClaimNextJob: %v", err)
	}
	if second != nil {
		t.Errorf("expected no runnable job, got %+v", second)
	}

	if err := s.CompleteJob("j1"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	var status string
	if err := s.db.QueryRow(`SELECT status FROM jobs WHERE id = 'j1'`).Scan(&status); err != nil {
		t.Fatalf("querying job status: %v", err)
	}
	if status != "completed" {
		t.Errorf("status = %q, want completed", status)
	}
}

func TestFailJobRetriesWithBackoff(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: "j1", Type: "match_scan", PayloadJSON: `{}`, MaxAttempts: 2}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	if _, err := s.ClaimNextJob([]string{"match_scan"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if err := s.FailJob("j1", "transient error"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	// First failure reschedules with backoff, so the job is pending but not
	// yet runnable.
	var status, lastError string
	if err := s.db.QueryRow(`SELECT status, last_error FROM jobs WHERE id = 'j1'`).Scan(&status, &lastError); err != nil {
		t.Fatalf("querying job: %v", err)
	}
	if status != "pending" {
		t.Errorf("status = %q, want pending after first failure", status)
	}
	if lastError != "transient error" {
		t.Errorf("last_error = %q", lastError)
	}
	if claimed, _ := s.ClaimNextJob([]string{"match_scan"}); claimed != nil {
		t.Errorf("job should not be runnable before backoff elapses, got %+v", claimed)
	}

	// Force the job due, claim it, and fail again to hit max attempts.
	if _, err := s.db.Exec(`UPDATE jobs SET run_after = ? WHERE id = 'j1'`,
		time.Now().UTC().Add(-time.Second).Format(time.RFC3339)); err != nil {
		t.Fatalf("forcing run_after: %v", err)
	}
	if claimed, err := s.ClaimNextJob([]string{"match_scan"}); err != nil || claimed == nil {
		t.Fatalf("expected to claim retried job, got %+v, %v", claimed, err)
	}
	if err := s.FailJob("j1", "permanent error"); err != nil {
		t.Fatalf("second FailJob: %v", err)
	}

	if err := s.db.QueryRow(`SELECT status FROM jobs WHERE id = 'j1'`).Scan(&status); err != nil {
		t.Fatalf("querying job: %v", err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed after max attempts", status)
	}
}
