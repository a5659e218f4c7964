package matching

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

// fakeJobStore implements JobStore with a single claimable job.
type fakeJobStore struct {
	job       *storage.Job
	items     map[string]storage.Item
	completed []string
	failed    map[string]string
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		items:  make(map[string]storage.Item),
		failed: make(map[string]string),
	}
}

func (f *fakeJobStore) ClaimNextJob(types []string) (*storage.Job, error) {
	if f.job == nil {
		return nil, nil
	}
	j := f.job
	f.job = nil
	return j, nil
}

func (f *fakeJobStore) CompleteJob(id string) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeJobStore) FailJob(id, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

func (f *fakeJobStore) GetItem(id string) (storage.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return storage.Item{}, storage.ErrNotFound
	}
	return it, nil
}

// fakeScanner records scanned items and optionally fails.
type fakeScanner struct {
	scanned []string
	err     error
}

func (f *fakeScanner) Scan(_ context.Context, item storage.Item) error {
	if f.err != nil {
		return f.err
	}
	f.scanned = append(f.scanned, item.ID)
	return nil
}

func scanJobFor(t *testing.T, itemID string) *storage.Job {
	t.Helper()
	job, err := NewScanJob(itemID)
	if err != nil {
		t.Fatalf("NewScanJob: %v", err)
	}
	return &job
}

func TestNewScanJobPayload(t *testing.T) {
	job, err := NewScanJob("item-42")
	if err != nil {
		t.Fatalf("NewScanJob: %v", err)
	}
	if job.Type != JobTypeScan {
		t.Errorf("job type = %q, want %q", job.Type, JobTypeScan)
	}
	var payload scanPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if payload.ItemID != "item-42" {
		t.Errorf("payload item_id = %q, want item-42", payload.ItemID)
	}
}

func TestRunOnceProcessesScanJob(t *testing.T) {
	store := newFakeJobStore()
	store.items["item-1"] = storage.Item{
		ID: "item-1", Kind: storage.KindFound, Status: storage.StatusAvailable,
		Title: "bottle", CreatedAt: time.Now().UTC(),
	}
	store.job = scanJobFor(t, "item-1")

	scanner := &fakeScanner{}
	w := NewWorker(store, scanner, 0)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("RunOnce = false, want true (job was claimed)")
	}
	if len(scanner.scanned) != 1 || scanner.scanned[0] != "item-1" {
		t.Errorf("scanned = %v, want [item-1]", scanner.scanned)
	}
	if len(store.completed) != 1 {
		t.Errorf("completed jobs = %v, want exactly one", store.completed)
	}
}

func TestRunOnceNoJob(t *testing.T) {
	w := NewWorker(newFakeJobStore(), &fakeScanner{}, 0)
	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if done {
		t.Error("RunOnce = true with empty queue, want false")
	}
}

func TestRunOnceScanErrorFailsJob(t *testing.T) {
	store := newFakeJobStore()
	store.items["item-2"] = storage.Item{
		ID: "item-2", Kind: storage.KindLost, Status: storage.StatusAvailable,
		Title: "wallet", CreatedAt: time.Now().UTC(),
	}
	job := scanJobFor(t, "item-2")
	store.job = job

	w := NewWorker(store, &fakeScanner{err: errors.New("candidates unavailable")}, 0)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("RunOnce = false, want true")
	}
	if _, ok := store.failed[job.ID]; !ok {
		t.Error("job not marked failed after scan error")
	}
	if len(store.completed) != 0 {
		t.Error("job marked completed despite scan error")
	}
}

func TestRunOnceSkipsMissingItem(t *testing.T) {
	store := newFakeJobStore()
	store.job = scanJobFor(t, "gone")

	scanner := &fakeScanner{}
	w := NewWorker(store, scanner, 0)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("RunOnce = false, want true")
	}
	if len(scanner.scanned) != 0 {
		t.Errorf("scanned = %v for a deleted item, want none", scanner.scanned)
	}
	if len(store.completed) != 1 {
		t.Error("job for deleted item should complete cleanly")
	}
}

func TestRunOnceSkipsClaimedItem(t *testing.T) {
	store := newFakeJobStore()
	store.items["item-3"] = storage.Item{
		ID: "item-3", Kind: storage.KindFound, Status: storage.StatusClaimed,
		Title: "bottle", CreatedAt: time.Now().UTC(),
	}
	store.job = scanJobFor(t, "item-3")

	scanner := &fakeScanner{}
	w := NewWorker(store, scanner, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(scanner.scanned) != 0 {
		t.Errorf("scanned = %v for a claimed item, want none", scanner.scanned)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(newFakeJobStore(), &fakeScanner{}, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
