package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

// JobTypeScan is the job type enqueued when a new item is posted.
const JobTypeScan = "match_scan"

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetItem(id string) (storage.Item, error)
}

// Scanner runs a match scan for one item.
type Scanner interface {
	Scan(ctx context.Context, item storage.Item) error
}

// NewScanJob builds a match_scan job for the given item.
func NewScanJob(itemID string) (storage.Job, error) {
	payload, err := json.Marshal(scanPayload{ItemID: itemID})
	if err != nil {
		return storage.Job{}, fmt.Errorf("marshaling scan payload: %w", err)
	}
	return storage.Job{
		ID:          uuid.New().String(),
		Type:        JobTypeScan,
		PayloadJSON: string(payload),
	}, nil
}

type scanPayload struct {
	ItemID string `json:"item_id"`
}

// Worker processes match_scan jobs from the SQLite job queue. Scans are
// fire-and-forget relative to item creation: the posting request only
// enqueues, and scan outcomes are never delivered back to the poster.
type Worker struct {
	store   JobStore
	scanner Scanner
	poll    time.Duration
	logger  *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, scanner Scanner, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:   store,
		scanner: scanner,
		poll:    pollInterval,
		logger:  slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single match_scan job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeScan})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("match scan job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload scanPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	item, err := w.store.GetItem(payload.ItemID)
	if errors.Is(err, storage.ErrNotFound) {
		// Item deleted before the scan ran; nothing to do.
		w.logger.Debug("scan target gone, skipping", "item_id", payload.ItemID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading item %s: %w", payload.ItemID, err)
	}

	// An item claimed between posting and scanning no longer needs matches.
	if item.Status != storage.StatusAvailable {
		w.logger.Debug("scan target no longer available, skipping",
			"item_id", item.ID, "status", item.Status)
		return nil
	}

	return w.scanner.Scan(ctx, item)
}
