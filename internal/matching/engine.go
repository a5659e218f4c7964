// Package matching implements the candidate scan that pairs new lost/found
// reports. Scans run from a background worker, never from the request path:
// an error here can delay matches but must never fail an item posting.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ShouryaDesai135/VeriFind/internal/judge"
	"github.com/ShouryaDesai135/VeriFind/internal/similarity"
	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

const judgeConcurrency = 3

// Defaults for the scoring policy. All are overridable via config.
const (
	DefaultLexicalThreshold  = 0.6
	DefaultBorderlineFloor   = 0.35
	DefaultTitleWeight       = 0.6
	DefaultDescriptionWeight = 0.4
)

// MatchStore abstracts the storage operations the engine needs.
type MatchStore interface {
	ListItems(kind, status string, limit, offset int) ([]storage.Item, error)
	UpsertMatch(m storage.Match) error
}

// Policy holds the scoring knobs for a scan.
//
// A candidate whose weighted lexical score reaches LexicalThreshold qualifies
// outright. Scores in [BorderlineFloor, LexicalThreshold) are sent to the
// semantic judge and qualify only on a confident yes; below the floor the
// judge is not consulted at all, since judge calls are slow and costly.
type Policy struct {
	LexicalThreshold  float64
	BorderlineFloor   float64
	TitleWeight       float64
	DescriptionWeight float64
}

func (p Policy) withDefaults() Policy {
	if p.LexicalThreshold <= 0 {
		p.LexicalThreshold = DefaultLexicalThreshold
	}
	if p.BorderlineFloor <= 0 {
		p.BorderlineFloor = DefaultBorderlineFloor
	}
	if p.TitleWeight <= 0 && p.DescriptionWeight <= 0 {
		p.TitleWeight = DefaultTitleWeight
		p.DescriptionWeight = DefaultDescriptionWeight
	}
	return p
}

// Engine scores a new item against available opposite-kind candidates and
// persists qualifying pairs as match records.
type Engine struct {
	store  MatchStore
	judge  judge.Judge
	policy Policy
	logger *slog.Logger
}

// NewEngine creates an Engine. Zero Policy fields fall back to defaults.
func NewEngine(store MatchStore, j judge.Judge, policy Policy) *Engine {
	if j == nil {
		j = &judge.NoOpJudge{}
	}
	return &Engine{
		store:  store,
		judge:  j,
		policy: policy.withDefaults(),
		logger: slog.Default(),
	}
}

// scored pairs a candidate with its lexical score.
type scored struct {
	candidate storage.Item
	score     float64
}

// Scan retrieves all available items of the opposite kind, scores each
// against item, and upserts a match record for every qualifying candidate.
//
// Match persistence is best-effort: a failed write is logged and the scan
// continues with the remaining candidates. Only candidate retrieval errors
// are returned, so the job queue can retry the whole scan.
func (e *Engine) Scan(ctx context.Context, item storage.Item) error {
	opposite := storage.KindFound
	if item.Kind == storage.KindFound {
		opposite = storage.KindLost
	}

	// Claimed and resolved items are never candidates.
	candidates, err := e.store.ListItems(opposite, storage.StatusAvailable, 0, 0)
	if err != nil {
		return fmt.Errorf("listing %s candidates: %w", opposite, err)
	}
	if len(candidates) == 0 {
		return nil
	}

	var qualifying []scored
	var borderline []scored
	for _, c := range candidates {
		score := e.policy.TitleWeight*similarity.Score(item.Title, c.Title) +
			e.policy.DescriptionWeight*similarity.Score(item.Description, c.Description)
		switch {
		case score >= e.policy.LexicalThreshold:
			qualifying = append(qualifying, scored{c, score})
		case score >= e.policy.BorderlineFloor:
			borderline = append(borderline, scored{c, score})
		}
	}

	qualifying = append(qualifying, e.corroborate(ctx, item, borderline)...)

	recorded := 0
	for _, q := range qualifying {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.record(item, q); err != nil {
			e.logger.Warn("recording match failed, continuing scan",
				"item_id", item.ID, "candidate_id", q.candidate.ID, "error", err)
			continue
		}
		recorded++
	}

	e.logger.Info("match scan complete",
		"item_id", item.ID, "candidates", len(candidates), "matches", recorded)
	return nil
}

// corroborate asks the semantic judge about borderline candidates with
// bounded concurrency. The judge fails closed, so a slow or broken endpoint
// only costs the borderline band, never the scan.
func (e *Engine) corroborate(ctx context.Context, item storage.Item, borderline []scored) []scored {
	if len(borderline) == 0 {
		return nil
	}

	accepted := make([]bool, len(borderline))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(judgeConcurrency)

	itemReport := report(item)
	for i, b := range borderline {
		g.Go(func() error {
			accepted[i] = e.judge.SameObject(gCtx, itemReport, report(b.candidate))
			return nil
		})
	}
	g.Wait()

	var confirmed []scored
	for i, b := range borderline {
		if accepted[i] {
			confirmed = append(confirmed, b)
		}
	}
	return confirmed
}

func (e *Engine) record(item storage.Item, q scored) error {
	m := storage.Match{
		ID:        uuid.New().String(),
		Score:     q.score,
		CreatedAt: time.Now().UTC(),
	}
	// The new item may be either side of the pair depending on its kind.
	if item.Kind == storage.KindLost {
		m.LostID, m.FoundID = item.ID, q.candidate.ID
	} else {
		m.LostID, m.FoundID = q.candidate.ID, item.ID
	}
	return e.store.UpsertMatch(m)
}

func report(it storage.Item) judge.Report {
	return judge.Report{
		Title:       it.Title,
		Description: it.Description,
		Location:    it.Location,
	}
}
