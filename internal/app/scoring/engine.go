package scoring

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahayog-network/sahayog/internal/domain"
	"github.com/sahayog-network/sahayog/internal/infra/observability"
)

// ─── Recomputation Engine ───────────────────────────────────────────────────
// The engine is the single entry point for score recomputation. The job
// scheduler delivers triggers at-least-once, so Recompute is idempotent:
// unchanged inputs reproduce the same content hash and the snapshot store
// skips the duplicate write.
//
// Mutual exclusion is keyed by user id. While one computation is in
// flight, concurrent callers for the same user block on it and receive its
// result — they never interleave reads and writes with the running one.
// Computations for different users proceed in parallel.

// Engine computes and persists trust score snapshots.
type Engine struct {
	store domain.EventStore
	snaps domain.SnapshotStore
	graph domain.EndorsementGraph
	cfg   Config

	mu       sync.Mutex
	inflight map[string]*inflightRun

	// Injectable clock for testing.
	now func() time.Time
}

// inflightRun is one in-progress recomputation. Followers wait on done and
// read snap/err afterwards.
type inflightRun struct {
	done chan struct{}
	snap domain.ScoreSnapshot
	err  error
}

// NewEngine creates a scoring engine.
func NewEngine(store domain.EventStore, snaps domain.SnapshotStore, graph domain.EndorsementGraph, cfg Config) *Engine {
	return &Engine{
		store:    store,
		snaps:    snaps,
		graph:    graph,
		cfg:      cfg,
		inflight: make(map[string]*inflightRun),
		now:      time.Now,
	}
}

// Config returns the engine's scoring configuration.
func (e *Engine) Config() Config { return e.cfg }

// Recompute recalculates a user's trust score and appends a snapshot.
// A second call arriving while one is in flight for the same user waits
// for that run and returns its result.
func (e *Engine) Recompute(ctx context.Context, userID string, reason domain.TriggerReason) (domain.ScoreSnapshot, error) {
	e.mu.Lock()
	if run, ok := e.inflight[userID]; ok {
		e.mu.Unlock()
		select {
		case <-run.done:
			return run.snap, run.err
		case <-ctx.Done():
			return domain.ScoreSnapshot{}, ctx.Err()
		}
	}
	run := &inflightRun{done: make(chan struct{})}
	e.inflight[userID] = run
	e.mu.Unlock()

	observability.RecomputeStarted()
	start := e.now()

	snap, written, err := e.compute(ctx, userID)
	run.snap, run.err = snap, err

	e.mu.Lock()
	delete(e.inflight, userID)
	e.mu.Unlock()
	close(run.done)

	observability.RecomputeFinished(string(reason), e.now().Sub(start), written, err)
	if err != nil {
		log.Printf("[scoring] recompute user=%s reason=%s failed: %v", userID, reason, err)
		return domain.ScoreSnapshot{}, err
	}
	log.Printf("[scoring] recompute user=%s reason=%s total=%d written=%t", userID, reason, snap.Total, written)
	return snap, nil
}

// compute runs one full scoring pass. Any input failure aborts the run
// before anything is written — the external scheduler retries.
func (e *Engine) compute(ctx context.Context, userID string) (domain.ScoreSnapshot, bool, error) {
	exists, err := e.store.UserExists(ctx, userID)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}

	now := e.now()

	// Gather every input up front; nothing is written until all reads
	// have succeeded.
	loans, err := e.store.LoansByBorrower(ctx, userID)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("load loans: %w", err)
	}
	reps, err := e.store.RepaymentsByBorrower(ctx, userID)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("load repayments: %w", err)
	}
	earliestJoin, err := e.store.EarliestMembership(ctx, userID)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("load memberships: %w", err)
	}
	memberships, err := e.store.MembershipCount(ctx, userID)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("count memberships: %w", err)
	}
	endorsers, err := e.graph.ActiveEndorsers(ctx, userID)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("load endorsers: %w", err)
	}
	repaid, err := e.store.RepaidPrincipal(ctx, userID)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("load repaid principal: %w", err)
	}

	// Cold start: no scoreable history at all. The weighted formula is
	// bypassed so the repayment calculator's neutral default cannot
	// silently inflate a brand-new user's score.
	if len(loans) == 0 && memberships == 0 && len(endorsers) == 0 {
		return e.buildSnapshot(ctx, userID, ZeroComponents(e.cfg.Weights), e.cfg.ColdStartScore, true, now)
	}

	endorserScores, err := e.endorserScores(ctx, endorsers)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("load endorser scores: %w", err)
	}

	raw := map[domain.Component]float64{
		domain.ComponentRepayment:          RepaymentHistoryScore(reps, e.cfg.GracePeriod(), now),
		domain.ComponentTenure:             TenureScore(earliestJoin, e.cfg.TenureCeilingMonths, now),
		domain.ComponentVouchCount:         VouchCountScore(len(endorsers), e.cfg.VouchCeilingCount),
		domain.ComponentVoucherReliability: VoucherReliabilityScore(endorserScores),
		domain.ComponentLoanVolume:         LoanVolumeScore(repaid, e.cfg.LoanVolumeCeilingAmount),
	}

	total := Aggregate(raw, e.cfg.Weights)
	return e.buildSnapshot(ctx, userID, BuildComponents(raw, e.cfg.Weights), total, false, now)
}

// endorserScores resolves each active endorser's own latest total score,
// falling back to the cold-start score for endorsers not yet scored.
func (e *Engine) endorserScores(ctx context.Context, endorsers []domain.Endorsement) ([]WeightedScore, error) {
	scores := make([]WeightedScore, 0, len(endorsers))
	for _, end := range endorsers {
		latest, err := e.snaps.LatestSnapshot(ctx, end.VoucherID)
		if err != nil {
			return nil, fmt.Errorf("endorser %s: %w", end.VoucherID, err)
		}
		score := float64(e.cfg.ColdStartScore)
		if latest != nil {
			score = float64(latest.Total)
		}
		scores = append(scores, WeightedScore{Weight: end.Weight, Score: score})
	}
	return scores, nil
}

// buildSnapshot assembles the snapshot, hashes it, and appends it through
// the store's atomic write. The store reports written=false when the
// user's latest snapshot already carries the same hash.
func (e *Engine) buildSnapshot(ctx context.Context, userID string, components map[domain.Component]domain.ComponentScore, total int, coldStart bool, now time.Time) (domain.ScoreSnapshot, bool, error) {
	snap := domain.ScoreSnapshot{
		ID:          uuid.NewString(),
		UserID:      userID,
		ComputedAt:  now,
		Total:       total,
		ColdStart:   coldStart,
		Components:  components,
		ContentHash: ContentHash(userID, components, total, coldStart),
		Explanation: Explain(components, total, coldStart),
	}

	stored, written, err := e.snaps.AppendSnapshot(ctx, snap)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("append snapshot: %w", err)
	}
	return stored, written, nil
}

// ─── Periodic Sweep ─────────────────────────────────────────────────────────

// SweepAll recomputes every user's score, as the nightly sweep does.
// Individual failures are logged and counted, not fatal to the sweep.
func (e *Engine) SweepAll(ctx context.Context) (recomputed, failed int, err error) {
	ids, err := e.store.ListUserIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list users: %w", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return recomputed, failed, ctx.Err()
		}
		if _, err := e.Recompute(ctx, id, domain.ReasonSweep); err != nil {
			failed++
			continue
		}
		recomputed++
	}
	return recomputed, failed, nil
}
