// Package cluster rolls member score snapshots up into per-community
// health classifications used to flag systemic risk.
//
// One run uses a single fixed cutoff timestamp for every member snapshot
// read, so a health record never mixes pre- and post-recomputation scores.
// Runs for different communities are independent and may execute fully in
// parallel.
package cluster

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

// ─── Configuration ──────────────────────────────────────────────────────────

// Config holds the classification thresholds and detection windows.
// Boundary values always belong to the higher tier.
type Config struct {
	StableThreshold  float64 `toml:"stable_threshold" json:"stable_threshold"`   // avg ≥ this → stable
	GrowingThreshold float64 `toml:"growing_threshold" json:"growing_threshold"` // avg ≥ this → growing

	// AtRiskDrop is flagged on a STRICT drop > this many points.
	AtRiskDrop       int `toml:"at_risk_drop" json:"at_risk_drop"`
	AtRiskWindowDays int `toml:"at_risk_window_days" json:"at_risk_window_days"`

	OnTimeWindowDays int `toml:"on_time_window_days" json:"on_time_window_days"`
	GracePeriodDays  int `toml:"grace_period_days" json:"grace_period_days"`
}

// DefaultConfig returns production cluster-health defaults.
func DefaultConfig() Config {
	return Config{
		StableThreshold:  700,
		GrowingThreshold: 500,
		AtRiskDrop:       100,
		AtRiskWindowDays: 30,
		OnTimeWindowDays: 90,
		GracePeriodDays:  3,
	}
}

// Validate checks the thresholds are ordered.
func (c Config) Validate() error {
	if c.GrowingThreshold > c.StableThreshold {
		return fmt.Errorf("growing_threshold %v exceeds stable_threshold %v", c.GrowingThreshold, c.StableThreshold)
	}
	if c.AtRiskDrop <= 0 || c.AtRiskWindowDays <= 0 || c.OnTimeWindowDays <= 0 {
		return fmt.Errorf("at-risk and on-time windows must be positive")
	}
	return nil
}

// Classify maps an average score to a cluster status. Pure and
// deterministic; boundary values go to the higher tier.
func Classify(avgScore float64, cfg Config) domain.ClusterStatus {
	switch {
	case avgScore >= cfg.StableThreshold:
		return domain.ClusterStable
	case avgScore >= cfg.GrowingThreshold:
		return domain.ClusterGrowing
	default:
		return domain.ClusterFragile
	}
}

// ─── Service ────────────────────────────────────────────────────────────────

// Service computes and persists cluster health records.
type Service struct {
	store  domain.EventStore
	snaps  domain.SnapshotStore
	health domain.HealthStore
	cfg    Config

	// Injectable clock for testing.
	now func() time.Time
}

// NewService creates a cluster health service.
func NewService(store domain.EventStore, snaps domain.SnapshotStore, health domain.HealthStore, cfg Config) *Service {
	return &Service{store: store, snaps: snaps, health: health, cfg: cfg, now: time.Now}
}

// Compute builds, persists, and returns a health record for communityID.
// The cutoff is fixed at entry; every snapshot read in the run uses it.
func (s *Service) Compute(ctx context.Context, communityID string) (domain.ClusterHealthSnapshot, error) {
	exists, err := s.store.CommunityExists(ctx, communityID)
	if err != nil {
		return domain.ClusterHealthSnapshot{}, fmt.Errorf("check community: %w", err)
	}
	if !exists {
		return domain.ClusterHealthSnapshot{}, fmt.Errorf("community %s: %w", communityID, domain.ErrCommunityNotFound)
	}

	cutoff := s.now()

	members, err := s.store.MemberIDs(ctx, communityID)
	if err != nil {
		return domain.ClusterHealthSnapshot{}, fmt.Errorf("list members: %w", err)
	}

	snap := domain.ClusterHealthSnapshot{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		ComputedAt:  cutoff,
		MemberCount: len(members),
		AtRisk:      []domain.AtRiskMember{},
	}

	// Latest snapshot per member at the cutoff, plus at-risk comparison
	// against the snapshot closest to (but not after) cutoff − window.
	priorCutoff := cutoff.AddDate(0, 0, -s.cfg.AtRiskWindowDays)
	var scoreSum float64
	scored := 0
	for _, userID := range members {
		latest, err := s.snaps.LatestSnapshotAtOrBefore(ctx, userID, cutoff)
		if err != nil {
			return domain.ClusterHealthSnapshot{}, fmt.Errorf("member %s snapshot: %w", userID, err)
		}
		if latest == nil {
			continue // never scored; cannot contribute or be flagged
		}
		scoreSum += float64(latest.Total)
		scored++

		prior, err := s.snaps.LatestSnapshotAtOrBefore(ctx, userID, priorCutoff)
		if err != nil {
			return domain.ClusterHealthSnapshot{}, fmt.Errorf("member %s prior snapshot: %w", userID, err)
		}
		if prior == nil {
			continue // no baseline → excluded from at-risk detection
		}
		if drop := prior.Total - latest.Total; drop > s.cfg.AtRiskDrop {
			snap.AtRisk = append(snap.AtRisk, domain.AtRiskMember{
				UserID:        userID,
				CurrentScore:  latest.Total,
				PreviousScore: prior.Total,
				Drop:          drop,
				DaysAgo:       int(cutoff.Sub(prior.ComputedAt).Hours() / 24),
			})
		}
	}

	if scored == 0 {
		snap.Status = domain.ClusterEmpty
	} else {
		snap.AvgScore = scoreSum / float64(scored)
		snap.Status = Classify(snap.AvgScore, s.cfg)
	}

	snap.OnTimeRate90d, err = s.onTimeRate(ctx, communityID, cutoff)
	if err != nil {
		return domain.ClusterHealthSnapshot{}, err
	}

	snap.ActiveBorrowerCount, err = s.store.ActiveBorrowerCount(ctx, communityID)
	if err != nil {
		return domain.ClusterHealthSnapshot{}, fmt.Errorf("active borrowers: %w", err)
	}

	disbursed, repaid, err := s.store.CommunityLoanTotals(ctx, communityID)
	if err != nil {
		return domain.ClusterHealthSnapshot{}, fmt.Errorf("loan totals: %w", err)
	}
	snap.TotalDisbursed = disbursed
	snap.TotalOutstanding = disbursed - repaid

	if err := s.health.InsertHealthSnapshot(ctx, snap); err != nil {
		return domain.ClusterHealthSnapshot{}, fmt.Errorf("persist health: %w", err)
	}

	observability.ClusterRun(string(snap.Status))
	if snap.Status == domain.ClusterFragile {
		log.Printf("[cluster] community=%s is FRAGILE (avg=%.1f)", communityID, snap.AvgScore)
	}
	if len(snap.AtRisk) > 0 {
		log.Printf("[cluster] community=%s has %d at-risk members", communityID, len(snap.AtRisk))
	}
	return snap, nil
}

// CommunityIDs lists every known community id.
func (s *Service) CommunityIDs(ctx context.Context) ([]string, error) {
	return s.store.ListCommunityIDs(ctx)
}

// Latest returns the most recent stored health record without recomputing.
func (s *Service) Latest(ctx context.Context, communityID string) (*domain.ClusterHealthSnapshot, error) {
	exists, err := s.store.CommunityExists(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("check community: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("community %s: %w", communityID, domain.ErrCommunityNotFound)
	}
	return s.health.LatestHealthSnapshot(ctx, communityID)
}

// onTimeRate computes the on-time repayment rate over installments due in
// the trailing window. No due installments → rate 0.
func (s *Service) onTimeRate(ctx context.Context, communityID string, cutoff time.Time) (float64, error) {
	from := cutoff.AddDate(0, 0, -s.cfg.OnTimeWindowDays)
	reps, err := s.store.CommunityRepaymentsDueBetween(ctx, communityID, from, cutoff)
	if err != nil {
		return 0, fmt.Errorf("window repayments: %w", err)
	}
	if len(reps) == 0 {
		return 0, nil
	}

	grace := time.Duration(s.cfg.GracePeriodDays) * 24 * time.Hour
	onTime := 0
	for _, r := range reps {
		if r.OnTime(grace) {
			onTime++
		}
	}
	return float64(onTime) / float64(len(reps)), nil
}

// ─── Bulk Recompute ─────────────────────────────────────────────────────────

// RecomputeAll computes health for every community with a small worker
// pool. Per-community failures are collected, not fatal.
func (s *Service) RecomputeAll(ctx context.Context, workers int) (computed, failed int, err error) {
	if workers <= 0 {
		workers = 4
	}

	ids, err := s.store.ListCommunityIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list communities: %w", err)
	}

	idCh := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idCh {
				_, cerr := s.Compute(ctx, id)
				mu.Lock()
				if cerr != nil {
					failed++
					log.Printf("[cluster] recompute community=%s failed: %v", id, cerr)
				} else {
					computed++
				}
				mu.Unlock()
			}
		}()
	}

loop:
	for _, id := range ids {
		select {
		case idCh <- id:
		case <-ctx.Done():
			break loop
		}
	}
	close(idCh)
	wg.Wait()

	if ctx.Err() != nil {
		return computed, failed, ctx.Err()
	}
	return computed, failed, nil
}
