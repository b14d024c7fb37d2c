package daemon

import (
	"context"
	"log"
	"time"

	"github.com/sahayog-network/sahayog/internal/app/cluster"
	"github.com/sahayog-network/sahayog/internal/app/scoring"
	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Periodic Sweep ─────────────────────────────────────────────────────────
// The nightly sweep recomputes every user's score and every community's
// health. Event-driven triggers may land while a sweep is running; the
// engine's per-user lock makes the overlap safe.

// Sweeper runs the full recomputation on a fixed interval.
type Sweeper struct {
	engine   *scoring.Engine
	clusters *cluster.Service
	interval time.Duration
	workers  int
}

// NewSweeper creates a sweeper from the daemon's sweep configuration.
func NewSweeper(engine *scoring.Engine, clusters *cluster.Service, cfg SweepConfig) *Sweeper {
	return &Sweeper{
		engine:   engine,
		clusters: clusters,
		interval: cfg.IntervalDuration(),
		workers:  cfg.Workers,
	}
}

// Run sweeps once per interval until ctx is cancelled. The first sweep
// waits a full interval, so daemon startup stays fast.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[sweep] scheduled every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass: all users, then all communities, then alert
// logging for fragile clusters and at-risk members.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()

	scored, scoreFailed, err := s.engine.SweepAll(ctx)
	if err != nil {
		log.Printf("[sweep] user sweep aborted: %v", err)
		return
	}
	computed, healthFailed, err := s.clusters.RecomputeAll(ctx, s.workers)
	if err != nil {
		log.Printf("[sweep] cluster sweep aborted: %v", err)
		return
	}

	log.Printf("[sweep] done in %s: users=%d (failed=%d) communities=%d (failed=%d)",
		time.Since(start).Round(time.Millisecond), scored, scoreFailed, computed, healthFailed)
	s.logAlerts(ctx)
}

// logAlerts reports fragile communities and their at-risk members from the
// freshly stored health records.
func (s *Sweeper) logAlerts(ctx context.Context) {
	ids, err := s.clusters.CommunityIDs(ctx)
	if err != nil {
		log.Printf("[sweep] list communities for alerts: %v", err)
		return
	}
	for _, id := range ids {
		snap, err := s.clusters.Latest(ctx, id)
		if err != nil || snap == nil {
			continue
		}
		if snap.Status == domain.ClusterFragile {
			log.Printf("[alert] community=%s fragile: avg=%.1f members=%d on_time_90d=%.2f",
				id, snap.AvgScore, snap.MemberCount, snap.OnTimeRate90d)
		}
		for _, m := range snap.AtRisk {
			log.Printf("[alert] community=%s user=%s score dropped %d points (%d → %d)",
				id, m.UserID, m.Drop, m.PreviousScore, m.CurrentScore)
		}
	}
}
