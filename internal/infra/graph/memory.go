// Package graph maintains the directed weighted endorsement ("vouches-for")
// relation and the bounded-depth traversal over it.
//
// Two implementations of domain.EndorsementGraph are provided: a Neo4j
// client for deployments with a graph database, and a mutex-guarded
// in-memory adjacency store for tests and single-node setups.
package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// MemoryGraph is an in-memory adjacency structure keyed by user id.
// Thread-safe via RWMutex; reads may run with unbounded concurrency.
type MemoryGraph struct {
	mu sync.RWMutex

	// out[voucher][vouchee] and in[vouchee][voucher] hold the same edge.
	out map[string]map[string]domain.Endorsement
	in  map[string]map[string]domain.Endorsement
}

// NewMemoryGraph creates an empty endorsement graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		out: make(map[string]map[string]domain.Endorsement),
		in:  make(map[string]map[string]domain.Endorsement),
	}
}

// AddVouch inserts or replaces the edge voucher→vouchee.
func (g *MemoryGraph) AddVouch(_ context.Context, e domain.Endorsement) error {
	if err := validateVouch(e); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.out[e.VoucherID] == nil {
		g.out[e.VoucherID] = make(map[string]domain.Endorsement)
	}
	if g.in[e.VoucheeID] == nil {
		g.in[e.VoucheeID] = make(map[string]domain.Endorsement)
	}
	g.out[e.VoucherID][e.VoucheeID] = e
	g.in[e.VoucheeID][e.VoucherID] = e
	return nil
}

// RevokeVouch marks the active edge voucher→vouchee as revoked.
func (g *MemoryGraph) RevokeVouch(_ context.Context, voucherID, voucheeID string, at time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.out[voucherID][voucheeID]
	if !ok || !e.Active() {
		return fmt.Errorf("%s -> %s: %w", voucherID, voucheeID, domain.ErrVouchNotFound)
	}
	e.RevokedAt = &at
	g.out[voucherID][voucheeID] = e
	g.in[voucheeID][voucherID] = e
	return nil
}

// ActiveEndorsers lists non-revoked edges pointing at voucheeID.
func (g *MemoryGraph) ActiveEndorsers(_ context.Context, voucheeID string) ([]domain.Endorsement, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return activeEdges(g.in[voucheeID]), nil
}

// ActiveEndorsees lists non-revoked edges pointing from voucherID.
func (g *MemoryGraph) ActiveEndorsees(_ context.Context, voucherID string) ([]domain.Endorsement, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return activeEdges(g.out[voucherID]), nil
}

func activeEdges(m map[string]domain.Endorsement) []domain.Endorsement {
	edges := make([]domain.Endorsement, 0, len(m))
	for _, e := range m {
		if e.Active() {
			edges = append(edges, e)
		}
	}
	return edges
}

func validateVouch(e domain.Endorsement) error {
	if e.Weight <= 0 || e.Weight > 1 {
		return fmt.Errorf("weight %v: %w", e.Weight, domain.ErrInvalidVouchWeight)
	}
	if e.VoucherID == e.VoucheeID {
		return fmt.Errorf("user %s: %w", e.VoucherID, domain.ErrSelfVouch)
	}
	return nil
}
