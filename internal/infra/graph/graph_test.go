package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahayog-network/sahayog/internal/domain"
)

var graphNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func vouch(t *testing.T, g *MemoryGraph, voucher, vouchee string, weight float64) {
	t.Helper()
	e := domain.Endorsement{VoucherID: voucher, VoucheeID: vouchee, Weight: weight, CreatedAt: graphNow}
	if err := g.AddVouch(context.Background(), e); err != nil {
		t.Fatalf("AddVouch %s->%s: %v", voucher, vouchee, err)
	}
}

func TestAddVouchValidation(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	tests := []struct {
		name string
		edge domain.Endorsement
		want error
	}{
		{"zero weight", domain.Endorsement{VoucherID: "a", VoucheeID: "b", Weight: 0}, domain.ErrInvalidVouchWeight},
		{"negative weight", domain.Endorsement{VoucherID: "a", VoucheeID: "b", Weight: -0.5}, domain.ErrInvalidVouchWeight},
		{"weight above one", domain.Endorsement{VoucherID: "a", VoucheeID: "b", Weight: 1.5}, domain.ErrInvalidVouchWeight},
		{"self vouch", domain.Endorsement{VoucherID: "a", VoucheeID: "a", Weight: 0.5}, domain.ErrSelfVouch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := g.AddVouch(ctx, tc.edge); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// Maximum legal weight is accepted.
	if err := g.AddVouch(ctx, domain.Endorsement{VoucherID: "a", VoucheeID: "b", Weight: 1.0, CreatedAt: graphNow}); err != nil {
		t.Errorf("weight 1.0 rejected: %v", err)
	}
}

func TestRevokeVouch(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	vouch(t, g, "a", "b", 0.8)

	if err := g.RevokeVouch(ctx, "a", "b", graphNow); err != nil {
		t.Fatalf("RevokeVouch: %v", err)
	}
	endorsers, err := g.ActiveEndorsers(ctx, "b")
	if err != nil {
		t.Fatalf("ActiveEndorsers: %v", err)
	}
	if len(endorsers) != 0 {
		t.Errorf("revoked edge still active: %+v", endorsers)
	}

	// Revoking twice, or revoking a missing edge, fails the same way.
	if err := g.RevokeVouch(ctx, "a", "b", graphNow); !errors.Is(err, domain.ErrVouchNotFound) {
		t.Errorf("double revoke err = %v, want ErrVouchNotFound", err)
	}
	if err := g.RevokeVouch(ctx, "x", "y", graphNow); !errors.Is(err, domain.ErrVouchNotFound) {
		t.Errorf("missing edge err = %v, want ErrVouchNotFound", err)
	}
}

func TestActiveEndorsersBothDirections(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	vouch(t, g, "a", "c", 0.9)
	vouch(t, g, "b", "c", 0.7)
	vouch(t, g, "c", "d", 0.5)

	in, err := g.ActiveEndorsers(ctx, "c")
	if err != nil {
		t.Fatalf("ActiveEndorsers: %v", err)
	}
	if len(in) != 2 {
		t.Errorf("endorsers of c = %d, want 2", len(in))
	}
	out, err := g.ActiveEndorsees(ctx, "c")
	if err != nil {
		t.Fatalf("ActiveEndorsees: %v", err)
	}
	if len(out) != 1 || out[0].VoucheeID != "d" {
		t.Errorf("endorsees of c = %+v, want only d", out)
	}
}

func TestSubgraphDepthValidation(t *testing.T) {
	r := NewReader(NewMemoryGraph(), DefaultMaxDepth)
	for _, depth := range []int{0, -1, 6} {
		_, err := r.Subgraph(context.Background(), "a", depth)
		if !errors.Is(err, domain.ErrInvalidDepth) {
			t.Errorf("depth %d: err = %v, want ErrInvalidDepth", depth, err)
		}
	}
}

// A ↔ B cycle at depth 3: the traversal must terminate with both nodes and
// both edges, not loop.
func TestSubgraphCycleTerminates(t *testing.T) {
	g := NewMemoryGraph()
	vouch(t, g, "a", "b", 0.8)
	vouch(t, g, "b", "a", 0.6)

	sub, err := NewReader(g, DefaultMaxDepth).Subgraph(context.Background(), "a", 3)
	if err != nil {
		t.Fatalf("Subgraph: %v", err)
	}
	if len(sub.Nodes) != 2 {
		t.Fatalf("nodes = %+v, want exactly a and b", sub.Nodes)
	}
	if sub.Nodes[0].UserID != "a" || sub.Nodes[0].Depth != 0 {
		t.Errorf("root node = %+v, want a at depth 0", sub.Nodes[0])
	}
	if sub.Nodes[1].UserID != "b" || sub.Nodes[1].Depth != 1 {
		t.Errorf("second node = %+v, want b at depth 1", sub.Nodes[1])
	}
	if len(sub.Edges) != 2 {
		t.Errorf("edges = %+v, want both directions exactly once", sub.Edges)
	}
}

func TestSubgraphBoundedDepth(t *testing.T) {
	// Chain a → b → c → d; at depth 2 node d must be invisible.
	g := NewMemoryGraph()
	vouch(t, g, "a", "b", 0.9)
	vouch(t, g, "b", "c", 0.9)
	vouch(t, g, "c", "d", 0.9)

	sub, err := NewReader(g, DefaultMaxDepth).Subgraph(context.Background(), "a", 2)
	if err != nil {
		t.Fatalf("Subgraph: %v", err)
	}
	got := make(map[string]int, len(sub.Nodes))
	for _, n := range sub.Nodes {
		got[n.UserID] = n.Depth
	}
	want := map[string]int{"a": 0, "b": 1, "c": 2}
	if len(got) != len(want) {
		t.Fatalf("nodes = %v, want %v", got, want)
	}
	for id, d := range want {
		if got[id] != d {
			t.Errorf("node %s depth = %d, want %d", id, got[id], d)
		}
	}
}

func TestSubgraphInducedEdgesAtFinalHop(t *testing.T) {
	// Triangle a → b, a → c, b → c. At depth 1, b and c are both on the
	// final frontier; the edge running between them still belongs to the
	// induced subgraph.
	g := NewMemoryGraph()
	vouch(t, g, "a", "b", 0.9)
	vouch(t, g, "a", "c", 0.9)
	vouch(t, g, "b", "c", 0.9)

	sub, err := NewReader(g, DefaultMaxDepth).Subgraph(context.Background(), "a", 1)
	if err != nil {
		t.Fatalf("Subgraph: %v", err)
	}
	if len(sub.Nodes) != 3 {
		t.Fatalf("nodes = %+v, want a, b, c", sub.Nodes)
	}
	if len(sub.Edges) != 3 {
		t.Errorf("edges = %+v, want all three including b → c", sub.Edges)
	}
	for _, e := range sub.Edges {
		if e.VoucherID == "b" && e.VoucheeID == "c" {
			return
		}
	}
	t.Errorf("edge b → c missing from %+v", sub.Edges)
}

func TestSubgraphExcludesRevokedEdges(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	vouch(t, g, "a", "b", 0.9)
	vouch(t, g, "a", "c", 0.9)
	if err := g.RevokeVouch(ctx, "a", "c", graphNow); err != nil {
		t.Fatalf("RevokeVouch: %v", err)
	}

	sub, err := NewReader(g, DefaultMaxDepth).Subgraph(ctx, "a", 2)
	if err != nil {
		t.Fatalf("Subgraph: %v", err)
	}
	for _, n := range sub.Nodes {
		if n.UserID == "c" {
			t.Error("revoked edge pulled node c into the subgraph")
		}
	}
	if len(sub.Edges) != 1 {
		t.Errorf("edges = %+v, want only a->b", sub.Edges)
	}
}
