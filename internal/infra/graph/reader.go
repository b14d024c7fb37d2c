package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Bounded-Depth Traversal ────────────────────────────────────────────────

const (
	// DefaultDepth is used when the caller does not specify one.
	DefaultDepth = 2

	// DefaultMaxDepth bounds every traversal. The relation may contain
	// cycles, so depth plus a visited-set is the only thing standing
	// between a viz query and an unbounded walk.
	DefaultMaxDepth = 5
)

// Reader runs read-only queries over an endorsement graph.
type Reader struct {
	store    domain.EndorsementGraph
	maxDepth int
}

// NewReader creates a Reader. maxDepth <= 0 falls back to DefaultMaxDepth.
func NewReader(store domain.EndorsementGraph, maxDepth int) *Reader {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Reader{store: store, maxDepth: maxDepth}
}

// MaxDepth returns the configured traversal bound.
func (r *Reader) MaxDepth() int { return r.maxDepth }

// Subgraph walks the endorsement relation breadth-first from rootID, in
// both edge directions, up to depth hops. The visited set is keyed by user
// id, so cycles (A vouches B, B vouches A) terminate. The result is the
// induced subgraph over the visited nodes: every active edge whose
// endpoints were both reached is included. Depth outside [1, maxDepth] is
// rejected before any graph access.
func (r *Reader) Subgraph(ctx context.Context, rootID string, depth int) (domain.Subgraph, error) {
	if depth < 1 || depth > r.maxDepth {
		return domain.Subgraph{}, fmt.Errorf("depth %d not in [1, %d]: %w", depth, r.maxDepth, domain.ErrInvalidDepth)
	}

	visited := map[string]int{rootID: 0}
	var edges []domain.Endorsement
	seenEdge := make(map[string]bool)
	frontier := []string{rootID}

	for hop := 1; hop <= depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			around, err := r.edgesAround(ctx, id)
			if err != nil {
				return domain.Subgraph{}, err
			}
			for _, e := range around {
				key := e.VoucherID + "\x00" + e.VoucheeID
				if !seenEdge[key] {
					seenEdge[key] = true
					edges = append(edges, e)
				}

				other := e.VoucherID
				if other == id {
					other = e.VoucheeID
				}
				if _, ok := visited[other]; !ok {
					visited[other] = hop
					next = append(next, other)
				}
			}
		}
		frontier = next
	}

	// Nodes found on the last hop were never scanned above, so edges
	// running between two of them are still missing. One more sweep over
	// that frontier, admitting only edges whose far endpoint was visited,
	// closes the induced subgraph.
	for _, id := range frontier {
		around, err := r.edgesAround(ctx, id)
		if err != nil {
			return domain.Subgraph{}, err
		}
		for _, e := range around {
			other := e.VoucherID
			if other == id {
				other = e.VoucheeID
			}
			if _, ok := visited[other]; !ok {
				continue
			}
			key := e.VoucherID + "\x00" + e.VoucheeID
			if !seenEdge[key] {
				seenEdge[key] = true
				edges = append(edges, e)
			}
		}
	}

	nodes := make([]domain.GraphNode, 0, len(visited))
	for id, d := range visited {
		nodes = append(nodes, domain.GraphNode{UserID: id, Depth: d})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].UserID < nodes[j].UserID
	})

	return domain.Subgraph{RootID: rootID, Depth: depth, Nodes: nodes, Edges: edges}, nil
}

// edgesAround returns the active edges touching id, in both directions.
func (r *Reader) edgesAround(ctx context.Context, id string) ([]domain.Endorsement, error) {
	out, err := r.store.ActiveEndorsees(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("endorsees of %s: %w", id, err)
	}
	in, err := r.store.ActiveEndorsers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("endorsers of %s: %w", id, err)
	}
	return append(out, in...), nil
}
