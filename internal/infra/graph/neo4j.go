package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Neo4j-Backed Graph ─────────────────────────────────────────────────────
// Members are (:Member {user_id}) nodes connected by [:VOUCHES_FOR] edges
// carrying weight, created_at, and revoked_at (epoch milliseconds;
// revoked_at is null while the vouch is in force).

// Options configures the Neo4j connection.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// Neo4jGraph implements domain.EndorsementGraph over a Bolt connection.
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraph establishes a Bolt connection and verifies it.
func NewNeo4jGraph(ctx context.Context, opts Options) (*Neo4jGraph, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("graph URI is required")
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &Neo4jGraph{driver: driver, database: opts.Database}, nil
}

// Close releases the underlying driver.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// AddVouch inserts or replaces the edge voucher→vouchee.
func (g *Neo4jGraph) AddVouch(ctx context.Context, e domain.Endorsement) error {
	if err := validateVouch(e); err != nil {
		return err
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (a:Member {user_id: $voucher})
		MERGE (b:Member {user_id: $vouchee})
		MERGE (a)-[v:VOUCHES_FOR]->(b)
		SET v.weight = $weight, v.created_at = $created_at, v.revoked_at = null
	`, map[string]any{
		"voucher":    e.VoucherID,
		"vouchee":    e.VoucheeID,
		"weight":     e.Weight,
		"created_at": e.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("add vouch: %w", err)
	}
	return nil
}

// RevokeVouch marks the active edge voucher→vouchee as revoked.
func (g *Neo4jGraph) RevokeVouch(ctx context.Context, voucherID, voucheeID string, at time.Time) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, `
		MATCH (a:Member {user_id: $voucher})-[v:VOUCHES_FOR]->(b:Member {user_id: $vouchee})
		WHERE v.revoked_at IS NULL
		SET v.revoked_at = $at
		RETURN count(v) AS revoked
	`, map[string]any{
		"voucher": voucherID,
		"vouchee": voucheeID,
		"at":      at.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("revoke vouch: %w", err)
	}

	rec, err := res.Single(ctx)
	if err != nil {
		return fmt.Errorf("revoke vouch result: %w", err)
	}
	if n, _ := rec.Get("revoked"); n == int64(0) {
		return fmt.Errorf("%s -> %s: %w", voucherID, voucheeID, domain.ErrVouchNotFound)
	}
	return nil
}

// ActiveEndorsers lists non-revoked edges pointing at voucheeID.
func (g *Neo4jGraph) ActiveEndorsers(ctx context.Context, voucheeID string) ([]domain.Endorsement, error) {
	return g.activeEdges(ctx, `
		MATCH (a:Member)-[v:VOUCHES_FOR]->(b:Member {user_id: $id})
		WHERE v.revoked_at IS NULL
		RETURN a.user_id AS voucher_id, b.user_id AS vouchee_id,
		       v.weight AS weight, v.created_at AS created_at
	`, voucheeID)
}

// ActiveEndorsees lists non-revoked edges pointing from voucherID.
func (g *Neo4jGraph) ActiveEndorsees(ctx context.Context, voucherID string) ([]domain.Endorsement, error) {
	return g.activeEdges(ctx, `
		MATCH (a:Member {user_id: $id})-[v:VOUCHES_FOR]->(b:Member)
		WHERE v.revoked_at IS NULL
		RETURN a.user_id AS voucher_id, b.user_id AS vouchee_id,
		       v.weight AS weight, v.created_at AS created_at
	`, voucherID)
}

func (g *Neo4jGraph) activeEdges(ctx context.Context, cypher, userID string) ([]domain.Endorsement, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, map[string]any{"id": userID})
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}

	var edges []domain.Endorsement
	for res.Next(ctx) {
		rec := res.Record()
		e := domain.Endorsement{}
		if v, ok := rec.Get("voucher_id"); ok {
			e.VoucherID, _ = v.(string)
		}
		if v, ok := rec.Get("vouchee_id"); ok {
			e.VoucheeID, _ = v.(string)
		}
		if v, ok := rec.Get("weight"); ok {
			e.Weight, _ = v.(float64)
		}
		if v, ok := rec.Get("created_at"); ok {
			if ms, ok := v.(int64); ok {
				e.CreatedAt = time.UnixMilli(ms).UTC()
			}
		}
		edges = append(edges, e)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("consume edges: %w", err)
	}
	return edges, nil
}
