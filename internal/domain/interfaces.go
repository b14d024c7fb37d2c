package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// EventStore is the read-only query surface over the durable loan,
// repayment, and membership records. The scoring engine only ever reads
// these rows — they are written by the surrounding CRUD system.
type EventStore interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	CommunityExists(ctx context.Context, communityID string) (bool, error)
	ListCommunityIDs(ctx context.Context) ([]string, error)
	MemberIDs(ctx context.Context, communityID string) ([]string, error)

	// EarliestMembership returns the user's tenure anchor across all
	// communities, or nil if the user has never joined one.
	EarliestMembership(ctx context.Context, userID string) (*time.Time, error)
	MembershipCount(ctx context.Context, userID string) (int, error)

	LoansByBorrower(ctx context.Context, userID string) ([]Loan, error)
	RepaymentsByBorrower(ctx context.Context, userID string) ([]Repayment, error)
	RepaidPrincipal(ctx context.Context, userID string) (float64, error)

	CommunityRepaymentsDueBetween(ctx context.Context, communityID string, from, to time.Time) ([]Repayment, error)
	ActiveBorrowerCount(ctx context.Context, communityID string) (int, error)
	CommunityLoanTotals(ctx context.Context, communityID string) (disbursed, repaid float64, err error)
}

// SnapshotStore persists the append-only score history. AppendSnapshot must
// write the snapshot row and the user's latest-snapshot pointer atomically;
// a reader must never observe one without the other.
type SnapshotStore interface {
	// AppendSnapshot writes snap, or skips the write when the user's latest
	// snapshot already carries the same content hash. The returned snapshot
	// is the row now designated latest; written is false on the skip path.
	AppendSnapshot(ctx context.Context, snap ScoreSnapshot) (stored ScoreSnapshot, written bool, err error)

	LatestSnapshot(ctx context.Context, userID string) (*ScoreSnapshot, error)
	SnapshotHistory(ctx context.Context, userID string, limit int) ([]ScoreSnapshot, error)

	// LatestSnapshotAtOrBefore returns the snapshot with the greatest
	// ComputedAt not after cutoff, or nil if none exists.
	LatestSnapshotAtOrBefore(ctx context.Context, userID string, cutoff time.Time) (*ScoreSnapshot, error)
}

// HealthStore persists computed cluster health records so the read surface
// can serve the last run without recomputing.
type HealthStore interface {
	InsertHealthSnapshot(ctx context.Context, snap ClusterHealthSnapshot) error
	LatestHealthSnapshot(ctx context.Context, communityID string) (*ClusterHealthSnapshot, error)
}

// EndorsementGraph maintains the directed weighted vouch relation.
// Reads are side-effect-free and may run with unbounded concurrency.
type EndorsementGraph interface {
	AddVouch(ctx context.Context, e Endorsement) error
	RevokeVouch(ctx context.Context, voucherID, voucheeID string, at time.Time) error

	// ActiveEndorsers lists non-revoked edges pointing AT the user.
	ActiveEndorsers(ctx context.Context, voucheeID string) ([]Endorsement, error)
	// ActiveEndorsees lists non-revoked edges pointing FROM the user.
	ActiveEndorsees(ctx context.Context, voucherID string) ([]Endorsement, error)
}
