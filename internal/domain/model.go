// Package domain contains the core lending-network types and the store
// interfaces the application layer depends on. It imports no
// infrastructure.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ─── Identity Types ─────────────────────────────────────────────────────────

// User is a member of the lending network.
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"created_at"`
	LatestSnapshotID string    `json:"latest_snapshot_id,omitempty"`
}

// Community is a lending circle whose members' scores roll up into one
// health classification.
type Community struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // e.g. "shg", "cooperative", "village"
	CreatedAt time.Time `json:"created_at"`
}

// Membership links a user to a community. A user may belong to many
// communities; tenure is anchored on the earliest JoinedAt across all of
// them, not per community.
type Membership struct {
	UserID      string    `json:"user_id"`
	CommunityID string    `json:"community_id"`
	JoinedAt    time.Time `json:"joined_at"`
	Active      bool      `json:"active"`
}

// ─── Endorsement Types ──────────────────────────────────────────────────────

// Endorsement is a directed, weighted "vouches-for" edge. It is a relation
// between two users, never an ownership. Cycles are legal.
type Endorsement struct {
	VoucherID string     `json:"voucher_id"`
	VoucheeID string     `json:"vouchee_id"`
	Weight    float64    `json:"weight"` // ∈ (0, 1]
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the vouch is currently in force.
func (e Endorsement) Active() bool {
	return e.RevokedAt == nil
}

// ─── Loan & Repayment Types ─────────────────────────────────────────────────

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanDisbursed LoanStatus = "disbursed"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

// Terminal reports whether the loan has reached a final state.
func (s LoanStatus) Terminal() bool {
	return s == LoanRepaid || s == LoanDefaulted
}

// Loan is a community loan. Principal is in the network's base currency (INR).
type Loan struct {
	ID          string     `json:"id"`
	BorrowerID  string     `json:"borrower_id"`
	CommunityID string     `json:"community_id"`
	Principal   float64    `json:"principal"`
	Status      LoanStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Repayment is one scheduled installment of a loan. PaidAt is nil until the
// installment is actually paid.
type Repayment struct {
	ID     string     `json:"id"`
	LoanID string     `json:"loan_id"`
	Amount float64    `json:"amount"`
	DueAt  time.Time  `json:"due_at"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// Paid reports whether the installment has been paid.
func (r Repayment) Paid() bool { return r.PaidAt != nil }

// OnTime reports whether the installment was paid within the grace window.
func (r Repayment) OnTime(grace time.Duration) bool {
	return r.PaidAt != nil && !r.PaidAt.After(r.DueAt.Add(grace))
}

// ─── Score Snapshot Types ───────────────────────────────────────────────────

// Component names one of the five score sub-factors.
type Component string

const (
	ComponentRepayment          Component = "repayment_history"
	ComponentTenure             Component = "community_tenure"
	ComponentVouchCount         Component = "vouch_count"
	ComponentVoucherReliability Component = "voucher_reliability"
	ComponentLoanVolume         Component = "loan_volume"
)

// Components lists all sub-factors in canonical order.
func Components() []Component {
	return []Component{
		ComponentRepayment,
		ComponentTenure,
		ComponentVouchCount,
		ComponentVoucherReliability,
		ComponentLoanVolume,
	}
}

// ComponentScore is one sub-factor's raw value and its weighted share of
// the total, kept for explainability.
type ComponentScore struct {
	Raw          float64 `json:"raw"`    // ∈ [0, 1000]
	Weight       float64 `json:"weight"` // fixed weight, Σ = 1.0
	Contribution float64 `json:"contribution"`
}

// ScoreSnapshot is one immutable scoring record. The sequence of snapshots
// per user is the user's score history. Snapshots are append-only — never
// mutated or deleted once written.
type ScoreSnapshot struct {
	ID          string                       `json:"id"`
	UserID      string                       `json:"user_id"`
	ComputedAt  time.Time                    `json:"computed_at"`
	Total       int                          `json:"total"` // ∈ [0, 1000]
	ColdStart   bool                         `json:"cold_start"`
	Components  map[Component]ComponentScore `json:"components"`
	ContentHash string                       `json:"content_hash"`
	Explanation string                       `json:"explanation,omitempty"`
}

// ─── Cluster Health Types ───────────────────────────────────────────────────

// ClusterStatus classifies a community's aggregate health.
type ClusterStatus string

const (
	ClusterStable  ClusterStatus = "stable"
	ClusterGrowing ClusterStatus = "growing"
	ClusterFragile ClusterStatus = "fragile"
	ClusterEmpty   ClusterStatus = "empty" // no scored members to average
)

// AtRiskMember records a member whose score dropped sharply inside the
// at-risk window.
type AtRiskMember struct {
	UserID        string `json:"user_id"`
	CurrentScore  int    `json:"current_score"`
	PreviousScore int    `json:"previous_score"`
	Drop          int    `json:"drop"`
	DaysAgo       int    `json:"days_ago"`
}

// ClusterHealthSnapshot is one computed health record for a community.
type ClusterHealthSnapshot struct {
	ID                  string         `json:"id"`
	CommunityID         string         `json:"community_id"`
	ComputedAt          time.Time      `json:"computed_at"` // the run's fixed cutoff
	MemberCount         int            `json:"member_count"`
	AvgScore            float64        `json:"avg_score"`
	OnTimeRate90d       float64        `json:"on_time_rate_90d"`
	ActiveBorrowerCount int            `json:"active_borrower_count"`
	TotalDisbursed      float64        `json:"total_disbursed"`
	TotalOutstanding    float64        `json:"total_outstanding"`
	Status              ClusterStatus  `json:"status"`
	AtRisk              []AtRiskMember `json:"at_risk_members"`
}

// ─── Recomputation Trigger Types ────────────────────────────────────────────

// TriggerReason is the explicit reason code carried by a recomputation job.
type TriggerReason string

const (
	ReasonRepayment    TriggerReason = "repayment_logged"
	ReasonVouchCreated TriggerReason = "vouch_created"
	ReasonVouchRevoked TriggerReason = "vouch_revoked"
	ReasonMembership   TriggerReason = "membership_created"
	ReasonSweep        TriggerReason = "periodic_sweep"
	ReasonManual       TriggerReason = "manual_request"
)

// Valid reports whether r is one of the defined reason codes. Reasons end
// up as metric labels, so callers must reject free-form values.
func (r TriggerReason) Valid() bool {
	switch r {
	case ReasonRepayment, ReasonVouchCreated, ReasonVouchRevoked,
		ReasonMembership, ReasonSweep, ReasonManual:
		return true
	}
	return false
}

// ─── Graph View Types ───────────────────────────────────────────────────────

// GraphNode is one user in an endorsement subgraph view.
type GraphNode struct {
	UserID string `json:"user_id"`
	Depth  int    `json:"depth"` // hops from the root user
}

// Subgraph is the induced endorsement subgraph around a root user, bounded
// by traversal depth. Used by the visualization query.
type Subgraph struct {
	RootID string        `json:"root_id"`
	Depth  int           `json:"depth"`
	Nodes  []GraphNode   `json:"nodes"`
	Edges  []Endorsement `json:"edges"`
}

// ─── Utilities ──────────────────────────────────────────────────────────────

// SHA256Hex computes SHA-256 hash and returns hex string.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
