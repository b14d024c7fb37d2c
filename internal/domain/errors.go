package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Callers match these with errors.Is; the API layer maps them to HTTP
// status codes.

var (
	// Identity errors
	ErrUserNotFound      = errors.New("user not found")
	ErrCommunityNotFound = errors.New("community not found")
	ErrLoanNotFound      = errors.New("loan not found")

	// Endorsement errors
	ErrInvalidVouchWeight = errors.New("vouch weight must be in (0, 1]")
	ErrSelfVouch          = errors.New("a user cannot vouch for themselves")
	ErrVouchNotFound      = errors.New("vouch relationship not found")

	// Graph traversal errors
	ErrInvalidDepth = errors.New("traversal depth outside allowed range")

	// Snapshot errors
	ErrNoSnapshot = errors.New("user has no score snapshot yet")

	// Configuration errors
	ErrBadWeights = errors.New("component weights must sum to 1.0")
)
