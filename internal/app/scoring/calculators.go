package scoring

import (
	"math"
	"time"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Component Calculators ──────────────────────────────────────────────────
// Each calculator is a pure function from one user's event slice to a
// score in [0, 1000]. The engine gathers inputs and feeds them in; the
// calculators hold no state and hit no store.

// RepaymentHistoryScore scores the on-time installment rate.
//
//	rate = on-time repayments / scheduled repayments due to date
//
// A repayment counts as on-time when paid within DueAt + grace. Scheduled
// installments with no due date yet reached are not counted against the
// borrower. With zero scheduled repayments the neutral default is
// returned — a missing history is not a bad history.
func RepaymentHistoryScore(reps []domain.Repayment, grace time.Duration, now time.Time) float64 {
	scheduled := 0
	onTime := 0
	for _, r := range reps {
		if r.DueAt.After(now) {
			continue // not yet due
		}
		scheduled++
		if r.OnTime(grace) {
			onTime++
		}
	}

	if scheduled == 0 {
		return NeutralRepaymentScore
	}
	return float64(onTime) / float64(scheduled) * ScoreMax
}

// TenureScore scores months elapsed since the user's earliest membership,
// linearly scaled against the saturation ceiling. A nil anchor (never
// joined a community) scores zero.
func TenureScore(earliestJoin *time.Time, ceilingMonths float64, now time.Time) float64 {
	if earliestJoin == nil || earliestJoin.After(now) {
		return 0
	}
	months := now.Sub(*earliestJoin).Hours() / 24 / DaysPerMonth
	return math.Min(months/ceilingMonths, 1.0) * ScoreMax
}

// VouchCountScore scores the number of active (non-revoked) endorsements
// received, linearly scaled against the saturation ceiling.
func VouchCountScore(activeVouches, ceiling int) float64 {
	if activeVouches <= 0 {
		return 0
	}
	return math.Min(float64(activeVouches)/float64(ceiling), 1.0) * ScoreMax
}

// WeightedScore pairs one endorser's vouch weight with that endorser's own
// latest total score (or the cold-start score when unscored).
type WeightedScore struct {
	Weight float64
	Score  float64
}

// VoucherReliabilityScore computes the weight-weighted average of the
// endorsers' own scores. Endorser scores are already in [0, 1000], so the
// result is too. With no active endorsers the component scores zero.
func VoucherReliabilityScore(endorsers []WeightedScore) float64 {
	var weighted, total float64
	for _, e := range endorsers {
		if e.Weight <= 0 {
			continue
		}
		weighted += e.Weight * e.Score
		total += e.Weight
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// LoanVolumeScore scores total principal across fully repaid loans,
// linearly scaled against the saturation ceiling.
func LoanVolumeScore(repaidPrincipal, ceilingAmount float64) float64 {
	if repaidPrincipal <= 0 {
		return 0
	}
	return math.Min(repaidPrincipal/ceilingAmount, 1.0) * ScoreMax
}
