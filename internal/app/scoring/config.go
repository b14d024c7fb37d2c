// Package scoring implements the weighted multi-factor trust scorer.
//
// Each user has 5 score components, each scaled to [0, 1000]:
//   - Repayment History: on-time installment rate within a grace window
//   - Community Tenure: months since earliest community membership
//   - Vouch Count: active endorsements received
//   - Voucher Reliability: weight-weighted average of endorsers' own scores
//   - Loan Volume: total principal successfully repaid
//
// Total = 0.40×repayment + 0.20×tenure + 0.15×vouch_count
//       + 0.15×voucher_reliability + 0.10×loan_volume
//
// A user with no loans, no memberships, and no endorsements bypasses the
// weighted formula entirely and receives the fixed cold-start score.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Constants ──────────────────────────────────────────────────────────────

const (
	// ScoreMax is the ceiling of every component and of the total.
	ScoreMax = 1000.0

	// NeutralRepaymentScore is returned when a user has no scheduled
	// repayments yet, so new borrowers are not penalized before their
	// first loan.
	NeutralRepaymentScore = 500.0

	// DaysPerMonth converts tenure days into months for scaling.
	DaysPerMonth = 30.0

	// weightTolerance absorbs float error when validating the weight table.
	weightTolerance = 1e-9
)

// ─── Weights ────────────────────────────────────────────────────────────────

// Weights is the fixed component weight table. The five weights must sum
// to exactly 1.0; deployments may tune the split without code changes.
type Weights struct {
	Repayment          float64 `toml:"repayment" json:"repayment"`
	Tenure             float64 `toml:"tenure" json:"tenure"`
	VouchCount         float64 `toml:"vouch_count" json:"vouch_count"`
	VoucherReliability float64 `toml:"voucher_reliability" json:"voucher_reliability"`
	LoanVolume         float64 `toml:"loan_volume" json:"loan_volume"`
}

// DefaultWeights returns the production weight split.
func DefaultWeights() Weights {
	return Weights{
		Repayment:          0.40,
		Tenure:             0.20,
		VouchCount:         0.15,
		VoucherReliability: 0.15,
		LoanVolume:         0.10,
	}
}

// Sum returns the total of all five weights.
func (w Weights) Sum() float64 {
	return w.Repayment + w.Tenure + w.VouchCount + w.VoucherReliability + w.LoanVolume
}

// Of returns the weight for a named component.
func (w Weights) Of(c domain.Component) float64 {
	switch c {
	case domain.ComponentRepayment:
		return w.Repayment
	case domain.ComponentTenure:
		return w.Tenure
	case domain.ComponentVouchCount:
		return w.VouchCount
	case domain.ComponentVoucherReliability:
		return w.VoucherReliability
	case domain.ComponentLoanVolume:
		return w.LoanVolume
	}
	return 0
}

// Validate checks the weight table sums to 1.0.
func (w Weights) Validate() error {
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("%w: got %v", domain.ErrBadWeights, w.Sum())
	}
	return nil
}

// ─── Configuration ──────────────────────────────────────────────────────────

// Config holds every scoring knob. Saturation ceilings and the grace
// period are deployment configuration, never hardcoded in the calculators.
type Config struct {
	GracePeriodDays         int     `toml:"grace_period_days" json:"grace_period_days"`
	TenureCeilingMonths     float64 `toml:"tenure_ceiling_months" json:"tenure_ceiling_months"`
	VouchCeilingCount       int     `toml:"vouch_ceiling_count" json:"vouch_ceiling_count"`
	LoanVolumeCeilingAmount float64 `toml:"loan_volume_ceiling_amount" json:"loan_volume_ceiling_amount"`

	// ColdStartScore is the fixed score for users with no history at all.
	ColdStartScore int `toml:"cold_start_score" json:"cold_start_score"`

	Weights Weights `toml:"weights" json:"weights"`
}

// DefaultConfig returns production scoring defaults.
func DefaultConfig() Config {
	return Config{
		GracePeriodDays:         3,
		TenureCeilingMonths:     24,
		VouchCeilingCount:       10,
		LoanVolumeCeilingAmount: 100_000, // ₹1 lakh
		ColdStartScore:          300,
		Weights:                 DefaultWeights(),
	}
}

// GracePeriod returns the grace window as a duration.
func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodDays) * 24 * time.Hour
}

// Validate checks the configuration is internally consistent.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.GracePeriodDays < 0 {
		return fmt.Errorf("grace_period_days must be >= 0, got %d", c.GracePeriodDays)
	}
	if c.TenureCeilingMonths <= 0 {
		return fmt.Errorf("tenure_ceiling_months must be > 0, got %v", c.TenureCeilingMonths)
	}
	if c.VouchCeilingCount <= 0 {
		return fmt.Errorf("vouch_ceiling_count must be > 0, got %d", c.VouchCeilingCount)
	}
	if c.LoanVolumeCeilingAmount <= 0 {
		return fmt.Errorf("loan_volume_ceiling_amount must be > 0, got %v", c.LoanVolumeCeilingAmount)
	}
	if c.ColdStartScore < 0 || c.ColdStartScore > int(ScoreMax) {
		return fmt.Errorf("cold_start_score must be in [0, %d], got %d", int(ScoreMax), c.ColdStartScore)
	}
	return nil
}
