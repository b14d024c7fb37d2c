package scoring

import (
	"testing"
	"time"

	"github.com/sahayog-network/sahayog/internal/domain"
)

var calcNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const grace = 3 * 24 * time.Hour

func paidAt(t time.Time) *time.Time { return &t }

func TestRepaymentHistoryScore(t *testing.T) {
	due := calcNow.AddDate(0, 0, -10)
	tests := []struct {
		name string
		reps []domain.Repayment
		want float64
	}{
		{
			name: "no scheduled repayments is neutral",
			reps: nil,
			want: NeutralRepaymentScore,
		},
		{
			name: "all on time",
			reps: []domain.Repayment{
				{DueAt: due, PaidAt: paidAt(due.Add(-time.Hour))},
				{DueAt: due, PaidAt: paidAt(due.Add(24 * time.Hour))},
			},
			want: 1000,
		},
		{
			name: "half on time",
			reps: []domain.Repayment{
				{DueAt: due, PaidAt: paidAt(due)},
				{DueAt: due, PaidAt: paidAt(due.AddDate(0, 0, 10))},
			},
			want: 500,
		},
		{
			name: "unpaid overdue counts against",
			reps: []domain.Repayment{
				{DueAt: due},
			},
			want: 0,
		},
		{
			name: "paid exactly at grace boundary is on time",
			reps: []domain.Repayment{
				{DueAt: due, PaidAt: paidAt(due.Add(grace))},
			},
			want: 1000,
		},
		{
			name: "paid one second past grace is late",
			reps: []domain.Repayment{
				{DueAt: due, PaidAt: paidAt(due.Add(grace + time.Second))},
			},
			want: 0,
		},
		{
			name: "not yet due is excluded",
			reps: []domain.Repayment{
				{DueAt: due, PaidAt: paidAt(due)},
				{DueAt: calcNow.AddDate(0, 1, 0)},
			},
			want: 1000,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RepaymentHistoryScore(tc.reps, grace, calcNow); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRepaymentHistoryScoreMonotonic(t *testing.T) {
	due := calcNow.AddDate(0, 0, -10)
	history := []domain.Repayment{
		{DueAt: due, PaidAt: paidAt(due)},
		{DueAt: due, PaidAt: paidAt(due.AddDate(0, 0, 10))},
		{DueAt: due},
	}
	prev := RepaymentHistoryScore(history, grace, calcNow)

	// Each additional on-time repayment may only hold or raise the score.
	for i := 0; i < 20; i++ {
		history = append(history, domain.Repayment{DueAt: due, PaidAt: paidAt(due)})
		got := RepaymentHistoryScore(history, grace, calcNow)
		if got < prev {
			t.Fatalf("score dropped from %v to %v after on-time repayment %d", prev, got, i+1)
		}
		prev = got
	}
}

func TestTenureScore(t *testing.T) {
	year := calcNow.AddDate(-1, 0, 0)
	old := calcNow.AddDate(-5, 0, 0)
	future := calcNow.AddDate(0, 1, 0)
	tests := []struct {
		name    string
		joined  *time.Time
		ceiling float64
		want    float64
	}{
		{"never joined", nil, 24, 0},
		{"saturates at ceiling", &old, 24, 1000},
		{"future join date", &future, 24, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TenureScore(tc.joined, tc.ceiling, calcNow); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}

	// 365 days / 30 ≈ 12.17 months against a 24-month ceiling.
	got := TenureScore(&year, 24, calcNow)
	if got < 500 || got > 512 {
		t.Errorf("one year tenure = %v, want ≈ half of ceiling", got)
	}
}

func TestVouchCountScore(t *testing.T) {
	tests := []struct {
		vouches int
		want    float64
	}{
		{0, 0},
		{-1, 0},
		{5, 500},
		{10, 1000},
		{25, 1000}, // saturates
	}
	for _, tc := range tests {
		if got := VouchCountScore(tc.vouches, 10); got != tc.want {
			t.Errorf("VouchCountScore(%d) = %v, want %v", tc.vouches, got, tc.want)
		}
	}
}

func TestVoucherReliabilityScore(t *testing.T) {
	tests := []struct {
		name      string
		endorsers []WeightedScore
		want      float64
	}{
		{"no endorsers", nil, 0},
		{"single full-weight endorser", []WeightedScore{{Weight: 1, Score: 600}}, 600},
		{
			"weighted mix",
			[]WeightedScore{{Weight: 1, Score: 800}, {Weight: 0.5, Score: 200}},
			600, // (1×800 + 0.5×200) / 1.5
		},
		{"zero weights ignored", []WeightedScore{{Weight: 0, Score: 1000}}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := VoucherReliabilityScore(tc.endorsers); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLoanVolumeScore(t *testing.T) {
	tests := []struct {
		repaid float64
		want   float64
	}{
		{0, 0},
		{50_000, 500},
		{100_000, 1000},
		{350_000, 1000}, // saturates
	}
	for _, tc := range tests {
		if got := LoanVolumeScore(tc.repaid, 100_000); got != tc.want {
			t.Errorf("LoanVolumeScore(%v) = %v, want %v", tc.repaid, got, tc.want)
		}
	}
}

func TestComponentScoresStayInRange(t *testing.T) {
	reps := []domain.Repayment{
		{DueAt: calcNow.AddDate(0, 0, -5), PaidAt: paidAt(calcNow)},
		{DueAt: calcNow.AddDate(0, 0, -40)},
	}
	old := calcNow.AddDate(-10, 0, 0)
	values := []float64{
		RepaymentHistoryScore(reps, grace, calcNow),
		TenureScore(&old, 24, calcNow),
		VouchCountScore(1000, 10),
		VoucherReliabilityScore([]WeightedScore{{Weight: 0.2, Score: 1000}}),
		LoanVolumeScore(1e9, 100_000),
	}
	for i, v := range values {
		if v < 0 || v > ScoreMax {
			t.Errorf("component %d = %v, outside [0, %v]", i, v, ScoreMax)
		}
	}
}
