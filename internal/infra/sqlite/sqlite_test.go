package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahayog-network/sahayog/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustUser(t *testing.T, db *DB, id string) {
	t.Helper()
	if err := db.InsertUser(context.Background(), domain.User{ID: id, Name: id, CreatedAt: testNow.AddDate(-1, 0, 0)}); err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
}

func mustCommunity(t *testing.T, db *DB, id string) {
	t.Helper()
	if err := db.InsertCommunity(context.Background(), domain.Community{ID: id, Name: id, Type: "shg", CreatedAt: testNow.AddDate(-1, 0, 0)}); err != nil {
		t.Fatalf("insert community %s: %v", id, err)
	}
}

func snapFor(userID string, total int, at time.Time, hash string) domain.ScoreSnapshot {
	return domain.ScoreSnapshot{
		ID:          userID + "-" + hash,
		UserID:      userID,
		ComputedAt:  at,
		Total:       total,
		Components:  map[domain.Component]domain.ComponentScore{domain.ComponentRepayment: {Raw: float64(total), Weight: 0.4, Contribution: float64(total) * 0.4}},
		ContentHash: hash,
		Explanation: "test",
	}
}

func TestAppendSnapshotAndPointer(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustUser(t, db, "alice")

	stored, written, err := db.AppendSnapshot(ctx, snapFor("alice", 600, testNow, "h1"))
	if err != nil {
		t.Fatalf("AppendSnapshot: %v", err)
	}
	if !written {
		t.Fatal("first append reported written=false")
	}

	latest, err := db.LatestSnapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest == nil || latest.ID != stored.ID || latest.Total != 600 {
		t.Fatalf("latest = %+v, want the appended row", latest)
	}
	if latest.Components[domain.ComponentRepayment].Raw != 600 {
		t.Errorf("components did not round-trip: %+v", latest.Components)
	}
	if !latest.ComputedAt.Equal(testNow) {
		t.Errorf("computed_at = %v, want %v", latest.ComputedAt, testNow)
	}
}

func TestAppendSnapshotSkipsDuplicateHash(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustUser(t, db, "alice")

	first, _, err := db.AppendSnapshot(ctx, snapFor("alice", 600, testNow, "same"))
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	dup := snapFor("alice", 600, testNow.Add(time.Hour), "same")
	stored, written, err := db.AppendSnapshot(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate append: %v", err)
	}
	if written {
		t.Error("duplicate hash reported written=true")
	}
	if stored.ID != first.ID {
		t.Errorf("duplicate returned id %s, want existing %s", stored.ID, first.ID)
	}

	history, err := db.SnapshotHistory(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("SnapshotHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}

	// A changed hash resumes appending.
	if _, written, err := db.AppendSnapshot(ctx, snapFor("alice", 650, testNow.Add(2*time.Hour), "other")); err != nil || !written {
		t.Fatalf("changed hash: written=%t err=%v, want true/nil", written, err)
	}
}

func TestSnapshotHistoryOrderAndLimit(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustUser(t, db, "bob")

	for i, h := range []string{"a", "b", "c"} {
		snap := snapFor("bob", 500+i, testNow.Add(time.Duration(i)*time.Hour), h)
		if _, _, err := db.AppendSnapshot(ctx, snap); err != nil {
			t.Fatalf("append %s: %v", h, err)
		}
	}

	history, err := db.SnapshotHistory(ctx, "bob", 2)
	if err != nil {
		t.Fatalf("SnapshotHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].ContentHash != "c" || history[1].ContentHash != "b" {
		t.Errorf("history order = %s, %s; want newest first", history[0].ContentHash, history[1].ContentHash)
	}
}

func TestLatestSnapshotAtOrBefore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustUser(t, db, "carol")

	old := testNow.AddDate(0, 0, -40)
	mid := testNow.AddDate(0, 0, -20)
	for _, s := range []domain.ScoreSnapshot{
		snapFor("carol", 700, old, "old"),
		snapFor("carol", 650, mid, "mid"),
		snapFor("carol", 600, testNow, "new"),
	} {
		if _, _, err := db.AppendSnapshot(ctx, s); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	tests := []struct {
		cutoff time.Time
		want   string // content hash; "" means nil
	}{
		{testNow, "new"},
		{testNow.AddDate(0, 0, -1), "mid"},
		{mid, "mid"}, // cutoff is inclusive
		{testNow.AddDate(0, 0, -30), "old"},
		{testNow.AddDate(0, 0, -50), ""},
	}
	for _, tc := range tests {
		got, err := db.LatestSnapshotAtOrBefore(ctx, "carol", tc.cutoff)
		if err != nil {
			t.Fatalf("LatestSnapshotAtOrBefore(%v): %v", tc.cutoff, err)
		}
		if tc.want == "" {
			if got != nil {
				t.Errorf("cutoff %v: got %+v, want nil", tc.cutoff, got)
			}
			continue
		}
		if got == nil || got.ContentHash != tc.want {
			t.Errorf("cutoff %v: got %+v, want hash %s", tc.cutoff, got, tc.want)
		}
	}
}

func TestLatestSnapshotUnscoredUser(t *testing.T) {
	db := setupDB(t)
	mustUser(t, db, "dan")
	got, err := db.LatestSnapshot(context.Background(), "dan")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for unscored user", got)
	}
}

func TestMembershipQueries(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustUser(t, db, "esha")
	mustCommunity(t, db, "shg-1")
	mustCommunity(t, db, "shg-2")

	later := testNow.AddDate(0, -2, 0)
	earlier := testNow.AddDate(0, -8, 0)
	for _, m := range []domain.Membership{
		{UserID: "esha", CommunityID: "shg-1", JoinedAt: later, Active: true},
		{UserID: "esha", CommunityID: "shg-2", JoinedAt: earlier, Active: true},
	} {
		if err := db.AddMembership(ctx, m); err != nil {
			t.Fatalf("add membership: %v", err)
		}
	}

	got, err := db.EarliestMembership(ctx, "esha")
	if err != nil {
		t.Fatalf("EarliestMembership: %v", err)
	}
	if got == nil || !got.Equal(earlier) {
		t.Errorf("earliest = %v, want %v", got, earlier)
	}
	n, err := db.MembershipCount(ctx, "esha")
	if err != nil {
		t.Fatalf("MembershipCount: %v", err)
	}
	if n != 2 {
		t.Errorf("membership count = %d, want 2", n)
	}
	members, err := db.MemberIDs(ctx, "shg-1")
	if err != nil {
		t.Fatalf("MemberIDs: %v", err)
	}
	if len(members) != 1 || members[0] != "esha" {
		t.Errorf("members = %v, want [esha]", members)
	}

	mustUser(t, db, "nobody")
	none, err := db.EarliestMembership(ctx, "nobody")
	if err != nil {
		t.Fatalf("EarliestMembership: %v", err)
	}
	if none != nil {
		t.Errorf("earliest for non-member = %v, want nil", none)
	}
}

func TestLoanAndRepaymentQueries(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustUser(t, db, "farid")
	mustCommunity(t, db, "shg-1")

	loans := []domain.Loan{
		{ID: "l1", BorrowerID: "farid", CommunityID: "shg-1", Principal: 30_000, Status: domain.LoanRepaid, CreatedAt: testNow.AddDate(0, -8, 0)},
		{ID: "l2", BorrowerID: "farid", CommunityID: "shg-1", Principal: 20_000, Status: domain.LoanDisbursed, CreatedAt: testNow.AddDate(0, -2, 0)},
	}
	for _, l := range loans {
		if err := db.InsertLoan(ctx, l); err != nil {
			t.Fatalf("insert loan: %v", err)
		}
	}

	due := testNow.AddDate(0, 0, -15)
	paid := due.Add(24 * time.Hour)
	reps := []domain.Repayment{
		{ID: "r1", LoanID: "l1", Amount: 15_000, DueAt: due, PaidAt: &paid},
		{ID: "r2", LoanID: "l2", Amount: 5_000, DueAt: due},
	}
	for _, r := range reps {
		if err := db.ScheduleRepayment(ctx, r); err != nil {
			t.Fatalf("schedule repayment: %v", err)
		}
	}

	repaid, err := db.RepaidPrincipal(ctx, "farid")
	if err != nil {
		t.Fatalf("RepaidPrincipal: %v", err)
	}
	if repaid != 30_000 {
		t.Errorf("repaid principal = %v, want only the repaid loan's 30000", repaid)
	}

	byBorrower, err := db.RepaymentsByBorrower(ctx, "farid")
	if err != nil {
		t.Fatalf("RepaymentsByBorrower: %v", err)
	}
	if len(byBorrower) != 2 {
		t.Errorf("repayments = %d, want 2", len(byBorrower))
	}

	window, err := db.CommunityRepaymentsDueBetween(ctx, "shg-1", testNow.AddDate(0, 0, -30), testNow)
	if err != nil {
		t.Fatalf("CommunityRepaymentsDueBetween: %v", err)
	}
	if len(window) != 2 {
		t.Errorf("window repayments = %d, want 2", len(window))
	}

	active, err := db.ActiveBorrowerCount(ctx, "shg-1")
	if err != nil {
		t.Fatalf("ActiveBorrowerCount: %v", err)
	}
	if active != 1 {
		t.Errorf("active borrowers = %d, want 1 (repaid loan excluded)", active)
	}

	disbursed, repaidAmt, err := db.CommunityLoanTotals(ctx, "shg-1")
	if err != nil {
		t.Fatalf("CommunityLoanTotals: %v", err)
	}
	if disbursed != 50_000 {
		t.Errorf("disbursed = %v, want 50000", disbursed)
	}
	if repaidAmt != 15_000 {
		t.Errorf("repaid amount = %v, want 15000", repaidAmt)
	}
}

func TestMarkRepaymentPaid(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustUser(t, db, "gita")
	mustCommunity(t, db, "shg-1")
	if err := db.InsertLoan(ctx, domain.Loan{ID: "l1", BorrowerID: "gita", CommunityID: "shg-1", Principal: 10_000, Status: domain.LoanDisbursed, CreatedAt: testNow.AddDate(0, -1, 0)}); err != nil {
		t.Fatalf("insert loan: %v", err)
	}
	due := testNow.AddDate(0, 0, -5)
	if err := db.ScheduleRepayment(ctx, domain.Repayment{ID: "r1", LoanID: "l1", Amount: 2_000, DueAt: due}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	paidAt := testNow.Add(-time.Hour)
	if err := db.MarkRepaymentPaid(ctx, "r1", paidAt); err != nil {
		t.Fatalf("MarkRepaymentPaid: %v", err)
	}
	reps, err := db.RepaymentsByBorrower(ctx, "gita")
	if err != nil {
		t.Fatalf("RepaymentsByBorrower: %v", err)
	}
	if len(reps) != 1 || reps[0].PaidAt == nil || !reps[0].PaidAt.Equal(paidAt) {
		t.Errorf("repayment = %+v, want paid at %v", reps, paidAt)
	}
}

func TestUpdateLoanStatus(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustUser(t, db, "hema")
	mustCommunity(t, db, "shg-1")
	if err := db.InsertLoan(ctx, domain.Loan{ID: "l1", BorrowerID: "hema", CommunityID: "shg-1", Principal: 10_000, Status: domain.LoanDisbursed, CreatedAt: testNow}); err != nil {
		t.Fatalf("insert loan: %v", err)
	}

	if err := db.UpdateLoanStatus(ctx, "l1", domain.LoanRepaid); err != nil {
		t.Fatalf("UpdateLoanStatus: %v", err)
	}
	loans, err := db.LoansByBorrower(ctx, "hema")
	if err != nil {
		t.Fatalf("LoansByBorrower: %v", err)
	}
	if len(loans) != 1 || loans[0].Status != domain.LoanRepaid {
		t.Errorf("loan = %+v, want repaid", loans)
	}

	if err := db.UpdateLoanStatus(ctx, "missing", domain.LoanRepaid); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("err = %v, want ErrLoanNotFound", err)
	}
}

func TestHealthSnapshotRoundTrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mustCommunity(t, db, "shg-1")

	none, err := db.LatestHealthSnapshot(ctx, "shg-1")
	if err != nil {
		t.Fatalf("LatestHealthSnapshot: %v", err)
	}
	if none != nil {
		t.Fatalf("got %+v, want nil before any run", none)
	}

	snap := domain.ClusterHealthSnapshot{
		ID:                  "h1",
		CommunityID:         "shg-1",
		ComputedAt:          testNow,
		MemberCount:         4,
		AvgScore:            612.5,
		OnTimeRate90d:       0.75,
		ActiveBorrowerCount: 2,
		TotalDisbursed:      80_000,
		TotalOutstanding:    20_000,
		Status:              domain.ClusterGrowing,
		AtRisk: []domain.AtRiskMember{
			{UserID: "u1", CurrentScore: 480, PreviousScore: 640, Drop: 160, DaysAgo: 31},
		},
	}
	if err := db.InsertHealthSnapshot(ctx, snap); err != nil {
		t.Fatalf("InsertHealthSnapshot: %v", err)
	}

	got, err := db.LatestHealthSnapshot(ctx, "shg-1")
	if err != nil {
		t.Fatalf("LatestHealthSnapshot: %v", err)
	}
	if got == nil || got.ID != "h1" || got.Status != domain.ClusterGrowing || got.AvgScore != 612.5 {
		t.Fatalf("round trip = %+v", got)
	}
	if len(got.AtRisk) != 1 || got.AtRisk[0].Drop != 160 {
		t.Errorf("at-risk round trip = %+v", got.AtRisk)
	}
	if !got.ComputedAt.Equal(testNow) {
		t.Errorf("computed_at = %v, want %v", got.ComputedAt, testNow)
	}
}
