package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Write Helpers ──────────────────────────────────────────────────────────
// Event rows are written by the CRUD layer and the seeder, never by the
// scoring engine.

// InsertUser creates a user record.
func (d *DB) InsertUser(ctx context.Context, u domain.User) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)
	`, u.ID, u.Name, u.CreatedAt.UnixMilli())
	return err
}

// InsertCommunity creates a community record.
func (d *DB) InsertCommunity(ctx context.Context, c domain.Community) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO communities (id, name, type, created_at) VALUES (?, ?, ?, ?)
	`, c.ID, c.Name, c.Type, c.CreatedAt.UnixMilli())
	return err
}

// AddMembership records a user joining a community.
func (d *DB) AddMembership(ctx context.Context, m domain.Membership) error {
	active := 0
	if m.Active {
		active = 1
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO memberships (user_id, community_id, joined_at, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, community_id) DO UPDATE SET active = excluded.active
	`, m.UserID, m.CommunityID, m.JoinedAt.UnixMilli(), active)
	return err
}

// InsertLoan creates a loan record.
func (d *DB) InsertLoan(ctx context.Context, l domain.Loan) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO loans (id, borrower_id, community_id, principal, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.ID, l.BorrowerID, l.CommunityID, l.Principal, string(l.Status), l.CreatedAt.UnixMilli())
	return err
}

// UpdateLoanStatus transitions a loan's lifecycle state.
func (d *DB) UpdateLoanStatus(ctx context.Context, loanID string, status domain.LoanStatus) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE loans SET status = ? WHERE id = ?
	`, string(status), loanID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("loan %s: %w", loanID, domain.ErrLoanNotFound)
	}
	return nil
}

// ScheduleRepayment adds a scheduled installment to a loan.
func (d *DB) ScheduleRepayment(ctx context.Context, r domain.Repayment) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO repayments (id, loan_id, amount, due_at) VALUES (?, ?, ?, ?)
	`, r.ID, r.LoanID, r.Amount, r.DueAt.UnixMilli())
	return err
}

// MarkRepaymentPaid records that an installment was paid at paidAt.
func (d *DB) MarkRepaymentPaid(ctx context.Context, repaymentID string, paidAt time.Time) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE repayments SET paid_at = ? WHERE id = ?
	`, paidAt.UnixMilli(), repaymentID)
	return err
}

// ─── EventStore Reads ───────────────────────────────────────────────────────

// UserExists reports whether a user id is known.
func (d *DB) UserExists(ctx context.Context, userID string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&n)
	return n > 0, err
}

// ListUserIDs returns every user id, ordered for deterministic sweeps.
func (d *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	return d.listIDs(ctx, `SELECT id FROM users ORDER BY id`)
}

// CommunityExists reports whether a community id is known.
func (d *DB) CommunityExists(ctx context.Context, communityID string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM communities WHERE id = ?`, communityID).Scan(&n)
	return n > 0, err
}

// ListCommunityIDs returns every community id.
func (d *DB) ListCommunityIDs(ctx context.Context) ([]string, error) {
	return d.listIDs(ctx, `SELECT id FROM communities ORDER BY id`)
}

// MemberIDs returns active member ids of a community.
func (d *DB) MemberIDs(ctx context.Context, communityID string) ([]string, error) {
	return d.listIDs(ctx, `
		SELECT user_id FROM memberships WHERE community_id = ? AND active = 1 ORDER BY user_id
	`, communityID)
}

func (d *DB) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EarliestMembership returns the user's tenure anchor across all active
// memberships, or nil if the user has never joined a community.
func (d *DB) EarliestMembership(ctx context.Context, userID string) (*time.Time, error) {
	var ms sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT MIN(joined_at) FROM memberships WHERE user_id = ? AND active = 1
	`, userID).Scan(&ms)
	if err != nil {
		return nil, err
	}
	if !ms.Valid {
		return nil, nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t, nil
}

// MembershipCount counts the user's active memberships.
func (d *DB) MembershipCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memberships WHERE user_id = ? AND active = 1
	`, userID).Scan(&n)
	return n, err
}

// LoansByBorrower returns all loans borrowed by a user.
func (d *DB) LoansByBorrower(ctx context.Context, userID string) ([]domain.Loan, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, borrower_id, community_id, principal, status, created_at
		FROM loans WHERE borrower_id = ? ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		var l domain.Loan
		var status string
		var createdMs int64
		if err := rows.Scan(&l.ID, &l.BorrowerID, &l.CommunityID, &l.Principal, &status, &createdMs); err != nil {
			return nil, err
		}
		l.Status = domain.LoanStatus(status)
		l.CreatedAt = time.UnixMilli(createdMs).UTC()
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// RepaymentsByBorrower returns every installment across the user's loans.
func (d *DB) RepaymentsByBorrower(ctx context.Context, userID string) ([]domain.Repayment, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, r.loan_id, r.amount, r.due_at, r.paid_at
		FROM repayments r JOIN loans l ON l.id = r.loan_id
		WHERE l.borrower_id = ? ORDER BY r.due_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRepayments(rows)
}

// RepaidPrincipal sums principal across the user's fully repaid loans.
func (d *DB) RepaidPrincipal(ctx context.Context, userID string) (float64, error) {
	var total sql.NullFloat64
	err := d.db.QueryRowContext(ctx, `
		SELECT SUM(principal) FROM loans WHERE borrower_id = ? AND status = ?
	`, userID, string(domain.LoanRepaid)).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// CommunityRepaymentsDueBetween returns installments on the community's
// loans with due dates in (from, to].
func (d *DB) CommunityRepaymentsDueBetween(ctx context.Context, communityID string, from, to time.Time) ([]domain.Repayment, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, r.loan_id, r.amount, r.due_at, r.paid_at
		FROM repayments r JOIN loans l ON l.id = r.loan_id
		WHERE l.community_id = ? AND r.due_at > ? AND r.due_at <= ?
		ORDER BY r.due_at
	`, communityID, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRepayments(rows)
}

// ActiveBorrowerCount counts distinct borrowers in a community holding a
// loan not yet in a terminal state.
func (d *DB) ActiveBorrowerCount(ctx context.Context, communityID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT borrower_id) FROM loans
		WHERE community_id = ? AND status NOT IN (?, ?)
	`, communityID, string(domain.LoanRepaid), string(domain.LoanDefaulted)).Scan(&n)
	return n, err
}

// CommunityLoanTotals returns total principal disbursed and total amount
// repaid across the community's loans.
func (d *DB) CommunityLoanTotals(ctx context.Context, communityID string) (disbursed, repaid float64, err error) {
	var dis sql.NullFloat64
	err = d.db.QueryRowContext(ctx, `
		SELECT SUM(principal) FROM loans
		WHERE community_id = ? AND status IN (?, ?)
	`, communityID, string(domain.LoanDisbursed), string(domain.LoanRepaid)).Scan(&dis)
	if err != nil {
		return 0, 0, err
	}

	var rep sql.NullFloat64
	err = d.db.QueryRowContext(ctx, `
		SELECT SUM(r.amount) FROM repayments r JOIN loans l ON l.id = r.loan_id
		WHERE l.community_id = ? AND r.paid_at IS NOT NULL
	`, communityID).Scan(&rep)
	if err != nil {
		return 0, 0, err
	}
	return dis.Float64, rep.Float64, nil
}

func scanRepayments(rows *sql.Rows) ([]domain.Repayment, error) {
	var reps []domain.Repayment
	for rows.Next() {
		var r domain.Repayment
		var dueMs int64
		var paidMs sql.NullInt64
		if err := rows.Scan(&r.ID, &r.LoanID, &r.Amount, &dueMs, &paidMs); err != nil {
			return nil, err
		}
		r.DueAt = time.UnixMilli(dueMs).UTC()
		if paidMs.Valid {
			t := time.UnixMilli(paidMs.Int64).UTC()
			r.PaidAt = &t
		}
		reps = append(reps, r)
	}
	return reps, rows.Err()
}
