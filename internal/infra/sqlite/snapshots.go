package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Score Snapshot Store ───────────────────────────────────────────────────
// Snapshots are append-only. The snapshot row and the user's
// latest-snapshot pointer commit in one transaction, so a reader never
// observes one without the other.

// AppendSnapshot writes snap atomically with the pointer update.
// When the user's latest snapshot already carries the same content hash
// the write is skipped and the existing row is returned with written=false.
// Duplicate suppression is this store's fixed policy — idempotent retries
// never grow the history.
func (d *DB) AppendSnapshot(ctx context.Context, snap domain.ScoreSnapshot) (domain.ScoreSnapshot, bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	latest, err := latestSnapshotTx(ctx, tx, snap.UserID)
	if err != nil {
		return domain.ScoreSnapshot{}, false, err
	}
	if latest != nil && latest.ContentHash == snap.ContentHash {
		return *latest, false, nil
	}

	componentsJSON, err := json.Marshal(snap.Components)
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("marshal components: %w", err)
	}

	coldStart := 0
	if snap.ColdStart {
		coldStart = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO score_snapshots (id, user_id, computed_at, total, cold_start, components_json, content_hash, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.UserID, snap.ComputedAt.UnixMilli(), snap.Total, coldStart, string(componentsJSON), snap.ContentHash, snap.Explanation); err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("insert snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET latest_snapshot_id = ? WHERE id = ?
	`, snap.ID, snap.UserID); err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("update latest pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("commit: %w", err)
	}
	return snap, true, nil
}

// LatestSnapshot returns the snapshot the user's pointer designates, or
// nil if the user has never been scored.
func (d *DB) LatestSnapshot(ctx context.Context, userID string) (*domain.ScoreSnapshot, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.computed_at, s.total, s.cold_start, s.components_json, s.content_hash, s.explanation
		FROM users u JOIN score_snapshots s ON s.id = u.latest_snapshot_id
		WHERE u.id = ?
	`, userID)
	return scanSnapshot(row)
}

// SnapshotHistory returns snapshots newest first, up to limit (0 = all).
func (d *DB) SnapshotHistory(ctx context.Context, userID string, limit int) ([]domain.ScoreSnapshot, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, computed_at, total, cold_start, components_json, content_hash, explanation
		FROM score_snapshots WHERE user_id = ?
		ORDER BY computed_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.ScoreSnapshot
	for rows.Next() {
		snap, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// LatestSnapshotAtOrBefore returns the snapshot with the greatest
// computed_at not after cutoff, or nil if none exists. Cluster health runs
// use this for their fixed point-in-time view.
func (d *DB) LatestSnapshotAtOrBefore(ctx context.Context, userID string, cutoff time.Time) (*domain.ScoreSnapshot, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, user_id, computed_at, total, cold_start, components_json, content_hash, explanation
		FROM score_snapshots WHERE user_id = ? AND computed_at <= ?
		ORDER BY computed_at DESC LIMIT 1
	`, userID, cutoff.UnixMilli())
	return scanSnapshot(row)
}

func latestSnapshotTx(ctx context.Context, tx *sql.Tx, userID string) (*domain.ScoreSnapshot, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.computed_at, s.total, s.cold_start, s.components_json, s.content_hash, s.explanation
		FROM users u JOIN score_snapshots s ON s.id = u.latest_snapshot_id
		WHERE u.id = ?
	`, userID)
	return scanSnapshot(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*domain.ScoreSnapshot, error) {
	snap, err := scanSnapshotRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func scanSnapshotRow(row rowScanner) (domain.ScoreSnapshot, error) {
	var snap domain.ScoreSnapshot
	var computedMs int64
	var coldStart int
	var componentsJSON string
	if err := row.Scan(&snap.ID, &snap.UserID, &computedMs, &snap.Total, &coldStart, &componentsJSON, &snap.ContentHash, &snap.Explanation); err != nil {
		return domain.ScoreSnapshot{}, err
	}
	snap.ComputedAt = time.UnixMilli(computedMs).UTC()
	snap.ColdStart = coldStart == 1
	if err := json.Unmarshal([]byte(componentsJSON), &snap.Components); err != nil {
		return domain.ScoreSnapshot{}, fmt.Errorf("unmarshal components: %w", err)
	}
	return snap, nil
}

// ─── Cluster Health Store ───────────────────────────────────────────────────

// InsertHealthSnapshot persists one cluster health record.
func (d *DB) InsertHealthSnapshot(ctx context.Context, snap domain.ClusterHealthSnapshot) error {
	atRiskJSON, err := json.Marshal(snap.AtRisk)
	if err != nil {
		return fmt.Errorf("marshal at-risk members: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO cluster_health (id, community_id, computed_at, member_count, avg_score, on_time_rate_90d, active_borrowers, total_disbursed, total_outstanding, status, at_risk_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.CommunityID, snap.ComputedAt.UnixMilli(), snap.MemberCount, snap.AvgScore, snap.OnTimeRate90d,
		snap.ActiveBorrowerCount, snap.TotalDisbursed, snap.TotalOutstanding, string(snap.Status), string(atRiskJSON))
	return err
}

// LatestHealthSnapshot returns the most recent health record for a
// community, or nil if none has been computed yet.
func (d *DB) LatestHealthSnapshot(ctx context.Context, communityID string) (*domain.ClusterHealthSnapshot, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, community_id, computed_at, member_count, avg_score, on_time_rate_90d, active_borrowers, total_disbursed, total_outstanding, status, at_risk_json
		FROM cluster_health WHERE community_id = ?
		ORDER BY computed_at DESC LIMIT 1
	`, communityID)

	var snap domain.ClusterHealthSnapshot
	var computedMs int64
	var status, atRiskJSON string
	err := row.Scan(&snap.ID, &snap.CommunityID, &computedMs, &snap.MemberCount, &snap.AvgScore, &snap.OnTimeRate90d,
		&snap.ActiveBorrowerCount, &snap.TotalDisbursed, &snap.TotalOutstanding, &status, &atRiskJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.ComputedAt = time.UnixMilli(computedMs).UTC()
	snap.Status = domain.ClusterStatus(status)
	if err := json.Unmarshal([]byte(atRiskJSON), &snap.AtRisk); err != nil {
		return nil, fmt.Errorf("unmarshal at-risk members: %w", err)
	}
	return &snap, nil
}
