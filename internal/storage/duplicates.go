package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"talent-match/internal/dedup"
	"talent-match/internal/mergequeue"
)

// Identity loads the detector's view of one candidate.
func (db *DB) Identity(ctx context.Context, candidateID string) (dedup.Identity, error) {
	var id dedup.Identity
	query := `SELECT id, tenant_id, name, email, phone, linkedin_url, created_at
              FROM candidates WHERE id = $1 AND retired = false`
	err := db.connection.QueryRowContext(ctx, query, candidateID).Scan(
		&id.ID, &id.TenantID, &id.Name, &id.Email, &id.Phone, &id.LinkedIn, &id.CreatedAt)
	if err != nil {
		return dedup.Identity{}, err
	}
	id.Employments, err = db.employments(ctx, candidateID)
	return id, err
}

// TenantIdentities returns the active candidates of a tenant with their
// employment history, optionally excluding one id.
func (db *DB) TenantIdentities(ctx context.Context, tenantID, excludeID string) ([]dedup.Identity, error) {
	query := `SELECT id, tenant_id, name, email, phone, linkedin_url, created_at
              FROM candidates
              WHERE tenant_id = $1 AND retired = false AND id <> $2
              ORDER BY created_at`
	rows, err := db.connection.QueryContext(ctx, query, tenantID, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []dedup.Identity
	for rows.Next() {
		var id dedup.Identity
		if err := rows.Scan(&id.ID, &id.TenantID, &id.Name, &id.Email, &id.Phone, &id.LinkedIn, &id.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range res {
		res[i].Employments, err = db.employments(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (db *DB) employments(ctx context.Context, candidateID string) ([]dedup.Employment, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT company, start_year, COALESCE(end_year, 0) FROM employments WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []dedup.Employment
	for rows.Next() {
		var e dedup.Employment
		if err := rows.Scan(&e.Company, &e.StartYear, &e.EndYear); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// IsSuppressed reports whether the unordered pair sits on the suppression
// list from a prior human rejection.
func (db *DB) IsSuppressed(ctx context.Context, idA, idB string) (bool, error) {
	low, high := orderPair(idA, idB)
	var exists bool
	err := db.connection.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pair_suppressions WHERE candidate_low = $1 AND candidate_high = $2)`,
		low, high).Scan(&exists)
	return exists, err
}

// SavePair upserts a detection result. The unordered (low, high) id tuple
// is the conflict key; an existing row keeps its workflow status and
// enqueue time, only the detection fields refresh.
func (db *DB) SavePair(ctx context.Context, pair dedup.Pair) error {
	reasonsJSON, err := json.Marshal(pair.Reasons)
	if err != nil {
		return err
	}
	low, high := orderPair(pair.PrimaryID, pair.DuplicateID)
	query := `INSERT INTO duplicate_pairs
                (id, tenant_id, primary_id, duplicate_id, candidate_low, candidate_high,
                 score, match_type, reasons, status, created_at, enqueued_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
              ON CONFLICT (candidate_low, candidate_high) DO UPDATE
                SET score = EXCLUDED.score,
                    match_type = EXCLUDED.match_type,
                    reasons = EXCLUDED.reasons`
	_, err = db.connection.ExecContext(ctx, query,
		pair.ID, pair.TenantID, pair.PrimaryID, pair.DuplicateID, low, high,
		pair.Score, pair.MatchType, reasonsJSON, pair.Status, pair.CreatedAt, pair.EnqueuedAt)
	return err
}

// Pair loads one flagged pair by id.
func (db *DB) Pair(ctx context.Context, pairID string) (dedup.Pair, error) {
	var p dedup.Pair
	var reasonsJSON []byte
	query := `SELECT id, tenant_id, primary_id, duplicate_id, score, match_type, reasons,
                     status, created_at, enqueued_at, resolved_at
              FROM duplicate_pairs WHERE id = $1`
	err := db.connection.QueryRowContext(ctx, query, pairID).Scan(
		&p.ID, &p.TenantID, &p.PrimaryID, &p.DuplicateID, &p.Score, &p.MatchType,
		&reasonsJSON, &p.Status, &p.CreatedAt, &p.EnqueuedAt, &p.ResolvedAt)
	if err == sql.ErrNoRows {
		return dedup.Pair{}, mergequeue.ErrNotFound
	}
	if err != nil {
		return dedup.Pair{}, err
	}
	if err := json.Unmarshal(reasonsJSON, &p.Reasons); err != nil {
		return dedup.Pair{}, err
	}
	return p, nil
}

// ListPending returns a tenant's pending pairs, optionally filtered by
// match type. Ordering is applied by the queue, not here.
func (db *DB) ListPending(ctx context.Context, tenantID string, matchType dedup.MatchType) ([]dedup.Pair, error) {
	query := `SELECT id, tenant_id, primary_id, duplicate_id, score, match_type, reasons,
                     status, created_at, enqueued_at, resolved_at
              FROM duplicate_pairs
              WHERE tenant_id = $1 AND status = 'pending' AND ($2 = '' OR match_type = $2)`
	rows, err := db.connection.QueryContext(ctx, query, tenantID, string(matchType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []dedup.Pair
	for rows.Next() {
		var p dedup.Pair
		var reasonsJSON []byte
		if err := rows.Scan(&p.ID, &p.TenantID, &p.PrimaryID, &p.DuplicateID, &p.Score, &p.MatchType,
			&reasonsJSON, &p.Status, &p.CreatedAt, &p.EnqueuedAt, &p.ResolvedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(reasonsJSON, &p.Reasons); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// MergePair folds the duplicate candidate into the primary in a single
// transaction: both candidate rows are locked, the duplicate's
// observations, activity history and resume documents move to the
// primary, the duplicate is retired and the pair marked merged. Any
// failure rolls the whole transfer back.
func (db *DB) MergePair(ctx context.Context, pair dedup.Pair) error {
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock both sides; FOR UPDATE serializes concurrent merges touching
	// the same candidates.
	rows, err := tx.QueryContext(ctx,
		`SELECT id, retired FROM candidates WHERE id = ANY($1) FOR UPDATE`,
		pq.Array([]string{pair.PrimaryID, pair.DuplicateID}))
	if err != nil {
		return err
	}
	locked := 0
	for rows.Next() {
		var id string
		var retired bool
		if err := rows.Scan(&id, &retired); err != nil {
			rows.Close()
			return err
		}
		if retired {
			rows.Close()
			return fmt.Errorf("candidate %s already retired: %w", id, mergequeue.ErrMergeConflict)
		}
		locked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if locked != 2 {
		return fmt.Errorf("pair %s: candidate missing: %w", pair.ID, mergequeue.ErrMergeConflict)
	}

	// Current observations whose field already has a current value on the
	// primary become history; the rest stay current after the move.
	if _, err := tx.ExecContext(ctx,
		`UPDATE observations SET current = false
         WHERE candidate_id = $1 AND current = true
           AND field IN (SELECT field FROM observations WHERE candidate_id = $2 AND current = true)`,
		pair.DuplicateID, pair.PrimaryID); err != nil {
		return fmt.Errorf("demote colliding observations: %w", err)
	}

	for _, table := range []string{"observations", "candidate_activities", "resume_documents", "employments"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET candidate_id = $1 WHERE candidate_id = $2`, table),
			pair.PrimaryID, pair.DuplicateID); err != nil {
			return fmt.Errorf("reparent %s: %w", table, err)
		}
	}

	// Stored scores and vectors of the retired record are stale; drop
	// them rather than reparent. Recompute rebuilds them for the primary.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM matches WHERE candidate_id = $1`, pair.DuplicateID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entity_vectors WHERE entity_type = 'candidate' AND entity_id = $1`, pair.DuplicateID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE candidates SET retired = true, updated_at = NOW() WHERE id = $1`, pair.DuplicateID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE duplicate_pairs SET status = 'merged', resolved_at = NOW() WHERE id = $1`, pair.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// RejectPair marks the pair rejected and records the unordered pair on
// the suppression list in the same transaction.
func (db *DB) RejectPair(ctx context.Context, pair dedup.Pair, reason string) error {
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE duplicate_pairs SET status = 'rejected', resolved_at = NOW() WHERE id = $1`, pair.ID); err != nil {
		return err
	}

	low, high := orderPair(pair.PrimaryID, pair.DuplicateID)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pair_suppressions (candidate_low, candidate_high, reason, created_at)
         VALUES ($1, $2, $3, NOW())
         ON CONFLICT (candidate_low, candidate_high) DO NOTHING`, low, high, nullString(reason)); err != nil {
		return err
	}

	return tx.Commit()
}

// RequeuePair returns a deferred pair to pending with a fresh enqueue
// timestamp, sending it to the back of the queue.
func (db *DB) RequeuePair(ctx context.Context, pairID string, enqueuedAt time.Time) error {
	res, err := db.connection.ExecContext(ctx,
		`UPDATE duplicate_pairs SET status = 'pending', enqueued_at = $2 WHERE id = $1`,
		pairID, enqueuedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mergequeue.ErrNotFound
	}
	return nil
}

func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
