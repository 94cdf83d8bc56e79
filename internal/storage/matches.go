package storage

import (
	"context"
	"encoding/json"

	"github.com/lib/pq"

	"talent-match/internal/matching"
)

// SaveMatches upserts a batch of scored pairs. The unique key is
// (candidate, job, algorithm version) so a recompute replaces prior
// scores instead of stacking new rows.
func (db *DB) SaveMatches(ctx context.Context, tenantID string, matches []matching.Match) error {
	if len(matches) == 0 {
		return nil
	}
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO matches
                (tenant_id, candidate_id, job_id, score, breakdown, recommended, rank,
                 matched_skills, algorithm_version, explanation, computed_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
              ON CONFLICT (candidate_id, job_id, algorithm_version) DO UPDATE
                SET score = EXCLUDED.score,
                    breakdown = EXCLUDED.breakdown,
                    recommended = EXCLUDED.recommended,
                    rank = EXCLUDED.rank,
                    matched_skills = EXCLUDED.matched_skills,
                    explanation = EXCLUDED.explanation,
                    computed_at = EXCLUDED.computed_at`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		breakdownJSON, err := json.Marshal(m.Breakdown)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, tenantID, m.CandidateID, m.JobID, m.Score,
			breakdownJSON, m.Recommended, m.Rank, pq.Array(m.MatchedSkills),
			m.AlgorithmVersion, m.Explanation, m.ComputedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// JobMatches returns a job's stored matches at or above minScore, best
// first. algorithmVersion selects a past scoring run; empty means the
// most recently computed version.
func (db *DB) JobMatches(ctx context.Context, jobID string, minScore float64, algorithmVersion string) ([]matching.Match, error) {
	query := `SELECT candidate_id, job_id, score, breakdown, recommended, rank,
                     matched_skills, algorithm_version, COALESCE(explanation, ''), computed_at
              FROM matches
              WHERE job_id = $1 AND score >= $2
                AND algorithm_version = COALESCE(NULLIF($3, ''),
                    (SELECT algorithm_version FROM matches WHERE job_id = $1 ORDER BY computed_at DESC LIMIT 1))
              ORDER BY rank ASC`
	return db.queryMatches(ctx, query, jobID, minScore, algorithmVersion)
}

// CandidateMatches returns the stored matches for a candidate across open
// jobs, best first. Per job, only the most recently computed row counts;
// rows from earlier algorithm versions stay in the table.
func (db *DB) CandidateMatches(ctx context.Context, candidateID string) ([]matching.Match, error) {
	query := `SELECT candidate_id, job_id, score, breakdown, recommended, rank,
                     matched_skills, algorithm_version, explanation, computed_at
              FROM (
                SELECT DISTINCT ON (m.job_id)
                       m.candidate_id, m.job_id, m.score, m.breakdown, m.recommended, m.rank,
                       m.matched_skills, m.algorithm_version, COALESCE(m.explanation, '') AS explanation, m.computed_at
                FROM matches m
                JOIN jobs j ON j.id = m.job_id
                WHERE m.candidate_id = $1 AND j.status = 'open'
                ORDER BY m.job_id, m.computed_at DESC
              ) latest
              ORDER BY score DESC`
	return db.queryMatches(ctx, query, candidateID)
}

func (db *DB) queryMatches(ctx context.Context, query string, args ...interface{}) ([]matching.Match, error) {
	rows, err := db.connection.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []matching.Match
	for rows.Next() {
		var m matching.Match
		var breakdownJSON []byte
		var matchedSkills []string
		if err := rows.Scan(&m.CandidateID, &m.JobID, &m.Score, &breakdownJSON, &m.Recommended,
			&m.Rank, pq.Array(&matchedSkills), &m.AlgorithmVersion, &m.Explanation, &m.ComputedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(breakdownJSON, &m.Breakdown); err != nil {
			return nil, err
		}
		m.MatchedSkills = matchedSkills
		res = append(res, m)
	}
	return res, rows.Err()
}

// DeleteJobMatches clears a job's stored scores for one algorithm version
// ahead of a rescore under that version. Rows from other versions are
// never touched; past scores stay explainable.
func (db *DB) DeleteJobMatches(ctx context.Context, jobID, algorithmVersion string) error {
	_, err := db.connection.ExecContext(ctx,
		`DELETE FROM matches WHERE job_id = $1 AND algorithm_version = $2`, jobID, algorithmVersion)
	return err
}
