package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"talent-match/internal/facts"
)

// SaveObservation appends a fact observation. When the observation is
// current for its field, the prior current row of the same (candidate,
// field) is superseded in the same transaction so at most one current
// observation exists per field. History rows are never deleted.
func (db *DB) SaveObservation(ctx context.Context, obs *facts.Observation) error {
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if obs.Current {
		_, err = tx.ExecContext(ctx,
			`UPDATE observations SET current = false
             WHERE candidate_id = $1 AND field = $2 AND current = true`,
			obs.CandidateID, obs.Field)
		if err != nil {
			return fmt.Errorf("supersede prior observation: %w", err)
		}
	}

	query := `INSERT INTO observations
                (id, candidate_id, field, value_type, value_string, value_number, value_date, value_list,
                 confidence, extraction_method, source_doc_id, extracted_at, current)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = tx.ExecContext(ctx, query,
		obs.ID, obs.CandidateID, obs.Field, obs.Value.Type,
		nullString(obs.Value.String), nullNumber(obs.Value.Type, obs.Value.Number), obs.Value.Date,
		pq.Array(obs.Value.List), obs.Confidence, obs.Method, obs.SourceDocID, obs.ExtractedAt, obs.Current)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}

	return tx.Commit()
}

// CurrentObservations returns the live fact set for a candidate, oldest
// extraction first.
func (db *DB) CurrentObservations(ctx context.Context, candidateID string) ([]facts.Observation, error) {
	return db.queryObservations(ctx,
		`SELECT id, candidate_id, field, value_type, value_string, value_number, value_date, value_list,
                confidence, extraction_method, source_doc_id, extracted_at, current
         FROM observations WHERE candidate_id = $1 AND current = true
         ORDER BY extracted_at`, candidateID)
}

// ObservationHistory returns every observation ever recorded for one field
// of a candidate, newest first. Superseded rows included.
func (db *DB) ObservationHistory(ctx context.Context, candidateID, field string) ([]facts.Observation, error) {
	return db.queryObservations(ctx,
		`SELECT id, candidate_id, field, value_type, value_string, value_number, value_date, value_list,
                confidence, extraction_method, source_doc_id, extracted_at, current
         FROM observations WHERE candidate_id = $1 AND field = $2
         ORDER BY extracted_at DESC`, candidateID, field)
}

func (db *DB) queryObservations(ctx context.Context, query string, args ...interface{}) ([]facts.Observation, error) {
	rows, err := db.connection.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []facts.Observation
	for rows.Next() {
		var o facts.Observation
		var valueString sql.NullString
		var valueNumber sql.NullFloat64
		var valueDate sql.NullTime
		var valueList []string
		if err := rows.Scan(&o.ID, &o.CandidateID, &o.Field, &o.Value.Type, &valueString, &valueNumber,
			&valueDate, pq.Array(&valueList), &o.Confidence, &o.Method, &o.SourceDocID,
			&o.ExtractedAt, &o.Current); err != nil {
			return nil, err
		}
		o.Value.String = valueString.String
		o.Value.Number = valueNumber.Float64
		if valueDate.Valid {
			d := valueDate.Time
			o.Value.Date = &d
		}
		o.Value.List = valueList
		res = append(res, o)
	}
	return res, rows.Err()
}

// SaveEmployment records one employer stint for the company-overlap
// duplicate signal.
func (db *DB) SaveEmployment(ctx context.Context, candidateID, company string, startYear, endYear int) error {
	query := `INSERT INTO employments (candidate_id, company, start_year, end_year)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (candidate_id, company, start_year) DO UPDATE SET end_year = EXCLUDED.end_year`
	_, err := db.connection.ExecContext(ctx, query, candidateID, company, startYear, nullYear(endYear))
	return err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullNumber(t facts.ValueType, n float64) interface{} {
	if t != facts.ValueNumber {
		return nil
	}
	return n
}

func nullYear(y int) interface{} {
	if y == 0 {
		return nil
	}
	return y
}

// TouchCandidate bumps updated_at after an ingest that changed facts.
func (db *DB) TouchCandidate(ctx context.Context, candidateID string, at time.Time) error {
	_, err := db.connection.ExecContext(ctx,
		`UPDATE candidates SET updated_at = $2 WHERE id = $1`, candidateID, at)
	return err
}
