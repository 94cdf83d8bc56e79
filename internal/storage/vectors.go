package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"talent-match/internal/embedding"
)

// VectorSourceHash returns the stored source hash for an entity's vector,
// or "" when no vector has been generated yet.
func (db *DB) VectorSourceHash(ctx context.Context, entityType embedding.EntityType, entityID string, kind embedding.Kind) (string, error) {
	var hash string
	query := `SELECT source_hash FROM entity_vectors
              WHERE entity_type = $1 AND entity_id = $2 AND kind = $3`
	err := db.connection.QueryRowContext(ctx, query, entityType, entityID, kind).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// Vector returns the materialized profile embedding for an entity. The
// second return is false when no vector exists; callers fall back to the
// non-embedding signals.
func (db *DB) Vector(ctx context.Context, entityType string, entityID string) ([]float32, bool, error) {
	var raw []byte
	query := `SELECT embedding::text FROM entity_vectors
              WHERE entity_type = $1 AND entity_id = $2 AND kind = $3`
	err := db.connection.QueryRowContext(ctx, query, entityType, entityID, embedding.KindProfile).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// pgvector's text form is a JSON-compatible float array
	var values []float32
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, err
	}
	return values, true, nil
}

func (db *DB) saveVector(ctx context.Context, tx *sql.Tx, vec embedding.Vector) error {
	embeddingJSON, err := json.Marshal(vec.Values)
	if err != nil {
		return err
	}
	query := `INSERT INTO entity_vectors (tenant_id, entity_type, entity_id, kind, embedding, source_hash, model, created_at)
              VALUES ($1, $2, $3, $4, $5::vector, $6, $7, NOW())
              ON CONFLICT (entity_type, entity_id, kind) DO UPDATE
                SET embedding = EXCLUDED.embedding,
                    source_hash = EXCLUDED.source_hash,
                    model = EXCLUDED.model,
                    created_at = NOW()`
	_, err = tx.ExecContext(ctx, query,
		vec.TenantID, vec.EntityType, vec.EntityID, vec.Kind, string(embeddingJSON), vec.SourceHash, vec.Model)
	return err
}

// SimilarCandidates returns candidate ids ordered by embedding proximity
// to the given vector, nearest first.
func (db *DB) SimilarCandidates(ctx context.Context, tenantID string, vec []float32, topK int) ([]string, []float64, error) {
	embeddingJSON, err := json.Marshal(vec)
	if err != nil {
		return nil, nil, err
	}
	query := `SELECT entity_id, 1 - (embedding <=> $2::vector) as similarity
              FROM entity_vectors
              WHERE tenant_id = $1 AND entity_type = 'candidate' AND kind = 'profile'
              ORDER BY embedding <=> $2::vector
              LIMIT $3`
	rows, err := db.connection.QueryContext(ctx, query, tenantID, string(embeddingJSON), topK)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var ids []string
	var sims []float64
	for rows.Next() {
		var id string
		var sim float64
		if err := rows.Scan(&id, &sim); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		sims = append(sims, sim)
	}
	return ids, sims, rows.Err()
}
