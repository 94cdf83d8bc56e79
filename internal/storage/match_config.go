package storage

import (
	"context"
	"database/sql"

	"talent-match/internal/matching"
)

// TenantMatchConfig loads a tenant's scoring configuration. Tenants
// without a stored row score on the compiled defaults.
func (db *DB) TenantMatchConfig(ctx context.Context, tenantID string) (matching.Config, error) {
	cfg := matching.DefaultConfig(tenantID)
	query := `SELECT skill_weight, experience_weight, location_weight, education_weight, recency_weight,
                     recommend_threshold, algorithm_version
              FROM match_configs WHERE tenant_id = $1`
	err := db.connection.QueryRowContext(ctx, query, tenantID).Scan(
		&cfg.Weights.Skills, &cfg.Weights.Experience, &cfg.Weights.Location,
		&cfg.Weights.Education, &cfg.Weights.Recency,
		&cfg.RecommendThreshold, &cfg.AlgorithmVersion)
	if err == sql.ErrNoRows {
		return cfg, nil
	}
	if err != nil {
		return matching.Config{}, err
	}
	return cfg, nil
}

// SaveMatchConfig upserts a tenant's scoring configuration. Callers
// validate before saving; a bad weight set never reaches this table.
func (db *DB) SaveMatchConfig(ctx context.Context, cfg matching.Config) error {
	query := `INSERT INTO match_configs
                (tenant_id, skill_weight, experience_weight, location_weight, education_weight,
                 recency_weight, recommend_threshold, algorithm_version, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
              ON CONFLICT (tenant_id) DO UPDATE
                SET skill_weight = EXCLUDED.skill_weight,
                    experience_weight = EXCLUDED.experience_weight,
                    location_weight = EXCLUDED.location_weight,
                    education_weight = EXCLUDED.education_weight,
                    recency_weight = EXCLUDED.recency_weight,
                    recommend_threshold = EXCLUDED.recommend_threshold,
                    algorithm_version = EXCLUDED.algorithm_version,
                    updated_at = NOW()`
	_, err := db.connection.ExecContext(ctx, query,
		cfg.TenantID, cfg.Weights.Skills, cfg.Weights.Experience, cfg.Weights.Location,
		cfg.Weights.Education, cfg.Weights.Recency, cfg.RecommendThreshold, cfg.AlgorithmVersion)
	return err
}
