package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"talent-match/internal/embedding"
)

// EnqueueTask inserts a pending embedding task. The partial unique index
// on (entity_type, entity_id) WHERE status IN ('pending','processing')
// makes the insert a no-op while a task for the entity is outstanding;
// the bool return reports whether a row was actually created.
func (db *DB) EnqueueTask(ctx context.Context, task embedding.Task) (bool, error) {
	query := `INSERT INTO embedding_tasks
                (id, tenant_id, entity_type, entity_id, kind, source_text, source_hash,
                 priority, status, retry_count, max_retries, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, NOW())
              ON CONFLICT (entity_type, entity_id) WHERE status IN ('pending', 'processing')
                DO NOTHING`
	res, err := db.connection.ExecContext(ctx, query,
		task.ID, task.TenantID, task.EntityType, task.EntityID, task.Kind,
		task.SourceText, task.SourceHash, task.Priority, embedding.TaskPending, task.MaxRetries)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimNextTask atomically moves the next pending task to processing.
// FOR UPDATE SKIP LOCKED keeps concurrent workers from claiming the same
// row. Returns nil when the queue is empty.
func (db *DB) ClaimNextTask(ctx context.Context) (*embedding.Task, error) {
	query := `UPDATE embedding_tasks SET status = 'processing', started_at = NOW()
              WHERE id = (
                  SELECT id FROM embedding_tasks
                  WHERE status = 'pending'
                  ORDER BY priority ASC, created_at ASC
                  FOR UPDATE SKIP LOCKED
                  LIMIT 1
              )
              RETURNING id, tenant_id, entity_type, entity_id, kind, source_text, source_hash,
                        priority, status, retry_count, max_retries, COALESCE(last_error, ''),
                        created_at, started_at, completed_at`
	task := &embedding.Task{}
	err := db.connection.QueryRowContext(ctx, query).Scan(
		&task.ID, &task.TenantID, &task.EntityType, &task.EntityID, &task.Kind,
		&task.SourceText, &task.SourceHash, &task.Priority, &task.Status,
		&task.RetryCount, &task.MaxRetries, &task.LastError,
		&task.CreatedAt, &task.StartedAt, &task.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CompleteTask stores the generated vector and closes the task in one
// transaction, so a completed task always has its vector on disk.
func (db *DB) CompleteTask(ctx context.Context, taskID string, vec embedding.Vector) error {
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := db.saveVector(ctx, tx, vec); err != nil {
		return fmt.Errorf("store vector: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE embedding_tasks SET status = 'completed', completed_at = NOW()
         WHERE id = $1 AND status = 'processing'`, taskID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s not in processing state", taskID)
	}

	return tx.Commit()
}

// FailTask records a generation failure. Non-terminal failures return the
// task to pending for another attempt; terminal ones park it as failed
// until an operator re-enqueues.
func (db *DB) FailTask(ctx context.Context, taskID string, cause string, terminal bool) error {
	status := embedding.TaskPending
	if terminal {
		status = embedding.TaskFailed
	}
	res, err := db.connection.ExecContext(ctx,
		`UPDATE embedding_tasks
         SET status = $2, retry_count = retry_count + 1, last_error = $3, started_at = NULL
         WHERE id = $1 AND status = 'processing'`, taskID, status, cause)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s not in processing state", taskID)
	}
	return nil
}

// ReclaimStuck returns processing tasks whose lease expired back to
// pending. Covers workers that died mid-task.
func (db *DB) ReclaimStuck(ctx context.Context, lease time.Duration) (int, error) {
	res, err := db.connection.ExecContext(ctx,
		`UPDATE embedding_tasks SET status = 'pending', started_at = NULL
         WHERE status = 'processing' AND started_at < NOW() - $1::interval`,
		fmt.Sprintf("%f seconds", lease.Seconds()))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// TasksByStatus lists a tenant's embedding tasks in one state, newest
// first. Backs the operator view of the failed queue.
func (db *DB) TasksByStatus(ctx context.Context, tenantID string, status embedding.TaskStatus, limit int) ([]embedding.Task, error) {
	query := `SELECT id, tenant_id, entity_type, entity_id, kind, source_text, source_hash,
                     priority, status, retry_count, max_retries, COALESCE(last_error, ''),
                     created_at, started_at, completed_at
              FROM embedding_tasks
              WHERE tenant_id = $1 AND status = $2
              ORDER BY created_at DESC
              LIMIT $3`
	rows, err := db.connection.QueryContext(ctx, query, tenantID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []embedding.Task
	for rows.Next() {
		var t embedding.Task
		if err := rows.Scan(&t.ID, &t.TenantID, &t.EntityType, &t.EntityID, &t.Kind,
			&t.SourceText, &t.SourceHash, &t.Priority, &t.Status,
			&t.RetryCount, &t.MaxRetries, &t.LastError,
			&t.CreatedAt, &t.StartedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// RetryTask re-enqueues a terminally failed task with a fresh retry budget.
func (db *DB) RetryTask(ctx context.Context, taskID string) error {
	res, err := db.connection.ExecContext(ctx,
		`UPDATE embedding_tasks
         SET status = 'pending', retry_count = 0, last_error = NULL, started_at = NULL
         WHERE id = $1 AND status = 'failed'`, taskID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s is not in failed state", taskID)
	}
	return nil
}
