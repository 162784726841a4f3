package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

// ExportRepository handles attendee export jobs.
type ExportRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a queued export.
func (r *ExportRepository) Create(ctx context.Context, e *models.Export) error {
	if e.Status == "" {
		e.Status = models.ExportQueued
	}
	const q = `INSERT INTO exports (id, event_id, requested_by, status)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	return mapErr(r.pool.QueryRow(ctx, q, e.EventID, e.RequestedBy, e.Status).Scan(&e.ID, &e.CreatedAt))
}

// GetByID returns an export by ID.
func (r *ExportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error) {
	var e models.Export
	const q = `SELECT id, event_id, requested_by, status, COALESCE(s3_key, ''), row_count, COALESCE(error, ''), created_at, completed_at
		FROM exports WHERE id = $1`
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.EventID, &e.RequestedBy, &e.Status, &e.S3Key, &e.RowCount, &e.Error, &e.CreatedAt, &e.CompletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

// MarkCompleted records the uploaded object.
func (r *ExportRepository) MarkCompleted(ctx context.Context, id uuid.UUID, key string, rows int, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exports SET status = $2, s3_key = $3, row_count = $4, completed_at = $5, error = NULL WHERE id = $1`,
		id, models.ExportCompleted, key, rows, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal failure.
func (r *ExportRepository) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE exports SET status = $2, error = $3 WHERE id = $1`, id, models.ExportFailed, msg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
