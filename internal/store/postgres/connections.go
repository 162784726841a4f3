package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

const connectionCols = `c.id, c.follower_id, c.followed_id, c.status, c.created_at, c.updated_at`

// ConnectionRepository handles networking requests between users.
type ConnectionRepository struct {
	pool *pgxpool.Pool
}

func scanConnection(row pgx.Row) (*models.Connection, error) {
	var c models.Connection
	if err := row.Scan(&c.ID, &c.FollowerID, &c.FollowedID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// Create inserts a connection. The unordered pair index turns a repeat or
// reverse request into store.ErrDuplicate.
func (r *ConnectionRepository) Create(ctx context.Context, c *models.Connection) error {
	const q = `INSERT INTO user_connections (id, follower_id, followed_id, status)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, c.FollowerID, c.FollowedID, string(c.Status)).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapErr(err)
}

// GetByID returns a connection by ID.
func (r *ConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	return scanConnection(r.pool.QueryRow(ctx, `SELECT `+connectionCols+` FROM user_connections c WHERE c.id = $1`, id))
}

// SetStatus answers a pending connection with one conditional update.
func (r *ConnectionRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Connection, error) {
	const q = `UPDATE user_connections c SET status = $2, updated_at = NOW()
		WHERE c.id = $1 AND (c.status = 'PENDING' OR c.status = $2)
		RETURNING ` + connectionCols
	c, err := scanConnection(r.pool.QueryRow(ctx, q, id, string(status)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, missOrConflict(ctx, r.pool, "user_connections", id)
	}
	return c, err
}
