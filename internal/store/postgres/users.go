package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

const userCols = `u.id, u.name, u.email, u.category,
	COALESCE((SELECT array_agg(t.name ORDER BY t.name) FROM user_interests ui JOIN tags t ON t.id = ui.tag_id WHERE ui.user_id = u.id), '{}'),
	u.created_at, u.updated_at`

// UserRepository handles user and interest persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Category, &u.Interests, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// Upsert inserts or refreshes a user synced from the identity provider.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (id, name, email, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, category = EXCLUDED.category, updated_at = NOW()
		RETURNING created_at, updated_at`
	if err := r.pool.QueryRow(ctx, q, u.ID, u.Name, u.Email, string(u.Category)).Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users u WHERE u.id = $1`, id))
}

// GetByEmail returns a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users u WHERE lower(u.email) = lower($1)`, email))
}

// SetInterests replaces the user's interest tags.
func (r *UserRepository) SetInterests(ctx context.Context, userID uuid.UUID, tags []string) error {
	tags = store.NormalizeTags(tags)
	return mapErr(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET updated_at = NOW() WHERE id = $1`, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return replaceTags(ctx, tx, "user_interests", "user_id", userID, tags)
	}))
}

// ListOthers returns users other than excludeID, with their interests.
func (r *UserRepository) ListOthers(ctx context.Context, excludeID uuid.UUID, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM users u WHERE u.id <> $1 ORDER BY u.name LIMIT $2`, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

// Stats counts the user's profile activity in one round trip.
func (r *UserRepository) Stats(ctx context.Context, userID uuid.UUID) (models.ProfileStats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM event_registrations WHERE user_id = $1 AND status = 'APPROVED' AND is_checked_in),
		(SELECT COUNT(*) FROM events WHERE owner_id = $1),
		(SELECT COUNT(*) FROM event_team WHERE user_id = $1 AND role = 'VOLUNTEER' AND status = 'APPROVED'),
		(SELECT COUNT(*) FROM user_connections WHERE (follower_id = $1 OR followed_id = $1) AND status = 'APPROVED')`
	var st models.ProfileStats
	err := r.pool.QueryRow(ctx, q, userID).Scan(&st.Attended, &st.Organized, &st.Volunteering, &st.Connections)
	return st, mapErr(err)
}
