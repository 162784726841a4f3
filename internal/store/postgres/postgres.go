// Package postgres implements the store interfaces on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhub/backend/internal/store"
)

const uniqueViolation = "23505"

// DB bundles the repositories sharing one pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates the PostgreSQL store.
func New(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (d *DB) Users() store.Users                 { return &UserRepository{pool: d.pool} }
func (d *DB) Events() store.Events               { return &EventRepository{pool: d.pool} }
func (d *DB) Registrations() store.Registrations { return &RegistrationRepository{pool: d.pool} }
func (d *DB) Team() store.Team                   { return &TeamRepository{pool: d.pool} }
func (d *DB) Exports() store.Exports             { return &ExportRepository{pool: d.pool} }
func (d *DB) Connections() store.Connections     { return &ConnectionRepository{pool: d.pool} }

// mapErr translates pgx errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}

// missOrConflict classifies a conditional update that matched no rows.
func missOrConflict(ctx context.Context, pool *pgxpool.Pool, table string, id any) error {
	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConditionFailed
}

// replaceTags rewrites the tag links in joinTable for ownerID inside tx.
func replaceTags(ctx context.Context, tx pgx.Tx, joinTable, ownerCol string, ownerID any, tags []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM `+joinTable+` WHERE `+ownerCol+` = $1`, ownerID); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, `INSERT INTO tags (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`, tags); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `INSERT INTO `+joinTable+` (`+ownerCol+`, tag_id)
		SELECT $1, id FROM tags WHERE name = ANY($2::text[])
		ON CONFLICT DO NOTHING`, ownerID, tags)
	return err
}
