package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

const eventCols = `e.id, e.owner_id, e.parent_event_id, e.title, e.description, e.venue, e.starts_at, e.ends_at, e.timezone,
	e.is_invite_only, e.is_volunteer_open,
	COALESCE((SELECT array_agg(t.name ORDER BY t.name) FROM event_tags et JOIN tags t ON t.id = et.tag_id WHERE et.event_id = e.id), '{}'),
	e.created_at, e.updated_at`

// EventRepository handles event persistence.
type EventRepository struct {
	pool *pgxpool.Pool
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.OwnerID, &e.ParentEventID, &e.Title, &e.Description, &e.Venue, &e.StartsAt, &e.EndsAt, &e.Timezone,
		&e.IsInviteOnly, &e.IsVolunteerOpen, &e.Tags, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

// Create inserts a new event with its tags.
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	e.Tags = store.NormalizeTags(e.Tags)
	const q = `INSERT INTO events (id, owner_id, parent_event_id, title, description, venue, starts_at, ends_at, timezone, is_invite_only, is_volunteer_open)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	return mapErr(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, q, e.OwnerID, e.ParentEventID, e.Title, e.Description, e.Venue, e.StartsAt, e.EndsAt, e.Timezone, e.IsInviteOnly, e.IsVolunteerOpen).
			Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return err
		}
		return replaceTags(ctx, tx, "event_tags", "event_id", e.ID, e.Tags)
	}))
}

// GetByID returns an event by ID.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventCols+` FROM events e WHERE e.id = $1`, id))
}

// Update writes the mutable fields and tags. owner_id is not touched.
func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	e.Tags = store.NormalizeTags(e.Tags)
	const q = `UPDATE events SET title = $1, description = $2, venue = $3, starts_at = $4, ends_at = $5, timezone = $6,
		is_invite_only = $7, is_volunteer_open = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING owner_id, created_at, updated_at`
	return mapErr(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, q, e.Title, e.Description, e.Venue, e.StartsAt, e.EndsAt, e.Timezone, e.IsInviteOnly, e.IsVolunteerOpen, e.ID).
			Scan(&e.OwnerID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return err
		}
		return replaceTags(ctx, tx, "event_tags", "event_id", e.ID, e.Tags)
	}))
}

// List returns events matching the filter, soonest first.
func (r *EventRepository) List(ctx context.Context, f store.EventFilter) ([]models.Event, error) {
	var conds []string
	var args []interface{}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		args = append(args, tag)
		conds = append(conds, fmt.Sprintf(`EXISTS (SELECT 1 FROM event_tags et JOIN tags t ON t.id = et.tag_id WHERE et.event_id = e.id AND t.name = $%d)`, len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf(`e.ends_at >= $%d`, len(args)))
	}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		conds = append(conds, fmt.Sprintf(`e.owner_id = $%d`, len(args)))
	}
	q := `SELECT ` + eventCols + ` FROM events e`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY e.starts_at ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}
