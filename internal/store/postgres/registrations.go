package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

const registrationCols = `r.id, r.event_id, r.user_id, r.status, r.ticket_hash, r.is_checked_in, r.checked_in_at, r.checked_in_by, r.registered_at, r.updated_at`

// RegistrationRepository handles event registrations and check-in state.
type RegistrationRepository struct {
	pool *pgxpool.Pool
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.TicketHash, &reg.IsCheckedIn,
		&reg.CheckedInAt, &reg.CheckedInBy, &reg.RegisteredAt, &reg.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &reg, nil
}

// Create inserts a registration. Unique violations surface as store.ErrDuplicate.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO event_registrations (id, event_id, user_id, status, ticket_hash)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, is_checked_in, registered_at, updated_at`
	err := r.pool.QueryRow(ctx, q, reg.EventID, reg.UserID, string(reg.Status), reg.TicketHash).
		Scan(&reg.ID, &reg.IsCheckedIn, &reg.RegisteredAt, &reg.UpdatedAt)
	return mapErr(err)
}

// GetByID returns a registration by ID.
func (r *RegistrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx, `SELECT `+registrationCols+` FROM event_registrations r WHERE r.id = $1`, id))
}

// GetByTicket resolves a registration by its exact ticket credential.
func (r *RegistrationRepository) GetByTicket(ctx context.Context, ticketHash string) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx, `SELECT `+registrationCols+` FROM event_registrations r WHERE r.ticket_hash = $1`, ticketHash))
}

// GetByEventAndUser returns the user's registration for an event.
func (r *RegistrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx,
		`SELECT `+registrationCols+` FROM event_registrations r WHERE r.event_id = $1 AND r.user_id = $2`, eventID, userID))
}

// SetStatus applies a review decision with one conditional update.
func (r *RegistrationRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Registration, error) {
	const q = `UPDATE event_registrations r SET status = $2, updated_at = NOW()
		WHERE r.id = $1 AND (r.status = 'PENDING' OR r.status = $2)
		RETURNING ` + registrationCols
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, id, string(status)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, missOrConflict(ctx, r.pool, "event_registrations", id)
	}
	return reg, err
}

// MarkCheckedIn flips is_checked_in once. A second scan matches no rows.
func (r *RegistrationRepository) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time, by uuid.UUID) (*models.Registration, error) {
	const q = `UPDATE event_registrations r SET is_checked_in = TRUE, checked_in_at = $2, checked_in_by = $3, updated_at = NOW()
		WHERE r.id = $1 AND r.is_checked_in = FALSE
		RETURNING ` + registrationCols
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, id, at, by))
	if errors.Is(err, store.ErrNotFound) {
		return nil, missOrConflict(ctx, r.pool, "event_registrations", id)
	}
	return reg, err
}

// ListByEvent returns all registrations for an event in registration order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+registrationCols+` FROM event_registrations r WHERE r.event_id = $1 ORDER BY r.registered_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// ListAgenda returns the user's registrations joined with their events, soonest first.
func (r *RegistrationRepository) ListAgenda(ctx context.Context, userID uuid.UUID) ([]models.AgendaEntry, error) {
	q := `SELECT ` + registrationCols + `, ` + eventCols + `
		FROM event_registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY e.starts_at ASC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AgendaEntry
	for rows.Next() {
		var a models.AgendaEntry
		reg, e := &a.Registration, &a.Event
		err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.TicketHash, &reg.IsCheckedIn,
			&reg.CheckedInAt, &reg.CheckedInBy, &reg.RegisteredAt, &reg.UpdatedAt,
			&e.ID, &e.OwnerID, &e.ParentEventID, &e.Title, &e.Description, &e.Venue, &e.StartsAt, &e.EndsAt, &e.Timezone,
			&e.IsInviteOnly, &e.IsVolunteerOpen, &e.Tags, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Stats counts registrations, approvals and check-ins for an event.
func (r *RegistrationRepository) Stats(ctx context.Context, eventID uuid.UUID) (models.CheckInStats, error) {
	s := models.CheckInStats{EventID: eventID}
	const q = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'APPROVED'),
		COUNT(*) FILTER (WHERE is_checked_in)
		FROM event_registrations WHERE event_id = $1`
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&s.Registered, &s.Approved, &s.CheckedIn)
	return s, err
}
