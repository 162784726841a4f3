// Package store declares the data-access capabilities the Event Hub services
// depend on. Implementations live in store/postgres and store/memstore.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/models"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("store: duplicate")
	// ErrConditionFailed is returned when a conditional update matched an
	// existing row whose current state did not satisfy the condition.
	ErrConditionFailed = errors.New("store: condition failed")
)

// Users stores user profiles synced from the identity provider.
type Users interface {
	Upsert(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetInterests(ctx context.Context, userID uuid.UUID, tags []string) error
	// ListOthers returns up to limit users other than excludeID, with interests.
	ListOthers(ctx context.Context, excludeID uuid.UUID, limit int) ([]models.User, error)
	// Stats counts checked-in registrations, owned events, approved volunteer
	// memberships and approved connections of the user.
	Stats(ctx context.Context, userID uuid.UUID) (models.ProfileStats, error)
}

// EventFilter narrows event listings. Zero values mean no filter.
type EventFilter struct {
	Tag     string
	From    *time.Time
	OwnerID *uuid.UUID
	Limit   int
}

// Events stores events and their tags.
type Events interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	// Update writes all mutable fields and tags of e. OwnerID is never written.
	Update(ctx context.Context, e *models.Event) error
	List(ctx context.Context, f EventFilter) ([]models.Event, error)
}

// Registrations stores attendee registrations.
type Registrations interface {
	// Create inserts r or fails with ErrDuplicate on (event,user) or ticket collision.
	Create(ctx context.Context, r *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	GetByTicket(ctx context.Context, ticketHash string) (*models.Registration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	// SetStatus moves a PENDING registration (or one already in status) to status.
	// Returns ErrConditionFailed when the row is in a different terminal state.
	SetStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Registration, error)
	// MarkCheckedIn flips is_checked_in from false to true in one conditional update.
	// Returns ErrConditionFailed when the registration is already checked in.
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time, by uuid.UUID) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	ListAgenda(ctx context.Context, userID uuid.UUID) ([]models.AgendaEntry, error)
	Stats(ctx context.Context, eventID uuid.UUID) (models.CheckInStats, error)
}

// Team stores event team memberships.
type Team interface {
	// Create inserts m or fails with ErrDuplicate on (event,user).
	Create(ctx context.Context, m *models.TeamMember) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TeamMember, error)
	GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.TeamMember, error)
	// SetStatus moves a PENDING membership (or one already in status) to status,
	// replacing the permission flags when perms is non-nil.
	SetStatus(ctx context.Context, id uuid.UUID, status models.Status, perms *models.Permissions) (*models.TeamMember, error)
	Delete(ctx context.Context, eventID, userID uuid.UUID) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.TeamMemberView, error)
	ListPendingInvites(ctx context.Context, userID uuid.UUID) ([]models.TeamMember, error)
}

// Exports stores attendee export jobs.
type Exports interface {
	Create(ctx context.Context, e *models.Export) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, key string, rows int, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error
}

// Connections stores networking requests between users.
type Connections interface {
	// Create inserts c or fails with ErrDuplicate when the pair is already
	// connected in either direction.
	Create(ctx context.Context, c *models.Connection) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error)
	// SetStatus moves a PENDING connection (or one already in status) to status.
	SetStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Connection, error)
}

// Store groups the repositories of one backend.
type Store interface {
	Users() Users
	Events() Events
	Registrations() Registrations
	Team() Team
	Exports() Exports
	Connections() Connections
}

// MembershipOf returns the user's membership for an event, or nil when the
// user has no row.
func MembershipOf(ctx context.Context, team Team, eventID, userID uuid.UUID) (*models.TeamMember, error) {
	m, err := team.GetByEventAndUser(ctx, eventID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return m, err
}
