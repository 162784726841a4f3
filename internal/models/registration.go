package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is an attendee registration for an event.
// TicketHash is the opaque credential presented at check-in.
type Registration struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Status       Status     `json:"status"`
	TicketHash   string     `json:"ticket_hash,omitempty"`
	IsCheckedIn  bool       `json:"is_checked_in"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy  *uuid.UUID `json:"checked_in_by,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AgendaEntry is a registration joined with its event (personal agenda).
type AgendaEntry struct {
	Registration Registration `json:"registration"`
	Event        Event        `json:"event"`
}

// CheckInStats are per-event attendance counters.
type CheckInStats struct {
	EventID    uuid.UUID `json:"event_id"`
	Registered int       `json:"registered"`
	Approved   int       `json:"approved"`
	CheckedIn  int       `json:"checked_in"`
}
