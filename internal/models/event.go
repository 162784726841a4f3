package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is an event owned by exactly one user (its creator).
type Event struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	ParentEventID   *uuid.UUID `json:"parent_event_id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Venue           string     `json:"venue"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	Timezone        string     `json:"timezone"`
	IsInviteOnly    bool       `json:"is_invite_only"`
	IsVolunteerOpen bool       `json:"is_volunteer_open"`
	Tags            []string   `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EventPatch holds optional event field updates. Owner is not patchable.
type EventPatch struct {
	Title           *string
	Description     *string
	Venue           *string
	StartsAt        *time.Time
	EndsAt          *time.Time
	Timezone        *string
	IsInviteOnly    *bool
	IsVolunteerOpen *bool
	Tags            *[]string
}

// Apply returns a copy of e with the patch applied.
func (p EventPatch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Venue != nil {
		e.Venue = *p.Venue
	}
	if p.StartsAt != nil {
		e.StartsAt = *p.StartsAt
	}
	if p.EndsAt != nil {
		e.EndsAt = *p.EndsAt
	}
	if p.Timezone != nil {
		e.Timezone = *p.Timezone
	}
	if p.IsInviteOnly != nil {
		e.IsInviteOnly = *p.IsInviteOnly
	}
	if p.IsVolunteerOpen != nil {
		e.IsVolunteerOpen = *p.IsVolunteerOpen
	}
	if p.Tags != nil {
		e.Tags = *p.Tags
	}
	return e
}
