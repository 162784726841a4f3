package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamRole is the role of a user on an event team.
type TeamRole string

const (
	RoleOrganizer TeamRole = "ORGANIZER"
	RoleVolunteer TeamRole = "VOLUNTEER"
)

// Valid reports whether r is a known team role.
func (r TeamRole) Valid() bool {
	return r == RoleOrganizer || r == RoleVolunteer
}

// Permissions are the flags granted to a team member.
type Permissions struct {
	CanManageTeam  bool `json:"can_manage_team"`
	CanScanQR      bool `json:"can_scan_qr"`
	CanManageTasks bool `json:"can_manage_tasks"`
}

// TeamMember links a user to an event with a role. The event owner never has a row.
// AssignedBy is set for invitations and nil for self-applications.
type TeamMember struct {
	ID      uuid.UUID `json:"id"`
	EventID uuid.UUID `json:"event_id"`
	UserID  uuid.UUID `json:"user_id"`
	Role    TeamRole  `json:"role"`
	Status  Status    `json:"status"`
	Permissions
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsInvitation reports whether the row was created by someone other than the member.
func (m *TeamMember) IsInvitation() bool {
	return m.AssignedBy != nil && *m.AssignedBy != m.UserID
}

// TeamMemberView is a team row with the member's public profile (for team listings).
type TeamMemberView struct {
	TeamMember
	Name  string `json:"name"`
	Email string `json:"email"`
}
