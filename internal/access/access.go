// Package access decides whether an actor may mutate an event's team,
// registrations or core fields.
//
// Rules:
//   - The event owner has every permission and never has a team row.
//   - Other actors act through their APPROVED team membership for the same event;
//     pending or rejected memberships grant nothing.
//   - can_manage_team allows reviewing registrations and team applications,
//     inviting organizers and removing volunteers.
//   - can_scan_qr allows check-ins.
//   - Removing an organizer and editing core event fields are owner-only.
package access

import (
	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
)

// IsOwner reports whether the actor created the event.
func IsOwner(event *models.Event, actorID uuid.UUID) bool {
	return event != nil && event.OwnerID == actorID
}

// effective returns m if it is an approved membership of actorID in event.
func effective(event *models.Event, actorID uuid.UUID, m *models.TeamMember) *models.TeamMember {
	if event == nil || m == nil {
		return nil
	}
	if m.EventID != event.ID || m.UserID != actorID || m.Status != models.StatusApproved {
		return nil
	}
	return m
}

// CanManage reports whether the actor may manage the event's team and registrations.
func CanManage(event *models.Event, actorID uuid.UUID, m *models.TeamMember) bool {
	if IsOwner(event, actorID) {
		return true
	}
	em := effective(event, actorID, m)
	return em != nil && em.CanManageTeam
}

// CanScan reports whether the actor may check attendees in.
func CanScan(event *models.Event, actorID uuid.UUID, m *models.TeamMember) bool {
	if IsOwner(event, actorID) {
		return true
	}
	em := effective(event, actorID, m)
	return em != nil && em.CanScanQR
}

// CanEditEvent reports whether the actor may change core event fields. Owner only.
func CanEditEvent(event *models.Event, actorID uuid.UUID) bool {
	return IsOwner(event, actorID)
}

// CheckRemoval returns nil if the actor may remove targetUserID from the team.
// target is the membership being removed and may be nil when no row exists.
func CheckRemoval(event *models.Event, actorID uuid.UUID, actorMembership *models.TeamMember, targetUserID uuid.UUID, target *models.TeamMember) error {
	if event == nil {
		return apperr.E(apperr.NotFound, "event not found")
	}
	if targetUserID == event.OwnerID {
		return apperr.E(apperr.Forbidden, "the event owner cannot be removed")
	}
	if target != nil && target.Role == models.RoleOrganizer && !IsOwner(event, actorID) {
		return apperr.E(apperr.Forbidden, "only the event creator can remove organizers")
	}
	if !CanManage(event, actorID, actorMembership) {
		return apperr.E(apperr.Unauthorized, "you don't have permission to manage this team")
	}
	return nil
}
