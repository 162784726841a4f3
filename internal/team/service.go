// Package team manages event team memberships: volunteer and organizer
// applications, organizer invitations, decisions and removals.
package team

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/access"
	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

// InvitePermissions are the flags granted by an invitation. Nil fields default to true.
type InvitePermissions struct {
	CanManageTeam  *bool `json:"can_manage_team"`
	CanScanQR      *bool `json:"can_scan_qr"`
	CanManageTasks *bool `json:"can_manage_tasks"`
}

func (p InvitePermissions) resolve() models.Permissions {
	def := func(b *bool) bool { return b == nil || *b }
	return models.Permissions{CanManageTeam: def(p.CanManageTeam), CanScanQR: def(p.CanScanQR), CanManageTasks: def(p.CanManageTasks)}
}

// ApprovalPermissions are the flags granted when approving an application.
type ApprovalPermissions struct {
	CanScanQR      bool `json:"can_scan_qr"`
	CanManageTasks bool `json:"can_manage_tasks"`
}

// Service implements team operations.
type Service struct {
	events store.Events
	users  store.Users
	team   store.Team
	logger *zap.Logger
}

// NewService creates a team service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{events: st.Events(), users: st.Users(), team: st.Team(), logger: logger}
}

// Apply records the actor's application to join the event team in role.
func (s *Service) Apply(ctx context.Context, eventID uuid.UUID, actor models.Actor, role models.TeamRole) (*models.TeamMember, error) {
	if !role.Valid() {
		return nil, apperr.Ef(apperr.Invalid, "role must be %s or %s", models.RoleOrganizer, models.RoleVolunteer)
	}
	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if access.IsOwner(e, actor.ID) {
		return nil, apperr.E(apperr.Conflict, "the event creator is already on the team")
	}
	if role == models.RoleVolunteer && !e.IsVolunteerOpen {
		return nil, apperr.E(apperr.Forbidden, "this event is not accepting volunteers at this time")
	}
	m := &models.TeamMember{EventID: eventID, UserID: actor.ID, Role: role, Status: models.StatusPending}
	if err := s.create(ctx, m, "you are already a member of this event team or have a pending application"); err != nil {
		return nil, err
	}
	s.logger.Info("team application submitted",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", actor.ID.String()),
		zap.String("role", string(role)))
	return m, nil
}

// InviteOrganizer invites the user with email to organize the event.
func (s *Service) InviteOrganizer(ctx context.Context, eventID uuid.UUID, actor models.Actor, email string, perms InvitePermissions) (*models.TeamMember, error) {
	e, err := s.requireManager(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.E(apperr.Invalid, "email is required")
	}
	invitee, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "user not found. They must have an account first")
	}
	if err != nil {
		return nil, apperr.Backend("load user", err)
	}
	if access.IsOwner(e, invitee.ID) {
		return nil, apperr.E(apperr.Conflict, "the event creator is already on the team")
	}
	assignedBy := actor.ID
	m := &models.TeamMember{
		EventID:     eventID,
		UserID:      invitee.ID,
		Role:        models.RoleOrganizer,
		Status:      models.StatusPending,
		Permissions: perms.resolve(),
		AssignedBy:  &assignedBy,
	}
	if err := s.create(ctx, m, "user is already an organizer or has a pending invite"); err != nil {
		return nil, err
	}
	s.logger.Info("organizer invited",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", invitee.ID.String()),
		zap.String("assigned_by", actor.ID.String()))
	return m, nil
}

// RespondToInvite records the invitee's answer to an organizer invitation.
func (s *Service) RespondToInvite(ctx context.Context, membershipID uuid.UUID, actor models.Actor, status models.Status) (*models.TeamMember, error) {
	if !status.IsDecision() {
		return nil, apperr.Ef(apperr.Invalid, "status must be %s or %s", models.StatusApproved, models.StatusRejected)
	}
	m, err := s.loadMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.UserID != actor.ID {
		return nil, apperr.E(apperr.Unauthorized, "only the invited user can respond to this invitation")
	}
	if !m.IsInvitation() {
		return nil, apperr.E(apperr.Forbidden, "applications are decided by the event team, not the applicant")
	}
	updated, err := s.setStatus(ctx, m, status, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("organizer invitation answered",
		zap.String("membership_id", membershipID.String()),
		zap.String("status", string(status)))
	return updated, nil
}

// ReviewApplication decides a self-application. Approval grants perms (team
// management is never granted this way); rejection clears every flag.
// A nil perms on approval leaves the flags unchanged.
func (s *Service) ReviewApplication(ctx context.Context, membershipID uuid.UUID, status models.Status, actor models.Actor, perms *ApprovalPermissions) (*models.TeamMember, error) {
	if !status.IsDecision() {
		return nil, apperr.Ef(apperr.Invalid, "status must be %s or %s", models.StatusApproved, models.StatusRejected)
	}
	m, err := s.loadMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireManager(ctx, m.EventID, actor); err != nil {
		return nil, err
	}
	if m.IsInvitation() {
		return nil, apperr.E(apperr.Forbidden, "invitations are answered by the invited user")
	}
	var flags *models.Permissions
	switch {
	case status == models.StatusRejected:
		flags = &models.Permissions{}
	case perms != nil:
		flags = &models.Permissions{CanScanQR: perms.CanScanQR, CanManageTasks: perms.CanManageTasks}
	}
	updated, err := s.setStatus(ctx, m, status, flags)
	if err != nil {
		return nil, err
	}
	s.logger.Info("team application reviewed",
		zap.String("membership_id", membershipID.String()),
		zap.String("status", string(status)),
		zap.String("reviewer_id", actor.ID.String()))
	return updated, nil
}

// Remove deletes targetUserID from the event team.
func (s *Service) Remove(ctx context.Context, eventID, targetUserID uuid.UUID, actor models.Actor) error {
	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	actorMembership, err := store.MembershipOf(ctx, s.team, eventID, actor.ID)
	if err != nil {
		return apperr.Backend("load membership", err)
	}
	target, err := store.MembershipOf(ctx, s.team, eventID, targetUserID)
	if err != nil {
		return apperr.Backend("load membership", err)
	}
	if err := access.CheckRemoval(e, actor.ID, actorMembership, targetUserID, target); err != nil {
		return err
	}
	if target == nil {
		return apperr.E(apperr.NotFound, "team member not found")
	}
	if err := s.team.Delete(ctx, eventID, targetUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.E(apperr.NotFound, "team member not found")
		}
		s.logger.Error("remove team member failed", zap.Error(err), zap.String("event_id", eventID.String()))
		return apperr.Backend("remove team member", err)
	}
	s.logger.Info("team member removed",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", targetUserID.String()),
		zap.String("removed_by", actor.ID.String()))
	return nil
}

// List returns the event's team for a manager.
func (s *Service) List(ctx context.Context, eventID uuid.UUID, actor models.Actor) ([]models.TeamMemberView, error) {
	if _, err := s.requireManager(ctx, eventID, actor); err != nil {
		return nil, err
	}
	list, err := s.team.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperr.Backend("list team", err)
	}
	return list, nil
}

// ListInvites returns the actor's pending organizer invitations.
func (s *Service) ListInvites(ctx context.Context, actor models.Actor) ([]models.TeamMember, error) {
	list, err := s.team.ListPendingInvites(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Backend("list invitations", err)
	}
	return list, nil
}

func (s *Service) create(ctx context.Context, m *models.TeamMember, conflictMsg string) error {
	err := s.team.Create(ctx, m)
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.E(apperr.Conflict, conflictMsg)
	}
	if err != nil {
		s.logger.Error("create team member failed", zap.Error(err), zap.String("event_id", m.EventID.String()))
		return apperr.Backend("create team member", err)
	}
	return nil
}

func (s *Service) setStatus(ctx context.Context, m *models.TeamMember, status models.Status, perms *models.Permissions) (*models.TeamMember, error) {
	updated, err := s.team.SetStatus(ctx, m.ID, status, perms)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.E(apperr.NotFound, "team membership not found")
	case errors.Is(err, store.ErrConditionFailed):
		return nil, apperr.Ef(apperr.Conflict, "membership was already %s", m.Status)
	case err != nil:
		s.logger.Error("update team member failed", zap.Error(err), zap.String("membership_id", m.ID.String()))
		return nil, apperr.Backend("update team member", err)
	}
	return updated, nil
}

func (s *Service) loadEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "event not found")
	}
	if err != nil {
		return nil, apperr.Backend("load event", err)
	}
	return e, nil
}

func (s *Service) loadMembership(ctx context.Context, id uuid.UUID) (*models.TeamMember, error) {
	m, err := s.team.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "team membership not found")
	}
	if err != nil {
		return nil, apperr.Backend("load membership", err)
	}
	return m, nil
}

func (s *Service) requireManager(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Event, error) {
	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	m, err := store.MembershipOf(ctx, s.team, eventID, actor.ID)
	if err != nil {
		return nil, apperr.Backend("load membership", err)
	}
	if !access.CanManage(e, actor.ID, m) {
		return nil, apperr.E(apperr.Unauthorized, "you don't have permission to manage this team")
	}
	return e, nil
}
