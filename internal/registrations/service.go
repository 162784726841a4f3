// Package registrations manages attendee registrations: sign-up with a ticket
// credential, review by event managers and the attendee's own agenda.
package registrations

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/access"
	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

// ticketBytes is the entropy of a ticket credential (256 bits).
const ticketBytes = 32

// Service implements registration operations.
type Service struct {
	events store.Events
	regs   store.Registrations
	team   store.Team
	logger *zap.Logger
	ticket func() (string, error)
}

// NewService creates a registrations service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{events: st.Events(), regs: st.Registrations(), team: st.Team(), logger: logger, ticket: NewTicket}
}

// NewTicket returns a fresh URL-safe ticket credential.
func NewTicket() (string, error) {
	b := make([]byte, ticketBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Register signs the actor up for an event. New registrations are always PENDING.
func (s *Service) Register(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Registration, error) {
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}
	// A ticket collision is retried once with a new credential; a second
	// duplicate is the (event,user) constraint.
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err := s.ticket()
		if err != nil {
			return nil, apperr.Backend("generate ticket", err)
		}
		reg := &models.Registration{EventID: eventID, UserID: actor.ID, Status: models.StatusPending, TicketHash: ticket}
		err = s.regs.Create(ctx, reg)
		if err == nil {
			s.logger.Info("registered", zap.String("event_id", eventID.String()), zap.String("user_id", actor.ID.String()))
			return reg, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			s.logger.Error("create registration failed", zap.Error(err), zap.String("event_id", eventID.String()))
			return nil, apperr.Backend("create registration", err)
		}
		if _, lookupErr := s.regs.GetByEventAndUser(ctx, eventID, actor.ID); lookupErr == nil {
			return nil, apperr.E(apperr.Conflict, "you are already registered for this event")
		}
	}
	return nil, apperr.E(apperr.Conflict, "you are already registered for this event")
}

// Review approves or rejects a registration. Only event managers may review.
func (s *Service) Review(ctx context.Context, regID uuid.UUID, status models.Status, actor models.Actor) (*models.Registration, error) {
	if !status.IsDecision() {
		return nil, apperr.Ef(apperr.Invalid, "status must be %s or %s", models.StatusApproved, models.StatusRejected)
	}
	reg, err := s.regs.GetByID(ctx, regID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "registration not found")
	}
	if err != nil {
		return nil, apperr.Backend("load registration", err)
	}
	if err := s.requireManager(ctx, reg.EventID, actor); err != nil {
		return nil, err
	}
	updated, err := s.regs.SetStatus(ctx, regID, status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.E(apperr.NotFound, "registration not found")
	case errors.Is(err, store.ErrConditionFailed):
		return nil, apperr.Ef(apperr.Conflict, "registration was already %s", reg.Status)
	case err != nil:
		s.logger.Error("update registration failed", zap.Error(err), zap.String("registration_id", regID.String()))
		return nil, apperr.Backend("update registration", err)
	}
	s.logger.Info("registration reviewed",
		zap.String("registration_id", regID.String()),
		zap.String("status", string(status)),
		zap.String("reviewer_id", actor.ID.String()))
	return updated, nil
}

// ListForEvent returns the event's registrations for a manager, without ticket credentials.
func (s *Service) ListForEvent(ctx context.Context, eventID uuid.UUID, actor models.Actor) ([]models.Registration, error) {
	if err := s.requireManager(ctx, eventID, actor); err != nil {
		return nil, err
	}
	list, err := s.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperr.Backend("list registrations", err)
	}
	for i := range list {
		list[i].TicketHash = ""
	}
	return list, nil
}

// ListMine returns the actor's personal agenda.
func (s *Service) ListMine(ctx context.Context, actor models.Actor) ([]models.AgendaEntry, error) {
	list, err := s.regs.ListAgenda(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Backend("load agenda", err)
	}
	return list, nil
}

// Ticket returns the actor's own registration for an event, including the ticket.
func (s *Service) Ticket(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Registration, error) {
	reg, err := s.regs.GetByEventAndUser(ctx, eventID, actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "you are not registered for this event")
	}
	if err != nil {
		return nil, apperr.Backend("load registration", err)
	}
	return reg, nil
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

func (s *Service) requireManager(ctx context.Context, eventID uuid.UUID, actor models.Actor) error {
	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	m, err := store.MembershipOf(ctx, s.team, eventID, actor.ID)
	if err != nil {
		return apperr.Backend("load membership", err)
	}
	if !access.CanManage(e, actor.ID, m) {
		return apperr.E(apperr.Unauthorized, "you don't have permission to manage this event's registrations")
	}
	return nil
}
