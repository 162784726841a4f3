// Package checkin validates attendee tickets at the door.
//
// A ticket is checked in at most once: the flag flips in a single conditional
// update, so of two concurrent scans exactly one succeeds and the other sees
// AlreadyCheckedIn.
package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/access"
	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

// Feed message names.
const (
	EventCheckIn = "checkin"
	EventStats   = "stats"
)

// Feed receives live check-in updates for an event.
type Feed interface {
	Publish(ctx context.Context, eventID uuid.UUID, event string, payload interface{}) error
}

// Result is a successful check-in.
type Result struct {
	Registration models.Registration `json:"registration"`
	Attendee     *models.User        `json:"attendee,omitempty"`
	EventTitle   string              `json:"event_title"`
}

// Notice is the payload of a checkin feed message.
type Notice struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name,omitempty"`
	CheckedInAt    time.Time `json:"checked_in_at"`
	CheckedInBy    uuid.UUID `json:"checked_in_by"`
}

// Service implements check-in operations.
type Service struct {
	events store.Events
	regs   store.Registrations
	team   store.Team
	users  store.Users
	feed   Feed
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a check-in service. feed may be nil.
func NewService(st store.Store, feed Feed, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events: st.Events(),
		regs:   st.Registrations(),
		team:   st.Team(),
		users:  st.Users(),
		feed:   feed,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CheckIn admits the holder of ticketHash, scanned by scanner.
func (s *Service) CheckIn(ctx context.Context, ticketHash string, scanner models.Actor) (*Result, error) {
	if ticketHash == "" {
		return nil, apperr.E(apperr.InvalidTicket, "invalid ticket")
	}
	reg, err := s.regs.GetByTicket(ctx, ticketHash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.InvalidTicket, "invalid ticket")
	}
	if err != nil {
		return nil, apperr.Backend("load ticket", err)
	}
	if reg.IsCheckedIn {
		return nil, alreadyCheckedIn(reg)
	}
	e, err := s.requireScanner(ctx, reg.EventID, scanner)
	if err != nil {
		return nil, err
	}

	updated, err := s.regs.MarkCheckedIn(ctx, reg.ID, s.now(), scanner.ID)
	switch {
	case errors.Is(err, store.ErrConditionFailed):
		// Another scan won the race.
		current, getErr := s.regs.GetByID(ctx, reg.ID)
		if getErr != nil {
			return nil, apperr.E(apperr.AlreadyCheckedIn, "attendee already checked in")
		}
		return nil, alreadyCheckedIn(current)
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.E(apperr.InvalidTicket, "invalid ticket")
	case err != nil:
		s.logger.Error("check-in update failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		return nil, apperr.Backend("check in", err)
	}

	res := &Result{Registration: *updated, EventTitle: e.Title}
	if u, err := s.users.GetByID(ctx, updated.UserID); err == nil {
		res.Attendee = u
	}
	s.logger.Info("attendee checked in",
		zap.String("event_id", e.ID.String()),
		zap.String("registration_id", updated.ID.String()),
		zap.String("scanner_id", scanner.ID.String()))
	s.announce(ctx, res)
	return res, nil
}

// Stats returns attendance counters for managers and scanners.
func (s *Service) Stats(ctx context.Context, eventID uuid.UUID, actor models.Actor) (models.CheckInStats, error) {
	if _, err := s.requireFeedAccess(ctx, eventID, actor); err != nil {
		return models.CheckInStats{}, err
	}
	stats, err := s.regs.Stats(ctx, eventID)
	if err != nil {
		return models.CheckInStats{}, apperr.Backend("load stats", err)
	}
	return stats, nil
}

// AuthorizeFeed reports whether actor may watch the event's live check-in feed.
func (s *Service) AuthorizeFeed(ctx context.Context, eventID uuid.UUID, actor models.Actor) error {
	_, err := s.requireFeedAccess(ctx, eventID, actor)
	return err
}

func (s *Service) announce(ctx context.Context, res *Result) {
	if s.feed == nil {
		return
	}
	reg := res.Registration
	n := Notice{RegistrationID: reg.ID, UserID: reg.UserID, CheckedInBy: *reg.CheckedInBy, CheckedInAt: *reg.CheckedInAt}
	if res.Attendee != nil {
		n.Name = res.Attendee.Name
	}
	if err := s.feed.Publish(ctx, reg.EventID, EventCheckIn, n); err != nil {
		s.logger.Warn("publish check-in failed", zap.Error(err), zap.String("event_id", reg.EventID.String()))
		return
	}
	stats, err := s.regs.Stats(ctx, reg.EventID)
	if err != nil {
		s.logger.Warn("load stats failed", zap.Error(err), zap.String("event_id", reg.EventID.String()))
		return
	}
	if err := s.feed.Publish(ctx, reg.EventID, EventStats, stats); err != nil {
		s.logger.Warn("publish stats failed", zap.Error(err), zap.String("event_id", reg.EventID.String()))
	}
}

func (s *Service) loadEventAndMembership(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Event, *models.TeamMember, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.E(apperr.NotFound, "event not found")
	}
	if err != nil {
		return nil, nil, apperr.Backend("load event", err)
	}
	if access.IsOwner(e, actor.ID) {
		return e, nil, nil
	}
	m, err := store.MembershipOf(ctx, s.team, eventID, actor.ID)
	if err != nil {
		return nil, nil, apperr.Backend("load membership", err)
	}
	return e, m, nil
}

func (s *Service) requireScanner(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Event, error) {
	e, m, err := s.loadEventAndMembership(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}
	if !access.CanScan(e, actor.ID, m) {
		return nil, apperr.E(apperr.Unauthorized, "you don't have permission to check in attendees for this event")
	}
	return e, nil
}

func (s *Service) requireFeedAccess(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Event, error) {
	e, m, err := s.loadEventAndMembership(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}
	if !access.CanScan(e, actor.ID, m) && !access.CanManage(e, actor.ID, m) {
		return nil, apperr.E(apperr.Unauthorized, "you don't have access to this event's check-ins")
	}
	return e, nil
}

func alreadyCheckedIn(reg *models.Registration) error {
	if reg.CheckedInAt != nil {
		return apperr.Ef(apperr.AlreadyCheckedIn, "attendee already checked in at %s", reg.CheckedInAt.Format(time.RFC3339))
	}
	return apperr.E(apperr.AlreadyCheckedIn, "attendee already checked in")
}
