// Package events is the event mutation gateway: creation by professionals,
// owner-only updates, listings and interest-based recommendations.
package events

import (
	"context"
	"errors"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/access"
	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/matching"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

// CreateInput are the fields of a new event.
type CreateInput struct {
	Title           string
	Description     string
	Venue           string
	StartsAt        time.Time
	EndsAt          time.Time
	Timezone        string
	ParentEventID   *uuid.UUID
	IsInviteOnly    bool
	IsVolunteerOpen bool
	Tags            []string
}

// Recommendation is an event with its match score against the caller's interests.
type Recommendation struct {
	Event models.Event `json:"event"`
	Score int          `json:"score"`
}

// Service implements event operations.
type Service struct {
	events store.Events
	users  store.Users
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an events service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{events: st.Events(), users: st.Users(), logger: logger, now: time.Now}
}

// Create stores a new event owned by the actor. Only professionals may create events.
func (s *Service) Create(ctx context.Context, in CreateInput, actor models.Actor) (*models.Event, error) {
	category, err := s.category(ctx, actor)
	if err != nil {
		return nil, err
	}
	if category != models.CategoryProfessional {
		return nil, apperr.E(apperr.Forbidden, "only professionals can create events")
	}
	e := &models.Event{
		OwnerID:         actor.ID,
		ParentEventID:   in.ParentEventID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Venue:           in.Venue,
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
		Timezone:        in.Timezone,
		IsInviteOnly:    in.IsInviteOnly,
		IsVolunteerOpen: in.IsVolunteerOpen,
		Tags:            store.NormalizeTags(in.Tags),
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	if e.ParentEventID != nil {
		if _, err := s.events.GetByID(ctx, *e.ParentEventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.E(apperr.Invalid, "parent event not found")
			}
			return nil, apperr.Backend("load parent event", err)
		}
	}
	if err := s.events.Create(ctx, e); err != nil {
		s.logger.Error("create event failed", zap.Error(err), zap.String("owner_id", actor.ID.String()))
		return nil, apperr.Backend("create event", err)
	}
	s.logger.Info("event created", zap.String("event_id", e.ID.String()), zap.String("owner_id", actor.ID.String()))
	return e, nil
}

// Update applies patch to the event. Only the owner may edit core fields.
func (s *Service) Update(ctx context.Context, eventID uuid.UUID, patch models.EventPatch, actor models.Actor) (*models.Event, error) {
	current, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !access.CanEditEvent(current, actor.ID) {
		return nil, apperr.E(apperr.Forbidden, "only the event creator can edit event details")
	}
	next := patch.Apply(*current)
	next.Title = strings.TrimSpace(next.Title)
	next.Tags = store.NormalizeTags(next.Tags)
	if err := validate(&next); err != nil {
		return nil, err
	}
	if err := s.events.Update(ctx, &next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.E(apperr.NotFound, "event not found")
		}
		s.logger.Error("update event failed", zap.Error(err), zap.String("event_id", eventID.String()))
		return nil, apperr.Backend("update event", err)
	}
	s.logger.Info("event updated", zap.String("event_id", eventID.String()))
	return &next, nil
}

// Get returns an event by ID.
func (s *Service) Get(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "event not found")
	}
	if err != nil {
		return nil, apperr.Backend("load event", err)
	}
	return e, nil
}

// List returns upcoming events, optionally filtered by tag.
func (s *Service) List(ctx context.Context, tag string, limit int) ([]models.Event, error) {
	from := s.now()
	list, err := s.events.List(ctx, store.EventFilter{Tag: tag, From: &from, Limit: limit})
	if err != nil {
		return nil, apperr.Backend("list events", err)
	}
	return list, nil
}

// Recommend ranks upcoming events by how well their tags match the actor's interests.
func (s *Service) Recommend(ctx context.Context, actor models.Actor, limit int) ([]Recommendation, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Backend("load profile", err)
	}
	var interests []string
	if u != nil {
		interests = u.Interests
	}
	upcoming, err := s.List(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Event, len(upcoming))
	candidates := make([]matching.Candidate, 0, len(upcoming))
	for _, e := range upcoming {
		if e.OwnerID == actor.ID {
			continue
		}
		key := e.ID.String()
		byID[key] = e
		candidates = append(candidates, matching.Candidate{Key: key, Tags: e.Tags})
	}
	ranked := matching.Rank(interests, candidates)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Recommendation, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, Recommendation{Event: byID[r.Key], Score: r.Score})
	}
	return out, nil
}

// category prefers the stored profile and falls back to the token's claim.
func (s *Service) category(ctx context.Context, actor models.Actor) (models.Category, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return actor.Category, nil
	case err != nil:
		return "", apperr.Backend("load profile", err)
	case u.Category != "":
		return u.Category, nil
	}
	return actor.Category, nil
}

func validate(e *models.Event) error {
	if e.Title == "" {
		return apperr.E(apperr.Invalid, "title is required")
	}
	if e.StartsAt.IsZero() || e.EndsAt.IsZero() {
		return apperr.E(apperr.Invalid, "start and end times are required")
	}
	if e.EndsAt.Before(e.StartsAt) {
		return apperr.E(apperr.Invalid, "event cannot end before it starts")
	}
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(e.Timezone); err != nil {
		return apperr.Ef(apperr.Invalid, "unknown timezone %q", e.Timezone)
	}
	return nil
}
