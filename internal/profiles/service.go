// Package profiles keeps local user profiles in sync with the identity
// provider and ranks networking matches by shared interests.
package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/matching"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

// matchPool bounds how many users are scored per request.
const matchPool = 500

// Identity is what the identity provider asserts about the caller.
type Identity struct {
	ID       uuid.UUID
	Email    string
	Name     string
	Category models.Category
}

// Update holds optional profile changes. Nil fields keep the current value.
type Update struct {
	Name      *string
	Category  *models.Category
	Interests *[]string
}

// Match is another user ranked by interest overlap.
type Match struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Interests []string  `json:"interests"`
	Score     int       `json:"score"`
}

// Profile is a user together with their activity counters.
type Profile struct {
	models.User
	Stats models.ProfileStats `json:"stats"`
}

// Service implements profile operations.
type Service struct {
	users       store.Users
	connections store.Connections
	logger      *zap.Logger
}

// NewService creates a profiles service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: st.Users(), connections: st.Connections(), logger: logger}
}

// Ensure creates the caller's profile on first sight.
func (s *Service) Ensure(ctx context.Context, id Identity) error {
	_, err := s.users.GetByID(ctx, id.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return apperr.Backend("load profile", err)
	}
	u := &models.User{ID: id.ID, Name: id.Name, Email: id.Email, Category: id.Category}
	if u.Category == "" {
		u.Category = models.CategoryStudent
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.E(apperr.Conflict, "email is already used by another account")
		}
		return apperr.Backend("create profile", err)
	}
	s.logger.Info("profile created", zap.String("user_id", id.ID.String()))
	return nil
}

// Sync upserts the caller's profile and optionally replaces their interests.
func (s *Service) Sync(ctx context.Context, id Identity, upd Update) (*models.User, error) {
	current, err := s.users.GetByID(ctx, id.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Backend("load profile", err)
	}
	u := &models.User{ID: id.ID, Name: id.Name, Email: id.Email, Category: id.Category}
	if current != nil {
		u.Name, u.Category = current.Name, current.Category
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Category != nil {
		cat := models.ParseCategory(string(*upd.Category))
		if cat == "" {
			return nil, apperr.Ef(apperr.Invalid, "category must be %s or %s", models.CategoryStudent, models.CategoryProfessional)
		}
		u.Category = cat
	}
	if u.Category == "" {
		u.Category = models.CategoryStudent
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.E(apperr.Conflict, "email is already used by another account")
		}
		return nil, apperr.Backend("save profile", err)
	}
	if upd.Interests != nil {
		if err := s.users.SetInterests(ctx, id.ID, *upd.Interests); err != nil {
			return nil, apperr.Backend("save interests", err)
		}
	}
	saved, err := s.users.GetByID(ctx, id.ID)
	if err != nil {
		return nil, apperr.Backend("load profile", err)
	}
	s.logger.Info("profile synced", zap.String("user_id", id.ID.String()), zap.Int("interests", len(saved.Interests)))
	return saved, nil
}

// Get returns the caller's profile.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "profile not found")
	}
	if err != nil {
		return nil, apperr.Backend("load profile", err)
	}
	return u, nil
}

// Profile returns the caller's profile with their activity counters.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.users.Stats(ctx, userID)
	if err != nil {
		return nil, apperr.Backend("load profile stats", err)
	}
	return &Profile{User: *u, Stats: st}, nil
}

// Connect sends a PENDING connection request from the caller to targetID.
// A pair of users can be connected once, in either direction.
func (s *Service) Connect(ctx context.Context, actor models.Actor, targetID uuid.UUID) (*models.Connection, error) {
	if targetID == actor.ID {
		return nil, apperr.E(apperr.Invalid, "cannot connect to yourself")
	}
	if _, err := s.Get(ctx, targetID); err != nil {
		if apperr.Has(err, apperr.NotFound) {
			return nil, apperr.E(apperr.NotFound, "user not found")
		}
		return nil, err
	}
	c := &models.Connection{FollowerID: actor.ID, FollowedID: targetID, Status: models.StatusPending}
	if err := s.connections.Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.E(apperr.Conflict, "already connected or requested")
		}
		s.logger.Error("create connection failed", zap.Error(err), zap.String("user_id", actor.ID.String()))
		return nil, apperr.Backend("create connection", err)
	}
	s.logger.Info("connection requested",
		zap.String("connection_id", c.ID.String()),
		zap.String("follower_id", actor.ID.String()),
		zap.String("followed_id", targetID.String()))
	return c, nil
}

// RespondToConnection records the requested user's answer to a connection.
func (s *Service) RespondToConnection(ctx context.Context, connectionID uuid.UUID, actor models.Actor, status models.Status) (*models.Connection, error) {
	if !status.IsDecision() {
		return nil, apperr.Ef(apperr.Invalid, "status must be %s or %s", models.StatusApproved, models.StatusRejected)
	}
	c, err := s.connections.GetByID(ctx, connectionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "connection not found")
	}
	if err != nil {
		return nil, apperr.Backend("load connection", err)
	}
	if c.FollowedID != actor.ID {
		return nil, apperr.E(apperr.Unauthorized, "only the requested user can respond to this connection")
	}
	updated, err := s.connections.SetStatus(ctx, c.ID, status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.E(apperr.NotFound, "connection not found")
	case errors.Is(err, store.ErrConditionFailed):
		return nil, apperr.Ef(apperr.Conflict, "connection was already %s", c.Status)
	case err != nil:
		return nil, apperr.Backend("update connection", err)
	}
	s.logger.Info("connection answered",
		zap.String("connection_id", c.ID.String()),
		zap.String("status", string(status)))
	return updated, nil
}

// Matches ranks other users by interest overlap with the caller.
func (s *Service) Matches(ctx context.Context, actor models.Actor, limit int) ([]Match, error) {
	me, err := s.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	others, err := s.users.ListOthers(ctx, actor.ID, matchPool)
	if err != nil {
		return nil, apperr.Backend("list users", err)
	}
	byKey := make(map[string]models.User, len(others))
	candidates := make([]matching.Candidate, 0, len(others))
	for _, u := range others {
		key := u.ID.String()
		byKey[key] = u
		candidates = append(candidates, matching.Candidate{Key: key, Tags: u.Interests})
	}
	ranked := matching.Rank(me.Interests, candidates)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		u := byKey[r.Key]
		out = append(out, Match{UserID: u.ID, Name: u.Name, Interests: u.Interests, Score: r.Score})
	}
	return out, nil
}
