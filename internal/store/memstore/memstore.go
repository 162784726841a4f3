// Package memstore is an in-memory implementation of the store interfaces.
// A single mutex serializes all access, so the conditional operations have
// the same atomicity the PostgreSQL store gets from single statements.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

// DB holds all tables.
type DB struct {
	mu            sync.Mutex
	users         map[uuid.UUID]models.User
	events        map[uuid.UUID]models.Event
	registrations map[uuid.UUID]models.Registration
	team          map[uuid.UUID]models.TeamMember
	exports       map[uuid.UUID]models.Export
	connections   map[uuid.UUID]models.Connection
	now           func() time.Time
}

// New returns an empty in-memory database.
func New() *DB {
	return &DB{
		users:         make(map[uuid.UUID]models.User),
		events:        make(map[uuid.UUID]models.Event),
		registrations: make(map[uuid.UUID]models.Registration),
		team:          make(map[uuid.UUID]models.TeamMember),
		exports:       make(map[uuid.UUID]models.Export),
		connections:   make(map[uuid.UUID]models.Connection),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (d *DB) Users() store.Users                 { return users{d} }
func (d *DB) Events() store.Events               { return events{d} }
func (d *DB) Registrations() store.Registrations { return registrations{d} }
func (d *DB) Team() store.Team                   { return team{d} }
func (d *DB) Exports() store.Exports             { return exports{d} }
func (d *DB) Connections() store.Connections     { return connections{d} }

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// users

type users struct{ d *DB }

func (s users) Upsert(_ context.Context, u *models.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for id, other := range s.d.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	now := s.d.now()
	row, ok := s.d.users[u.ID]
	if !ok {
		row = models.User{ID: u.ID, CreatedAt: now, Interests: []string{}}
	}
	row.Name, row.Email, row.Category, row.UpdatedAt = u.Name, u.Email, u.Category, now
	s.d.users[u.ID] = row
	*u = row
	u.Interests = cloneStrings(row.Interests)
	return nil
}

func (s users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Interests = cloneStrings(u.Interests)
	return &u, nil
}

func (s users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, u := range s.d.users {
		if strings.EqualFold(u.Email, email) {
			u.Interests = cloneStrings(u.Interests)
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s users) SetInterests(_ context.Context, userID uuid.UUID, tags []string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	u, ok := s.d.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Interests = store.NormalizeTags(tags)
	u.UpdatedAt = s.d.now()
	s.d.users[userID] = u
	return nil
}

func (s users) ListOthers(_ context.Context, excludeID uuid.UUID, limit int) ([]models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var list []models.User
	for id, u := range s.d.users {
		if id == excludeID {
			continue
		}
		u.Interests = cloneStrings(u.Interests)
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s users) Stats(_ context.Context, userID uuid.UUID) (models.ProfileStats, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var st models.ProfileStats
	for _, r := range s.d.registrations {
		if r.UserID == userID && r.Status == models.StatusApproved && r.IsCheckedIn {
			st.Attended++
		}
	}
	for _, e := range s.d.events {
		if e.OwnerID == userID {
			st.Organized++
		}
	}
	for _, m := range s.d.team {
		if m.UserID == userID && m.Role == models.RoleVolunteer && m.Status == models.StatusApproved {
			st.Volunteering++
		}
	}
	for _, c := range s.d.connections {
		if c.Involves(userID) && c.Status == models.StatusApproved {
			st.Connections++
		}
	}
	return st, nil
}

// events

type events struct{ d *DB }

func (s events) Create(_ context.Context, e *models.Event) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	now := s.d.now()
	e.ID = uuid.New()
	e.Tags = store.NormalizeTags(e.Tags)
	e.CreatedAt, e.UpdatedAt = now, now
	row := *e
	row.Tags = cloneStrings(e.Tags)
	s.d.events[e.ID] = row
	return nil
}

func (s events) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	e, ok := s.d.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	e.Tags = cloneStrings(e.Tags)
	return &e, nil
}

func (s events) Update(_ context.Context, e *models.Event) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	row, ok := s.d.events[e.ID]
	if !ok {
		return store.ErrNotFound
	}
	owner, created := row.OwnerID, row.CreatedAt
	row = *e
	row.OwnerID, row.CreatedAt = owner, created
	row.Tags = store.NormalizeTags(e.Tags)
	row.UpdatedAt = s.d.now()
	s.d.events[e.ID] = row
	*e = row
	e.Tags = cloneStrings(row.Tags)
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s events) List(_ context.Context, f store.EventFilter) ([]models.Event, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	var list []models.Event
	for _, e := range s.d.events {
		if tag != "" && !hasTag(e.Tags, tag) {
			continue
		}
		if f.From != nil && e.EndsAt.Before(*f.From) {
			continue
		}
		if f.OwnerID != nil && e.OwnerID != *f.OwnerID {
			continue
		}
		e.Tags = cloneStrings(e.Tags)
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.Before(list[j].StartsAt) })
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

// registrations

type registrations struct{ d *DB }

func (s registrations) Create(_ context.Context, r *models.Registration) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, other := range s.d.registrations {
		if (other.EventID == r.EventID && other.UserID == r.UserID) || other.TicketHash == r.TicketHash {
			return store.ErrDuplicate
		}
	}
	now := s.d.now()
	r.ID = uuid.New()
	r.RegisteredAt, r.UpdatedAt = now, now
	s.d.registrations[r.ID] = *r
	return nil
}

func (s registrations) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	r, ok := s.d.registrations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s registrations) GetByTicket(_ context.Context, ticketHash string) (*models.Registration, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, r := range s.d.registrations {
		if r.TicketHash == ticketHash {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s registrations) GetByEventAndUser(_ context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, r := range s.d.registrations {
		if r.EventID == eventID && r.UserID == userID {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s registrations) SetStatus(_ context.Context, id uuid.UUID, status models.Status) (*models.Registration, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	r, ok := s.d.registrations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.Status != models.StatusPending && r.Status != status {
		return nil, store.ErrConditionFailed
	}
	r.Status = status
	r.UpdatedAt = s.d.now()
	s.d.registrations[id] = r
	return &r, nil
}

func (s registrations) MarkCheckedIn(_ context.Context, id uuid.UUID, at time.Time, by uuid.UUID) (*models.Registration, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	r, ok := s.d.registrations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.IsCheckedIn {
		return nil, store.ErrConditionFailed
	}
	r.IsCheckedIn = true
	r.CheckedInAt = &at
	r.CheckedInBy = &by
	r.UpdatedAt = s.d.now()
	s.d.registrations[id] = r
	return &r, nil
}

func (s registrations) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var list []models.Registration
	for _, r := range s.d.registrations {
		if r.EventID == eventID {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RegisteredAt.Before(list[j].RegisteredAt) })
	return list, nil
}

func (s registrations) ListAgenda(_ context.Context, userID uuid.UUID) ([]models.AgendaEntry, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var list []models.AgendaEntry
	for _, r := range s.d.registrations {
		if r.UserID != userID {
			continue
		}
		e, ok := s.d.events[r.EventID]
		if !ok {
			continue
		}
		e.Tags = cloneStrings(e.Tags)
		list = append(list, models.AgendaEntry{Registration: r, Event: e})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Event.StartsAt.Before(list[j].Event.StartsAt) })
	return list, nil
}

func (s registrations) Stats(_ context.Context, eventID uuid.UUID) (models.CheckInStats, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	st := models.CheckInStats{EventID: eventID}
	for _, r := range s.d.registrations {
		if r.EventID != eventID {
			continue
		}
		st.Registered++
		if r.Status == models.StatusApproved {
			st.Approved++
		}
		if r.IsCheckedIn {
			st.CheckedIn++
		}
	}
	return st, nil
}

// team

type team struct{ d *DB }

func (s team) Create(_ context.Context, m *models.TeamMember) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, other := range s.d.team {
		if other.EventID == m.EventID && other.UserID == m.UserID {
			return store.ErrDuplicate
		}
	}
	now := s.d.now()
	m.ID = uuid.New()
	m.CreatedAt, m.UpdatedAt = now, now
	s.d.team[m.ID] = *m
	return nil
}

func (s team) GetByID(_ context.Context, id uuid.UUID) (*models.TeamMember, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	m, ok := s.d.team[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s team) GetByEventAndUser(_ context.Context, eventID, userID uuid.UUID) (*models.TeamMember, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, m := range s.d.team {
		if m.EventID == eventID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s team) SetStatus(_ context.Context, id uuid.UUID, status models.Status, perms *models.Permissions) (*models.TeamMember, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	m, ok := s.d.team[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if m.Status != models.StatusPending && m.Status != status {
		return nil, store.ErrConditionFailed
	}
	m.Status = status
	if perms != nil {
		m.Permissions = *perms
	}
	m.UpdatedAt = s.d.now()
	s.d.team[id] = m
	return &m, nil
}

func (s team) Delete(_ context.Context, eventID, userID uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for id, m := range s.d.team {
		if m.EventID == eventID && m.UserID == userID {
			delete(s.d.team, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s team) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.TeamMemberView, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var list []models.TeamMemberView
	for _, m := range s.d.team {
		if m.EventID != eventID {
			continue
		}
		v := models.TeamMemberView{TeamMember: m}
		if u, ok := s.d.users[m.UserID]; ok {
			v.Name, v.Email = u.Name, u.Email
		}
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (s team) ListPendingInvites(_ context.Context, userID uuid.UUID) ([]models.TeamMember, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var list []models.TeamMember
	for _, m := range s.d.team {
		if m.UserID == userID && m.Status == models.StatusPending && m.IsInvitation() {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// exports

type exports struct{ d *DB }

func (s exports) Create(_ context.Context, e *models.Export) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = s.d.now()
	if e.Status == "" {
		e.Status = models.ExportQueued
	}
	s.d.exports[e.ID] = *e
	return nil
}

func (s exports) GetByID(_ context.Context, id uuid.UUID) (*models.Export, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	e, ok := s.d.exports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s exports) MarkCompleted(_ context.Context, id uuid.UUID, key string, rows int, at time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	e, ok := s.d.exports[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status, e.S3Key, e.RowCount, e.CompletedAt, e.Error = models.ExportCompleted, key, rows, &at, ""
	s.d.exports[id] = e
	return nil
}

func (s exports) MarkFailed(_ context.Context, id uuid.UUID, msg string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	e, ok := s.d.exports[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status, e.Error = models.ExportFailed, msg
	s.d.exports[id] = e
	return nil
}

// connections

type connections struct{ d *DB }

func (s connections) Create(_ context.Context, c *models.Connection) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, other := range s.d.connections {
		if other.Involves(c.FollowerID) && other.Involves(c.FollowedID) {
			return store.ErrDuplicate
		}
	}
	now := s.d.now()
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = now, now
	s.d.connections[c.ID] = *c
	return nil
}

func (s connections) GetByID(_ context.Context, id uuid.UUID) (*models.Connection, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.connections[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s connections) SetStatus(_ context.Context, id uuid.UUID, status models.Status) (*models.Connection, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.connections[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if c.Status != models.StatusPending && c.Status != status {
		return nil, store.ErrConditionFailed
	}
	c.Status = status
	c.UpdatedAt = s.d.now()
	s.d.connections[id] = c
	return &c, nil
}
