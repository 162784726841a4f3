package checkin

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store/memstore"
)

var scanTime = time.Date(2026, 6, 12, 18, 30, 0, 0, time.UTC)

type published struct {
	eventID uuid.UUID
	event   string
	payload interface{}
}

type recordingFeed struct {
	mu   sync.Mutex
	msgs []published
}

func (f *recordingFeed) Publish(_ context.Context, eventID uuid.UUID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{eventID, event, payload})
	return nil
}

type fixture struct {
	db    *memstore.DB
	svc   *Service
	feed  *recordingFeed
	event *models.Event
	owner models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	feed := &recordingFeed{}
	f := &fixture{db: db, feed: feed, svc: NewService(db, feed, nil)}
	f.svc.now = func() time.Time { return scanTime }
	f.owner = models.Actor{ID: uuid.New(), Category: models.CategoryProfessional}
	f.event = f.newEvent(t, f.owner)
	return f
}

func (f *fixture) newEvent(t *testing.T, owner models.Actor) *models.Event {
	t.Helper()
	e := &models.Event{OwnerID: owner.ID, Title: "Demo Day", StartsAt: scanTime, EndsAt: scanTime.Add(time.Hour), Timezone: "UTC"}
	require.NoError(t, f.db.Events().Create(context.Background(), e))
	return e
}

func (f *fixture) register(t *testing.T, eventID uuid.UUID, ticket string) *models.Registration {
	t.Helper()
	u := &models.User{ID: uuid.New(), Name: "Attendee " + ticket, Email: ticket + "@example.com", Category: models.CategoryStudent}
	require.NoError(t, f.db.Users().Upsert(context.Background(), u))
	r := &models.Registration{EventID: eventID, UserID: u.ID, Status: models.StatusPending, TicketHash: ticket}
	require.NoError(t, f.db.Registrations().Create(context.Background(), r))
	return r
}

func (f *fixture) member(t *testing.T, eventID uuid.UUID, status models.Status, perms models.Permissions) models.Actor {
	t.Helper()
	a := models.Actor{ID: uuid.New(), Category: models.CategoryStudent}
	m := &models.TeamMember{EventID: eventID, UserID: a.ID, Role: models.RoleVolunteer, Status: status, Permissions: perms}
	require.NoError(t, f.db.Team().Create(context.Background(), m))
	return a
}

func TestCheckInByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, f.event.ID, "ticket-1")

	res, err := f.svc.CheckIn(ctx, "ticket-1", f.owner)
	require.NoError(t, err)
	assert.True(t, res.Registration.IsCheckedIn)
	require.NotNil(t, res.Registration.CheckedInAt)
	assert.True(t, scanTime.Equal(*res.Registration.CheckedInAt))
	require.NotNil(t, res.Registration.CheckedInBy)
	assert.Equal(t, f.owner.ID, *res.Registration.CheckedInBy)
	assert.Equal(t, "Demo Day", res.EventTitle)
	require.NotNil(t, res.Attendee)
	assert.Equal(t, reg.UserID, res.Attendee.ID)
	assert.Equal(t, models.StatusPending, res.Registration.Status, "status is not consulted or changed")

	_, err = f.svc.CheckIn(ctx, "ticket-1", f.owner)
	assert.True(t, apperr.Has(err, apperr.AlreadyCheckedIn))
}

func TestCheckInInvalidTicket(t *testing.T) {
	f := newFixture(t)
	f.register(t, f.event.ID, "ticket-1")

	for _, ticket := range []string{"", "ticket-2", "TICKET-1"} {
		_, err := f.svc.CheckIn(context.Background(), ticket, f.owner)
		assert.True(t, apperr.Has(err, apperr.InvalidTicket), "ticket %q", ticket)
	}
}

func TestCheckInScannerPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, f.event.ID, "t1")

	pendingScanner := f.member(t, f.event.ID, models.StatusPending, models.Permissions{CanScanQR: true})
	manager := f.member(t, f.event.ID, models.StatusApproved, models.Permissions{CanManageTeam: true})
	stranger := models.Actor{ID: uuid.New()}

	otherEvent := f.newEvent(t, models.Actor{ID: uuid.New()})
	foreignScanner := f.member(t, otherEvent.ID, models.StatusApproved, models.Permissions{CanScanQR: true})

	for name, actor := range map[string]models.Actor{
		"pending scanner":  pendingScanner,
		"manager":          manager,
		"stranger":         stranger,
		"other event team": foreignScanner,
	} {
		_, err := f.svc.CheckIn(ctx, "t1", actor)
		assert.True(t, apperr.Has(err, apperr.Unauthorized), name)
	}

	scanner := f.member(t, f.event.ID, models.StatusApproved, models.Permissions{CanScanQR: true})
	res, err := f.svc.CheckIn(ctx, "t1", scanner)
	require.NoError(t, err)
	assert.Equal(t, scanner.ID, *res.Registration.CheckedInBy)
}

func TestAlreadyCheckedInBeforeAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, f.event.ID, "t1")
	_, err := f.svc.CheckIn(ctx, "t1", f.owner)
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, "t1", models.Actor{ID: uuid.New()})
	assert.True(t, apperr.Has(err, apperr.AlreadyCheckedIn))
}

func TestConcurrentCheckInSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, f.event.ID, "race")
	scanner := f.member(t, f.event.ID, models.StatusApproved, models.Permissions{CanScanQR: true})

	const scans = 25
	var wg sync.WaitGroup
	var ok, already int32
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := f.owner
			if i%2 == 0 {
				actor = scanner
			}
			_, err := f.svc.CheckIn(ctx, "race", actor)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case apperr.Has(err, apperr.AlreadyCheckedIn):
				atomic.AddInt32(&already, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(scans-1), already)
	stored, err := f.db.Registrations().GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCheckedIn)
}

func TestCheckInPublishesToFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, f.event.ID, "t1")
	f.register(t, f.event.ID, "t2")

	_, err := f.svc.CheckIn(ctx, "t1", f.owner)
	require.NoError(t, err)

	require.Len(t, f.feed.msgs, 2)
	assert.Equal(t, EventCheckIn, f.feed.msgs[0].event)
	assert.Equal(t, f.event.ID, f.feed.msgs[0].eventID)
	notice := f.feed.msgs[0].payload.(Notice)
	assert.Equal(t, reg.ID, notice.RegistrationID)
	assert.Equal(t, "Attendee t1", notice.Name)

	assert.Equal(t, EventStats, f.feed.msgs[1].event)
	stats := f.feed.msgs[1].payload.(models.CheckInStats)
	assert.Equal(t, 2, stats.Registered)
	assert.Equal(t, 1, stats.CheckedIn)
}

func TestStatsAndFeedAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, f.event.ID, "t1")
	manager := f.member(t, f.event.ID, models.StatusApproved, models.Permissions{CanManageTeam: true})
	attendee := models.Actor{ID: uuid.New()}

	stats, err := f.svc.Stats(ctx, f.event.ID, manager)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Registered)
	assert.Equal(t, 0, stats.CheckedIn)

	_, err = f.svc.Stats(ctx, f.event.ID, attendee)
	assert.True(t, apperr.Has(err, apperr.Unauthorized))

	assert.NoError(t, f.svc.AuthorizeFeed(ctx, f.event.ID, f.owner))
	assert.True(t, apperr.Has(f.svc.AuthorizeFeed(ctx, uuid.New(), f.owner), apperr.NotFound))
}
