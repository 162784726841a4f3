package registrations

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

type fixture struct {
	db    *memstore.DB
	svc   *Service
	event *models.Event
	owner models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	owner := models.Actor{ID: uuid.New(), Category: models.CategoryProfessional}
	e := &models.Event{OwnerID: owner.ID, Title: "Meetup", StartsAt: time.Now(), EndsAt: time.Now().Add(time.Hour), Timezone: "UTC"}
	require.NoError(t, db.Events().Create(context.Background(), e))
	return &fixture{db: db, svc: NewService(db, nil), event: e, owner: owner}
}

func (f *fixture) addMember(t *testing.T, status models.Status, perms models.Permissions) models.Actor {
	t.Helper()
	a := models.Actor{ID: uuid.New(), Category: models.CategoryStudent}
	m := &models.TeamMember{EventID: f.event.ID, UserID: a.ID, Role: models.RoleVolunteer, Status: status, Permissions: perms}
	require.NoError(t, f.db.Team().Create(context.Background(), m))
	return a
}

func attendee() models.Actor {
	return models.Actor{ID: uuid.New(), Category: models.CategoryStudent}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := attendee()

	reg, err := f.svc.Register(ctx, f.event.ID, a)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reg.Status)
	assert.False(t, reg.IsCheckedIn)
	assert.Len(t, reg.TicketHash, 43)

	_, err = f.svc.Register(ctx, f.event.ID, a)
	assert.True(t, apperr.Has(err, apperr.Conflict))

	other, err := f.svc.Register(ctx, f.event.ID, attendee())
	require.NoError(t, err)
	assert.NotEqual(t, reg.TicketHash, other.TicketHash)

	_, err = f.svc.Register(ctx, uuid.New(), a)
	assert.True(t, apperr.Has(err, apperr.NotFound))
}

func TestConcurrentRegisterCreatesOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := attendee()

	const workers = 32
	var wg sync.WaitGroup
	var ok, conflicts int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(ctx, f.event.ID, a)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case apperr.Has(err, apperr.Conflict):
				atomic.AddInt32(&conflicts, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(workers-1), conflicts)

	regs, err := f.db.Registrations().ListByEvent(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestRegisterRetriesTicketCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tickets := []string{"taken", "taken", "fresh"}
	f.svc.ticket = func() (string, error) {
		next := tickets[0]
		tickets = tickets[1:]
		return next, nil
	}
	first, err := f.svc.Register(ctx, f.event.ID, attendee())
	require.NoError(t, err)
	assert.Equal(t, "taken", first.TicketHash)

	second, err := f.svc.Register(ctx, f.event.ID, attendee())
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.TicketHash)
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, f.event.ID, attendee())
	require.NoError(t, err)

	manager := f.addMember(t, models.StatusApproved, models.Permissions{CanManageTeam: true})
	pendingManager := f.addMember(t, models.StatusPending, models.Permissions{CanManageTeam: true})
	scanner := f.addMember(t, models.StatusApproved, models.Permissions{CanScanQR: true})

	_, err = f.svc.Review(ctx, reg.ID, models.StatusApproved, attendee())
	assert.True(t, apperr.Has(err, apperr.Unauthorized))
	_, err = f.svc.Review(ctx, reg.ID, models.StatusApproved, pendingManager)
	assert.True(t, apperr.Has(err, apperr.Unauthorized))
	_, err = f.svc.Review(ctx, reg.ID, models.StatusApproved, scanner)
	assert.True(t, apperr.Has(err, apperr.Unauthorized))

	_, err = f.svc.Review(ctx, reg.ID, models.StatusPending, manager)
	assert.True(t, apperr.Has(err, apperr.Invalid))
	_, err = f.svc.Review(ctx, uuid.New(), models.StatusApproved, manager)
	assert.True(t, apperr.Has(err, apperr.NotFound))

	updated, err := f.svc.Review(ctx, reg.ID, models.StatusApproved, manager)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)

	updated, err = f.svc.Review(ctx, reg.ID, models.StatusApproved, f.owner)
	require.NoError(t, err, "repeating the same decision is accepted")
	assert.Equal(t, models.StatusApproved, updated.Status)

	_, err = f.svc.Review(ctx, reg.ID, models.StatusRejected, f.owner)
	assert.True(t, apperr.Has(err, apperr.Conflict))
}

func TestReviewLeavesCheckInAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, f.event.ID, attendee())
	require.NoError(t, err)
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	_, err = f.db.Registrations().MarkCheckedIn(ctx, reg.ID, at, f.owner.ID)
	require.NoError(t, err)

	updated, err := f.svc.Review(ctx, reg.ID, models.StatusRejected, f.owner)
	require.NoError(t, err)
	assert.True(t, updated.IsCheckedIn)
	require.NotNil(t, updated.CheckedInAt)
	assert.True(t, at.Equal(*updated.CheckedInAt))
}

func TestListsAndTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := attendee()
	reg, err := f.svc.Register(ctx, f.event.ID, a)
	require.NoError(t, err)

	_, err = f.svc.ListForEvent(ctx, f.event.ID, a)
	assert.True(t, apperr.Has(err, apperr.Unauthorized))

	list, err := f.svc.ListForEvent(ctx, f.event.ID, f.owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].TicketHash)

	agenda, err := f.svc.ListMine(ctx, a)
	require.NoError(t, err)
	require.Len(t, agenda, 1)
	assert.Equal(t, f.event.ID, agenda[0].Event.ID)

	own, err := f.svc.Ticket(ctx, f.event.ID, a)
	require.NoError(t, err)
	assert.Equal(t, reg.TicketHash, own.TicketHash)

	_, err = f.svc.Ticket(ctx, f.event.ID, attendee())
	assert.True(t, apperr.Has(err, apperr.NotFound))
}
