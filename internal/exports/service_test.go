package exports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store/memstore"
	"github.com/eventhub/backend/pkg/queue"
)

type fakeQueue struct {
	jobs []queue.ExportPayload
	err  error
}

func (q *fakeQueue) EnqueueExport(_ context.Context, p queue.ExportPayload) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, p)
	return "job-1", nil
}

type fakeLinker struct{}

func (fakeLinker) ExportDownloadURL(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (fakeLinker) PresignExpire() time.Duration { return 10 * time.Minute }

type fixture struct {
	db    *memstore.DB
	q     *fakeQueue
	svc   *Service
	event *models.Event
	owner models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	owner := models.Actor{ID: uuid.New(), Category: models.CategoryProfessional}
	e := &models.Event{OwnerID: owner.ID, Title: "Summit", StartsAt: time.Now(), EndsAt: time.Now().Add(time.Hour), Timezone: "UTC"}
	require.NoError(t, db.Events().Create(context.Background(), e))
	q := &fakeQueue{}
	return &fixture{db: db, q: q, svc: NewService(db, q, fakeLinker{}, nil), event: e, owner: owner}
}

func TestRequestQueuesJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exp, err := f.svc.Request(ctx, f.event.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, models.ExportQueued, exp.Status)
	assert.Equal(t, f.owner.ID, exp.RequestedBy)
	require.Len(t, f.q.jobs, 1)
	assert.Equal(t, queue.ExportPayload{ExportID: exp.ID, EventID: f.event.ID}, f.q.jobs[0])
}

func TestRequestPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, f.event.ID, models.Actor{ID: uuid.New()})
	assert.True(t, apperr.Has(err, apperr.Unauthorized))

	manager := models.Actor{ID: uuid.New()}
	m := &models.TeamMember{EventID: f.event.ID, UserID: manager.ID, Role: models.RoleOrganizer,
		Status: models.StatusApproved, Permissions: models.Permissions{CanManageTeam: true}}
	require.NoError(t, f.db.Team().Create(ctx, m))
	_, err = f.svc.Request(ctx, f.event.ID, manager)
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, uuid.New(), f.owner)
	assert.True(t, apperr.Has(err, apperr.NotFound))
	assert.Len(t, f.q.jobs, 1)
}

func TestRequestMarksFailedWhenQueueDown(t *testing.T) {
	f := newFixture(t)
	f.q.err = errors.New("redis down")
	ctx := context.Background()

	_, err := f.svc.Request(ctx, f.event.ID, f.owner)
	assert.True(t, apperr.Has(err, apperr.BackendUnavailable))
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	exp, err := f.svc.Request(ctx, f.event.ID, f.owner)
	require.NoError(t, err)

	view, err := f.svc.Get(ctx, exp.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, models.ExportQueued, view.Status)
	assert.Empty(t, view.DownloadURL)

	require.NoError(t, f.db.Exports().MarkCompleted(ctx, exp.ID, "exports/a/b.csv", 3, now))
	view, err = f.svc.Get(ctx, exp.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, models.ExportCompleted, view.Status)
	assert.Equal(t, 3, view.RowCount)
	assert.Equal(t, "https://signed.example/exports/a/b.csv", view.DownloadURL)
	require.NotNil(t, view.ExpiresAt)
	assert.Equal(t, now.Add(10*time.Minute), *view.ExpiresAt)

	_, err = f.svc.Get(ctx, exp.ID, models.Actor{ID: uuid.New()})
	assert.True(t, apperr.Has(err, apperr.Unauthorized))

	_, err = f.svc.Get(ctx, uuid.New(), f.owner)
	assert.True(t, apperr.Has(err, apperr.NotFound))
}
