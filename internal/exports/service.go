// Package exports lets event managers request attendee CSV exports. The
// rendering happens in the worker; this package queues jobs and hands out
// download links once they complete.
package exports

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
	"github.com/eventhub/backend/pkg/queue"
)

// Enqueuer queues export jobs.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) (string, error)
}

// Linker signs download URLs for uploaded exports.
type Linker interface {
	ExportDownloadURL(ctx context.Context, key string) (string, error)
	PresignExpire() time.Duration
}

// View is an export with its download link when completed.
type View struct {
	models.Export
	DownloadURL string     `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Service implements export requests.
type Service struct {
	events  store.Events
	team    store.Team
	exports store.Exports
	jobs    Enqueuer
	links   Linker
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates an exports service.
func NewService(st store.Store, jobs Enqueuer, links Linker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events:  st.Events(),
		team:    st.Team(),
		exports: st.Exports(),
		jobs:    jobs,
		links:   links,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Request records a queued export for the event and enqueues the job.
func (s *Service) Request(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Export, error) {
	if err := s.requireManager(ctx, eventID, actor); err != nil {
		return nil, err
	}
	exp := &models.Export{EventID: eventID, RequestedBy: actor.ID, Status: models.ExportQueued}
	if err := s.exports.Create(ctx, exp); err != nil {
		s.logger.Error("create export failed", zap.Error(err), zap.String("event_id", eventID.String()))
		return nil, apperr.Backend("create export", err)
	}
	jobID, err := s.jobs.EnqueueExport(ctx, queue.ExportPayload{ExportID: exp.ID, EventID: eventID})
	if err != nil {
		s.logger.Error("enqueue export failed", zap.Error(err), zap.String("export_id", exp.ID.String()))
		if markErr := s.exports.MarkFailed(ctx, exp.ID, "could not queue export"); markErr != nil {
			s.logger.Error("mark export failed", zap.Error(markErr), zap.String("export_id", exp.ID.String()))
		}
		return nil, apperr.Backend("queue export", err)
	}
	s.logger.Info("export queued",
		zap.String("export_id", exp.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("job_id", jobID))
	return exp, nil
}

// Get returns an export to a manager of its event, signing a download URL
// when the export has completed.
func (s *Service) Get(ctx context.Context, exportID uuid.UUID, actor models.Actor) (*View, error) {
	exp, err := s.exports.GetByID(ctx, exportID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "export not found")
	}
	if err != nil {
		return nil, apperr.Backend("load export", err)
	}
	if err := s.requireManager(ctx, exp.EventID, actor); err != nil {
		return nil, err
	}
	view := &View{Export: *exp}
	if exp.Status != models.ExportCompleted || exp.S3Key == "" {
		return view, nil
	}
	url, err := s.links.ExportDownloadURL(ctx, exp.S3Key)
	if err != nil {
		s.logger.Error("sign export url failed", zap.Error(err), zap.String("export_id", exportID.String()))
		return nil, apperr.Backend("sign download url", err)
	}
	expires := s.now().Add(s.links.PresignExpire())
	view.DownloadURL = url
	view.ExpiresAt = &expires
	return view, nil
}

func (s *Service) requireManager(ctx context.Context, eventID uuid.UUID, actor models.Actor) error {
	e, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.E(apperr.NotFound, "event not found")
	}
	if err != nil {
		return apperr.Backend("load event", err)
	}
	m, err := store.MembershipOf(ctx, s.team, eventID, actor.ID)
	if err != nil {
		return apperr.Backend("load membership", err)
	}
	if !access.CanManage(e, actor.ID, m) {
		return apperr.E(apperr.Unauthorized, "you don't have permission to export this event's attendees")
	}
	return nil
}
