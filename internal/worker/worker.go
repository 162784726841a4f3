// Package worker runs background jobs pulled from the Redis queue.
package worker

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/metrics"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
	"github.com/eventhub/backend/pkg/queue"
	"github.com/eventhub/backend/pkg/storage"
)

// csvHeader is the first row of every attendee export.
var csvHeader = []string{"registration_id", "user_id", "name", "email", "status", "registered_at", "checked_in", "checked_in_at"}

// JobSource is the queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) (bool, error)
}

// Uploader stores rendered exports.
type Uploader interface {
	UploadExport(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// Recorder counts job outcomes.
type Recorder interface {
	ExportJob(outcome string)
}

// ExportProcessor renders attendee exports to CSV and uploads them.
type ExportProcessor struct {
	users       store.Users
	regs        store.Registrations
	exports     store.Exports
	uploader    Uploader
	queue       JobSource
	recorder    Recorder
	logger      *zap.Logger
	pollTimeout time.Duration
	backoff     time.Duration
	now         func() time.Time
}

// NewExportProcessor creates an export processor.
func NewExportProcessor(st store.Store, uploader Uploader, q JobSource, pollTimeout time.Duration, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &ExportProcessor{
		users:       st.Users(),
		regs:        st.Registrations(),
		exports:     st.Exports(),
		uploader:    uploader,
		queue:       q,
		logger:      logger,
		pollTimeout: pollTimeout,
		backoff:     queue.RetryBackoff,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetRecorder attaches a metrics recorder.
func (p *ExportProcessor) SetRecorder(r Recorder) { p.recorder = r }

func (p *ExportProcessor) record(outcome string) {
	if p.recorder != nil {
		p.recorder.ExportJob(outcome)
	}
}

// Process executes one export job.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := decode(job)
	if err != nil {
		return err
	}
	exp, err := p.exports.GetByID(ctx, payload.ExportID)
	if err != nil {
		return fmt.Errorf("load export %s: %w", payload.ExportID, err)
	}
	if exp.Status == models.ExportCompleted {
		p.logger.Info("export already completed", zap.String("export_id", exp.ID.String()))
		return nil
	}

	regs, err := p.regs.ListByEvent(ctx, exp.EventID)
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}
	var buf bytes.Buffer
	if err := p.render(ctx, &buf, regs); err != nil {
		return err
	}

	key := storage.ExportKey(exp.EventID.String(), exp.ID.String())
	size := int64(buf.Len())
	if err := p.uploader.UploadExport(ctx, key, &buf, size); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.exports.MarkCompleted(ctx, exp.ID, key, len(regs), p.now()); err != nil {
		p.logger.Error("mark export completed failed", zap.Error(err), zap.String("export_id", exp.ID.String()))
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("export completed",
		zap.String("export_id", exp.ID.String()),
		zap.String("s3_key", key),
		zap.Int("rows", len(regs)))
	return nil
}

func decode(job *queue.Job) (queue.ExportPayload, error) {
	var payload queue.ExportPayload
	if job.Type != queue.JobTypeAttendeeExport {
		return payload, fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}

// render writes one CSV row per registration. Users are looked up once each;
// a user row that has disappeared leaves name and email blank.
func (p *ExportProcessor) render(ctx context.Context, w io.Writer, regs []models.Registration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	seen := make(map[uuid.UUID]*models.User)
	for _, r := range regs {
		u, ok := seen[r.UserID]
		if !ok {
			var err error
			u, err = p.users.GetByID(ctx, r.UserID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("load user %s: %w", r.UserID, err)
			}
			seen[r.UserID] = u
		}
		var name, email, checkedInAt string
		if u != nil {
			name, email = u.Name, u.Email
		}
		if r.CheckedInAt != nil {
			checkedInAt = r.CheckedInAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			r.ID.String(),
			r.UserID.String(),
			name,
			email,
			string(r.Status),
			r.RegisteredAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(r.IsCheckedIn),
			checkedInAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Run starts the worker loop: dequeue, process, retry on error. Jobs that
// exhaust their attempts are dead-lettered and their export marked failed.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			dead, reErr := p.queue.Retry(ctx, job, err)
			if reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			if dead {
				p.record(metrics.OutcomeDead)
				p.fail(ctx, job, err)
				continue
			}
			p.record(metrics.OutcomeRetried)
			p.sleep(ctx)
			continue
		}
		p.record(metrics.OutcomeCompleted)
	}
}

func (p *ExportProcessor) fail(ctx context.Context, job *queue.Job, cause error) {
	payload, err := decode(job)
	if err != nil {
		return
	}
	if err := p.exports.MarkFailed(ctx, payload.ExportID, cause.Error()); err != nil {
		p.logger.Error("mark export failed", zap.Error(err), zap.String("export_id", payload.ExportID.String()))
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	if p.backoff <= 0 {
		return
	}
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
