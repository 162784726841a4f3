package models

import (
	"time"

	"github.com/google/uuid"
)

// Export job states.
const (
	ExportQueued    = "queued"
	ExportCompleted = "completed"
	ExportFailed    = "failed"
)

// Export is an attendee CSV export for an event, produced by the worker.
type Export struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	RequestedBy uuid.UUID  `json:"requested_by"`
	Status      string     `json:"status"`
	S3Key       string     `json:"s3_key,omitempty"`
	RowCount    int        `json:"row_count"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
