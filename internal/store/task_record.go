package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tessellary/casework-api/internal/domain"
)

// TaskRecordStore defines the interface for transcript task persistence.
type TaskRecordStore interface {
	// CreateBatch persists all tasks of one request in a single bulk write.
	// A no-op for an empty slice.
	// Returns validation errors if any task is invalid; in that case no
	// task from the batch is persisted.
	CreateBatch(ctx context.Context, tasks []*domain.TranscriptTask) error

	// GetByID retrieves a transcript task by its task ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TranscriptTask, error)

	// ListByRequest retrieves every transcript task belonging to the given
	// request, ordered by transcript ordinal. Returns an empty slice if the
	// request has no tasks.
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*domain.TranscriptTask, error)

	// RecordResult writes a task's analysis result fields and marks it
	// complete. This is the single mutation a task receives after creation.
	// Returns ErrTaskNotFound if the task does not exist.
	RecordResult(
		ctx context.Context,
		id uuid.UUID,
		contentPost string,
		resultPayload string,
		durationSeconds float64,
		returnedAt time.Time,
	) error
}
