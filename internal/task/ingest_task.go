package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ResultIngestor defines the interface for processing one inference
// result callback. Declared here so the task package does not depend on
// the service package directly.
type ResultIngestor interface {
	HandleResult(
		ctx context.Context,
		taskID uuid.UUID,
		contentPost string,
		resultPayload string,
		durationSeconds float64,
	) error
}

// resultIngestPayload represents the serialized data stored in the task
type resultIngestPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// ResultIngestTask implements the Task interface for processing one
// inference result callback: recording the result, checking request
// completion, and triggering the merge-and-push when the request is done.
type ResultIngestTask struct {
	id              uuid.UUID
	taskID          uuid.UUID
	contentPost     string
	resultPayload   string
	durationSeconds float64
	ingestor        ResultIngestor
	logger          *slog.Logger
	status          TaskStatus
}

// NewResultIngestTask creates an ingest task for one result callback.
func NewResultIngestTask(
	taskID uuid.UUID,
	contentPost string,
	resultPayload string,
	durationSeconds float64,
	ingestor ResultIngestor,
	logger *slog.Logger,
) (*ResultIngestTask, error) {
	if taskID == uuid.Nil {
		return nil, ErrEmptyResultRef
	}
	if ingestor == nil {
		return nil, ErrNilIngestor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &ResultIngestTask{
		id:              uuid.New(),
		taskID:          taskID,
		contentPost:     contentPost,
		resultPayload:   resultPayload,
		durationSeconds: durationSeconds,
		ingestor:        ingestor,
		logger:          logger.With("task_type", TaskTypeResultIngest, "result_task_id", taskID),
		status:          TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *ResultIngestTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ResultIngestTask) Type() string {
	return TaskTypeResultIngest
}

// Payload returns the task data as a byte slice
func (t *ResultIngestTask) Payload() []byte {
	payload := resultIngestPayload{TaskID: t.taskID}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *ResultIngestTask) Status() TaskStatus {
	return t.status
}

// Execute hands the callback data to the ingestor.
func (t *ResultIngestTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting result ingest")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	err := t.ingestor.HandleResult(ctx, t.taskID, t.contentPost, t.resultPayload, t.durationSeconds)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("result ingest failed", "error", err)
		return fmt.Errorf("failed to ingest result for task %s: %w", t.taskID, err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("result ingest completed")
	return nil
}
