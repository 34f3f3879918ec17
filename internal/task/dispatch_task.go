package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tessellary/casework-api/internal/domain"
)

// Common errors
var (
	ErrNilDispatcher  = errors.New("dispatcher cannot be nil")
	ErrNilRequest     = errors.New("analysis request cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
	ErrNoTranscripts  = errors.New("transcript list cannot be empty")
	ErrNilIngestor    = errors.New("result ingestor cannot be nil")
	ErrEmptyResultRef = errors.New("result task ID cannot be empty")
)

// CaseDispatcher defines the interface for fanning a request's
// transcripts out to the inference service. Declared here so the task
// package does not depend on the dispatch package directly.
type CaseDispatcher interface {
	Dispatch(ctx context.Context, req *domain.AnalysisRequest, transcripts []domain.Transcript) error
}

// caseDispatchPayload represents the serialized data stored in the task
type caseDispatchPayload struct {
	RequestID  uuid.UUID `json:"request_id"`
	CaseNumber string    `json:"case_number"`
	TaskCount  int       `json:"task_count"`
}

// CaseDispatchTask implements the Task interface for fanning one
// analysis request's transcripts out to the inference service.
type CaseDispatchTask struct {
	id          uuid.UUID
	req         *domain.AnalysisRequest
	transcripts []domain.Transcript
	dispatcher  CaseDispatcher
	logger      *slog.Logger
	status      TaskStatus
}

// NewCaseDispatchTask creates a dispatch task for one analysis request.
func NewCaseDispatchTask(
	req *domain.AnalysisRequest,
	transcripts []domain.Transcript,
	dispatcher CaseDispatcher,
	logger *slog.Logger,
) (*CaseDispatchTask, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if len(transcripts) == 0 {
		return nil, ErrNoTranscripts
	}
	if dispatcher == nil {
		return nil, ErrNilDispatcher
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &CaseDispatchTask{
		id:          uuid.New(),
		req:         req,
		transcripts: transcripts,
		dispatcher:  dispatcher,
		logger:      logger.With("task_type", TaskTypeCaseDispatch, "request_id", req.ID),
		status:      TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *CaseDispatchTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *CaseDispatchTask) Type() string {
	return TaskTypeCaseDispatch
}

// Payload returns the task data as a byte slice
func (t *CaseDispatchTask) Payload() []byte {
	payload := caseDispatchPayload{
		RequestID:  t.req.ID,
		CaseNumber: t.req.CaseNumber,
		TaskCount:  len(t.transcripts),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *CaseDispatchTask) Status() TaskStatus {
	return t.status
}

// Execute fans the request's transcripts out through the dispatcher.
func (t *CaseDispatchTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting case dispatch",
		"case_number", t.req.CaseNumber,
		"transcript_count", len(t.transcripts))

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.dispatcher.Dispatch(ctx, t.req, t.transcripts); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("case dispatch failed", "error", err)
		return fmt.Errorf("failed to dispatch case %s: %w", t.req.CaseNumber, err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("case dispatch completed")
	return nil
}
