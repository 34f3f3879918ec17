package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/gate"
	"github.com/tessellary/casework-api/internal/merge"
	"github.com/tessellary/casework-api/internal/store"
	"github.com/tessellary/casework-api/internal/task"
)

// Common construction errors
var (
	ErrNilTaskStore = errors.New("task record store cannot be nil")
	ErrNilGate      = errors.New("completion gate cannot be nil")
	ErrNilPusher    = errors.New("pusher cannot be nil")
)

// ResultPusher delivers a completed request's merged result downstream.
// Declared here so the service layer depends on behavior, not on the
// push package's concrete type.
type ResultPusher interface {
	Push(ctx context.Context, req *domain.AnalysisRequest, merged map[string]any) error
}

// ResultService ingests inference result callbacks. AcceptResult is the
// fast path called from the HTTP handler; the heavy lifting runs on the
// worker pool via HandleResult.
type ResultService interface {
	// AcceptResult enqueues a result callback for asynchronous
	// processing. Returns an error if the task ID is invalid or the
	// queue rejects the work.
	AcceptResult(
		ctx context.Context,
		taskID uuid.UUID,
		contentPost string,
		resultPayload string,
		durationSeconds float64,
	) error

	// HandleResult records one task's result, consults the completion
	// gate, and, when this callback is the request's last, merges all
	// results and pushes them downstream. Safe to call from multiple
	// workers; the gate guarantees at most one caller observes
	// completion.
	HandleResult(
		ctx context.Context,
		taskID uuid.UUID,
		contentPost string,
		resultPayload string,
		durationSeconds float64,
	) error
}

// resultServiceImpl implements the ResultService interface
type resultServiceImpl struct {
	tasks    store.TaskRecordStore
	requests store.RequestStore
	gate     gate.CompletionGate
	pusher   ResultPusher
	queue    task.TaskQueueWriter
	logger   *slog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(
	tasks store.TaskRecordStore,
	requests store.RequestStore,
	completionGate gate.CompletionGate,
	pusher ResultPusher,
	queue task.TaskQueueWriter,
	logger *slog.Logger,
) (ResultService, error) {
	if tasks == nil {
		return nil, ErrNilTaskStore
	}
	if requests == nil {
		return nil, ErrNilRequestStore
	}
	if completionGate == nil {
		return nil, ErrNilGate
	}
	if pusher == nil {
		return nil, ErrNilPusher
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &resultServiceImpl{
		tasks:    tasks,
		requests: requests,
		gate:     completionGate,
		pusher:   pusher,
		queue:    queue,
		logger:   logger.With("component", "result_service"),
	}, nil
}

// Ensure the service satisfies the worker-side ingest contract.
var _ task.ResultIngestor = (ResultService)(nil)

// AcceptResult implements ResultService.AcceptResult
func (s *resultServiceImpl) AcceptResult(
	ctx context.Context,
	taskID uuid.UUID,
	contentPost string,
	resultPayload string,
	durationSeconds float64,
) error {
	ingestTask, err := task.NewResultIngestTask(
		taskID, contentPost, resultPayload, durationSeconds, s, s.logger)
	if err != nil {
		return err
	}

	if err := s.queue.Enqueue(ingestTask); err != nil {
		s.logger.Error("failed to enqueue result ingest task",
			"task_id", taskID,
			"error", err)
		return err
	}

	return nil
}

// HandleResult implements ResultService.HandleResult
func (s *resultServiceImpl) HandleResult(
	ctx context.Context,
	taskID uuid.UUID,
	contentPost string,
	resultPayload string,
	durationSeconds float64,
) error {
	taskRec, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			s.logger.Warn("result callback for unknown task", "task_id", taskID)
			return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
		}
		return fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	// Task records are written once. A duplicate callback for a task
	// that already reported must not reach the gate: after the winning
	// arrival claims the counter, a stray increment would start a fresh
	// count and could trigger a second aggregation.
	if taskRec.Completed {
		s.logger.Warn("duplicate result callback for completed task",
			"task_id", taskID,
			"request_id", taskRec.RequestID)
		return nil
	}

	returnedAt := time.Now().UTC()
	if err := s.tasks.RecordResult(ctx, taskID, contentPost, resultPayload, durationSeconds, returnedAt); err != nil {
		return fmt.Errorf("failed to record result for task %s: %w", taskID, err)
	}

	arrival, err := s.gate.Arrive(ctx, taskRec.RequestID.String())
	if err != nil {
		return fmt.Errorf("completion gate failed for request %s: %w", taskRec.RequestID, err)
	}

	s.logger.Info("result recorded",
		"task_id", taskID,
		"request_id", taskRec.RequestID,
		"received", arrival.Count,
		"expected", arrival.Expected)

	if !arrival.Complete {
		return nil
	}

	return s.finalize(ctx, taskRec.RequestID)
}

// finalize merges every task's result for the request and pushes the
// merged payload downstream. Only the gate winner ever gets here, so
// there is no second delivery to guard against.
func (s *resultServiceImpl) finalize(ctx context.Context, requestID uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to load request %s for finalize: %w", requestID, err)
	}

	records, err := s.tasks.ListByRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to list tasks for request %s: %w", requestID, err)
	}

	merged := merge.Merge(records)

	s.logger.Info("request complete, pushing merged result",
		"request_id", requestID,
		"case_number", req.CaseNumber,
		"task_count", len(records))

	if err := s.pusher.Push(ctx, req, merged); err != nil {
		// The pusher has already persisted the failed outcome; the
		// request is terminal either way.
		s.logger.Error("merged result push failed",
			"request_id", requestID,
			"case_number", req.CaseNumber,
			"error", err)
	}

	return nil
}
