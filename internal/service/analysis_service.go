package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/store"
	"github.com/tessellary/casework-api/internal/task"
)

// Common construction errors
var (
	ErrNilRequestStore = errors.New("request store cannot be nil")
	ErrNilSource       = errors.New("transcript source cannot be nil")
	ErrNilQueue        = errors.New("task queue cannot be nil")
	ErrNilDispatcher   = errors.New("dispatcher cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
)

// AnalysisService accepts case analysis requests: it looks up the case's
// transcripts, records the request, and enqueues the dispatch work.
type AnalysisService interface {
	// StartAnalysis begins analysis of the given case on behalf of the
	// caller. The returned request reflects the lookup outcome; the
	// actual fan-out happens asynchronously after StartAnalysis returns.
	//
	// Returns ErrCaseLookupFailed when the upstream query fails and
	// ErrNoTranscripts when the case has nothing to analyze. Both
	// outcomes still leave an audit row behind.
	StartAnalysis(ctx context.Context, callerID, caseNumber string) (*domain.AnalysisRequest, error)
}

// analysisServiceImpl implements the AnalysisService interface
type analysisServiceImpl struct {
	requests   store.RequestStore
	source     store.TranscriptSource
	queue      task.TaskQueueWriter
	dispatcher task.CaseDispatcher
	logger     *slog.Logger
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(
	requests store.RequestStore,
	source store.TranscriptSource,
	queue task.TaskQueueWriter,
	dispatcher task.CaseDispatcher,
	logger *slog.Logger,
) (AnalysisService, error) {
	if requests == nil {
		return nil, ErrNilRequestStore
	}
	if source == nil {
		return nil, ErrNilSource
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	if dispatcher == nil {
		return nil, ErrNilDispatcher
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &analysisServiceImpl{
		requests:   requests,
		source:     source,
		queue:      queue,
		dispatcher: dispatcher,
		logger:     logger.With("component", "analysis_service"),
	}, nil
}

// StartAnalysis implements AnalysisService.StartAnalysis
func (s *analysisServiceImpl) StartAnalysis(
	ctx context.Context,
	callerID, caseNumber string,
) (*domain.AnalysisRequest, error) {
	req, err := domain.NewAnalysisRequest(callerID, caseNumber)
	if err != nil {
		return nil, err
	}

	transcripts, lookupErr := s.source.FindByCaseNumber(ctx, caseNumber)
	if lookupErr != nil {
		// The lookup failure is itself part of the audit trail. The
		// request row stays open (not completed) so it can be retried
		// or reconciled later.
		req.QuerySucceeded = false
		if createErr := s.requests.Create(ctx, req); createErr != nil {
			s.logger.Error("failed to record request after lookup failure",
				"case_number", caseNumber,
				"error", createErr)
		}
		s.logger.Error("case transcript lookup failed",
			"request_id", req.ID,
			"case_number", caseNumber,
			"error", lookupErr)
		return req, fmt.Errorf("%w: %v", ErrCaseLookupFailed, lookupErr)
	}

	req.QuerySucceeded = true
	req.TranscriptCount = len(transcripts)

	if len(transcripts) == 0 {
		// Nothing to analyze: the request is terminal immediately.
		req.Completed = true
		if createErr := s.requests.Create(ctx, req); createErr != nil {
			s.logger.Error("failed to record empty-case request",
				"case_number", caseNumber,
				"error", createErr)
			return nil, createErr
		}
		s.logger.Info("case has no transcripts",
			"request_id", req.ID,
			"case_number", caseNumber)
		return req, ErrNoTranscripts
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to record analysis request: %w", err)
	}

	dispatchTask, err := task.NewCaseDispatchTask(req, transcripts, s.dispatcher, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatch task: %w", err)
	}

	if err := s.queue.Enqueue(dispatchTask); err != nil {
		s.logger.Error("failed to enqueue dispatch task",
			"request_id", req.ID,
			"case_number", caseNumber,
			"error", err)
		return nil, err
	}

	s.logger.Info("analysis started",
		"request_id", req.ID,
		"case_number", caseNumber,
		"transcript_count", req.TranscriptCount)
	return req, nil
}
