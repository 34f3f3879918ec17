// Package dispatch fans a request's transcripts out to the inference
// service as independent analysis tasks.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/identity"
	"github.com/tessellary/casework-api/internal/inference"
	"github.com/tessellary/casework-api/internal/store"
)

// DefaultMaxInFlight caps concurrent inference submissions across the
// whole process.
const DefaultMaxInFlight = 100

// Common errors
var (
	ErrNilTaskStore = errors.New("task record store cannot be nil")
	ErrNilClient    = errors.New("inference client cannot be nil")
	ErrNilParser    = errors.New("identity parser cannot be nil")
	ErrNilSemaphore = errors.New("submission semaphore cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// Dispatcher converts transcripts into persisted tasks and submits them
// to the inference service. The semaphore is shared by every dispatcher
// user in the process, so fan-out pressure on the inference service is
// bounded globally, not per request.
type Dispatcher struct {
	tasks  store.TaskRecordStore
	client inference.Client
	parser identity.Parser
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. The semaphore must be the
// process-wide submission limiter owned by the composition root.
func NewDispatcher(
	tasks store.TaskRecordStore,
	client inference.Client,
	parser identity.Parser,
	sem *semaphore.Weighted,
	logger *slog.Logger,
) (*Dispatcher, error) {
	if tasks == nil {
		return nil, ErrNilTaskStore
	}
	if client == nil {
		return nil, ErrNilClient
	}
	if parser == nil {
		return nil, ErrNilParser
	}
	if sem == nil {
		return nil, ErrNilSemaphore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &Dispatcher{
		tasks:  tasks,
		client: client,
		parser: parser,
		sem:    sem,
		logger: logger.With("component", "dispatcher"),
	}, nil
}

// Dispatch derives one task per transcript, persists all of them in a
// single bulk write, and submits every payload to the inference service
// concurrently under the shared limiter. A no-op for an empty transcript
// list.
//
// Submission failures are logged and isolated: a task whose submission
// failed simply never receives a callback, and its request stalls below
// the expected total until reconciled out of band. Dispatch returns an
// error only when the batch itself could not be built or persisted.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	req *domain.AnalysisRequest,
	transcripts []domain.Transcript,
) error {
	if len(transcripts) == 0 {
		return nil
	}

	tasks := make([]*domain.TranscriptTask, 0, len(transcripts))
	subs := make([]inference.Submission, 0, len(transcripts))
	for i, tr := range transcripts {
		task, err := domain.NewTranscriptTask(req, i+1, tr)
		if err != nil {
			return fmt.Errorf("failed to build task %d for request %s: %w", i+1, req.ID, err)
		}

		if attrs, ok := d.parser.Parse(tr.IDNumber); ok {
			task.Gender = &attrs.Gender
			task.Age = &attrs.Age
			task.BirthDate = &attrs.BirthDate
			task.Registration = &attrs.Registration
		}

		tasks = append(tasks, task)
		subs = append(subs, inference.Submission{
			TaskID:     task.ID.String(),
			Transcript: tr.Content,
			CaseNumber: req.CaseNumber,
			Name:       tr.IntervieweeName,
		})
	}

	if err := d.tasks.CreateBatch(ctx, tasks); err != nil {
		return fmt.Errorf("failed to persist task batch for request %s: %w", req.ID, err)
	}

	d.logger.Info("dispatching analysis tasks",
		"request_id", req.ID,
		"case_number", req.CaseNumber,
		"task_count", len(subs))

	var wg sync.WaitGroup
	for _, sub := range subs {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.logger.Error("submission fan-out cancelled",
				"request_id", req.ID,
				"error", err)
			break
		}

		wg.Add(1)
		go func(sub inference.Submission) {
			defer wg.Done()
			defer d.sem.Release(1)

			if err := d.client.Submit(ctx, sub); err != nil {
				d.logger.Error("inference submission failed",
					"request_id", req.ID,
					"task_id", sub.TaskID,
					"error", err)
			}
		}(sub)
	}
	wg.Wait()

	return nil
}
