package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/identity"
	"github.com/tessellary/casework-api/internal/inference"
)

// mockTaskStore implements store.TaskRecordStore for testing
type mockTaskStore struct {
	createBatchFn func(ctx context.Context, tasks []*domain.TranscriptTask) error
	created       []*domain.TranscriptTask
	mu            sync.Mutex
}

func (m *mockTaskStore) CreateBatch(ctx context.Context, tasks []*domain.TranscriptTask) error {
	m.mu.Lock()
	m.created = append(m.created, tasks...)
	m.mu.Unlock()
	if m.createBatchFn != nil {
		return m.createBatchFn(ctx, tasks)
	}
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TranscriptTask, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskStore) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*domain.TranscriptTask, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskStore) RecordResult(
	ctx context.Context,
	id uuid.UUID,
	contentPost string,
	resultPayload string,
	durationSeconds float64,
	returnedAt time.Time,
) error {
	return errors.New("not implemented")
}

// mockInferenceClient implements inference.Client for testing
type mockInferenceClient struct {
	submitFn func(ctx context.Context, sub inference.Submission) error
	calls    atomic.Int64
}

func (m *mockInferenceClient) Submit(ctx context.Context, sub inference.Submission) error {
	m.calls.Add(1)
	if m.submitFn != nil {
		return m.submitFn(ctx, sub)
	}
	return nil
}

// nopParser never parses anything.
type nopParser struct{}

func (nopParser) Parse(raw string) (*identity.Attributes, bool) { return nil, false }

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestDispatcher(
	t *testing.T,
	tasks *mockTaskStore,
	client *mockInferenceClient,
	maxInFlight int64,
) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(tasks, client, nopParser{}, semaphore.NewWeighted(maxInFlight), setupTestLogger())
	require.NoError(t, err)
	return d
}

func testRequest(t *testing.T) *domain.AnalysisRequest {
	t.Helper()
	req, err := domain.NewAnalysisRequest("caller-1", "case-001")
	require.NoError(t, err)
	return req
}

func transcripts(n int) []domain.Transcript {
	out := make([]domain.Transcript, n)
	for i := range out {
		out[i] = domain.Transcript{
			IntervieweeName: "某人",
			Content:         "transcript content",
		}
	}
	return out
}

func TestNewDispatcherValidation(t *testing.T) {
	tasks := &mockTaskStore{}
	client := &mockInferenceClient{}
	sem := semaphore.NewWeighted(1)
	logger := setupTestLogger()

	_, err := NewDispatcher(nil, client, nopParser{}, sem, logger)
	assert.ErrorIs(t, err, ErrNilTaskStore)

	_, err = NewDispatcher(tasks, nil, nopParser{}, sem, logger)
	assert.ErrorIs(t, err, ErrNilClient)

	_, err = NewDispatcher(tasks, client, nil, sem, logger)
	assert.ErrorIs(t, err, ErrNilParser)

	_, err = NewDispatcher(tasks, client, nopParser{}, nil, logger)
	assert.ErrorIs(t, err, ErrNilSemaphore)

	_, err = NewDispatcher(tasks, client, nopParser{}, sem, nil)
	assert.ErrorIs(t, err, ErrNilLogger)
}

func TestDispatchEmptyIsNoOp(t *testing.T) {
	tasks := &mockTaskStore{}
	client := &mockInferenceClient{}
	d := newTestDispatcher(t, tasks, client, 10)

	err := d.Dispatch(context.Background(), testRequest(t), nil)
	require.NoError(t, err)
	assert.Empty(t, tasks.created)
	assert.Equal(t, int64(0), client.calls.Load())
}

func TestDispatchPersistsBatchAndSubmitsAll(t *testing.T) {
	tasks := &mockTaskStore{}
	client := &mockInferenceClient{}
	d := newTestDispatcher(t, tasks, client, 10)
	req := testRequest(t)

	err := d.Dispatch(context.Background(), req, transcripts(5))
	require.NoError(t, err)

	require.Len(t, tasks.created, 5)
	for i, task := range tasks.created {
		assert.Equal(t, req.ID, task.RequestID)
		assert.Equal(t, i+1, task.Ordinal)
	}
	assert.Equal(t, int64(5), client.calls.Load())
}

func TestDispatchRespectsConcurrencyCap(t *testing.T) {
	const maxInFlight = 3
	var inFlight, peak atomic.Int64

	client := &mockInferenceClient{
		submitFn: func(ctx context.Context, sub inference.Submission) error {
			current := inFlight.Add(1)
			for {
				seen := peak.Load()
				if current <= seen || peak.CompareAndSwap(seen, current) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		},
	}
	d := newTestDispatcher(t, &mockTaskStore{}, client, maxInFlight)

	err := d.Dispatch(context.Background(), testRequest(t), transcripts(12))
	require.NoError(t, err)

	assert.Equal(t, int64(12), client.calls.Load())
	assert.LessOrEqual(t, peak.Load(), int64(maxInFlight))
}

func TestDispatchIsolatesSubmissionFailures(t *testing.T) {
	var n atomic.Int64
	client := &mockInferenceClient{
		submitFn: func(ctx context.Context, sub inference.Submission) error {
			if n.Add(1)%2 == 0 {
				return errors.New("inference unavailable")
			}
			return nil
		},
	}
	d := newTestDispatcher(t, &mockTaskStore{}, client, 4)

	err := d.Dispatch(context.Background(), testRequest(t), transcripts(6))
	require.NoError(t, err, "individual submission failures must not fail the dispatch")
	assert.Equal(t, int64(6), client.calls.Load())
}

func TestDispatchFailsWhenBatchPersistFails(t *testing.T) {
	tasks := &mockTaskStore{
		createBatchFn: func(ctx context.Context, batch []*domain.TranscriptTask) error {
			return errors.New("database down")
		},
	}
	client := &mockInferenceClient{}
	d := newTestDispatcher(t, tasks, client, 4)

	err := d.Dispatch(context.Background(), testRequest(t), transcripts(3))
	require.Error(t, err)
	assert.Equal(t, int64(0), client.calls.Load(), "nothing may be submitted without a persisted batch")
}

func TestDispatchDerivesIdentityAttributes(t *testing.T) {
	tasks := &mockTaskStore{}
	client := &mockInferenceClient{}
	d, err := NewDispatcher(
		tasks, client, identity.NewResidentIDParser(),
		semaphore.NewWeighted(4), setupTestLogger())
	require.NoError(t, err)

	trs := []domain.Transcript{
		{IntervieweeName: "甲", IDNumber: "110101199003070011", Content: "c"},
		{IntervieweeName: "乙", IDNumber: "garbage", Content: "c"},
	}

	err = d.Dispatch(context.Background(), testRequest(t), trs)
	require.NoError(t, err)

	require.Len(t, tasks.created, 2)
	parsed := tasks.created[0]
	require.NotNil(t, parsed.Gender)
	assert.Equal(t, "男", *parsed.Gender)
	assert.NotNil(t, parsed.BirthDate)
	assert.NotNil(t, parsed.Registration)

	unparsed := tasks.created[1]
	assert.Nil(t, unparsed.Gender)
	assert.Nil(t, unparsed.Age)
}
