package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/gate"
	"github.com/tessellary/casework-api/internal/store"
	"github.com/tessellary/casework-api/internal/task"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// mockRequestStore implements store.RequestStore for testing
type mockRequestStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*domain.AnalysisRequest
	createFn func(ctx context.Context, req *domain.AnalysisRequest) error
}

func newMockRequestStore() *mockRequestStore {
	return &mockRequestStore{requests: make(map[uuid.UUID]*domain.AnalysisRequest)}
}

func (m *mockRequestStore) Create(ctx context.Context, req *domain.AnalysisRequest) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, req); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnalysisRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, store.ErrRequestNotFound
	}
	return req, nil
}

func (m *mockRequestStore) RecordPushOutcome(
	ctx context.Context,
	id uuid.UUID,
	pushed bool,
	pushTime *time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return store.ErrRequestNotFound
	}
	req.ResultPushed = pushed
	req.Completed = true
	req.PushTime = pushTime
	return nil
}

// mockTaskRecordStore implements store.TaskRecordStore for testing
type mockTaskRecordStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.TranscriptTask
}

func newMockTaskRecordStore() *mockTaskRecordStore {
	return &mockTaskRecordStore{tasks: make(map[uuid.UUID]*domain.TranscriptTask)}
}

func (m *mockTaskRecordStore) CreateBatch(ctx context.Context, tasks []*domain.TranscriptTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return nil
}

func (m *mockTaskRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TranscriptTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t, nil
}

func (m *mockTaskRecordStore) ListByRequest(
	ctx context.Context,
	requestID uuid.UUID,
) ([]*domain.TranscriptTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.TranscriptTask{}
	for _, t := range m.tasks {
		if t.RequestID == requestID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRecordStore) RecordResult(
	ctx context.Context,
	id uuid.UUID,
	contentPost string,
	resultPayload string,
	durationSeconds float64,
	returnedAt time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.ContentPost = contentPost
	t.ResultPayload = resultPayload
	t.DurationSeconds = durationSeconds
	t.Completed = true
	t.ReturnedAt = &returnedAt
	return nil
}

// mockTranscriptSource implements store.TranscriptSource for testing
type mockTranscriptSource struct {
	findFn func(ctx context.Context, caseNumber string) ([]domain.Transcript, error)
}

func (m *mockTranscriptSource) FindByCaseNumber(
	ctx context.Context,
	caseNumber string,
) ([]domain.Transcript, error) {
	if m.findFn != nil {
		return m.findFn(ctx, caseNumber)
	}
	return []domain.Transcript{}, nil
}

// syncQueue implements task.TaskQueueWriter by executing tasks inline,
// which keeps service tests deterministic.
type syncQueue struct {
	mu        sync.Mutex
	enqueueFn func(t task.Task) error
	executed  []task.Task
}

func (q *syncQueue) Enqueue(t task.Task) error {
	if q.enqueueFn != nil {
		if err := q.enqueueFn(t); err != nil {
			return err
		}
	}
	q.mu.Lock()
	q.executed = append(q.executed, t)
	q.mu.Unlock()
	return t.Execute(context.Background())
}

func (q *syncQueue) Close() {}

// mockCaseDispatcher implements task.CaseDispatcher for testing
type mockCaseDispatcher struct {
	mu         sync.Mutex
	dispatched []*domain.AnalysisRequest
	dispatchFn func(ctx context.Context, req *domain.AnalysisRequest, trs []domain.Transcript) error
}

func (m *mockCaseDispatcher) Dispatch(
	ctx context.Context,
	req *domain.AnalysisRequest,
	trs []domain.Transcript,
) error {
	m.mu.Lock()
	m.dispatched = append(m.dispatched, req)
	m.mu.Unlock()
	if m.dispatchFn != nil {
		return m.dispatchFn(ctx, req, trs)
	}
	return nil
}

// countingGate implements gate.CompletionGate in memory with the same
// re-arming behavior as the Redis gate: the winning arrival removes the
// counter entry, so a later arrival for the same request starts a fresh
// count instead of finding the old one.
type countingGate struct {
	mu       sync.Mutex
	expected int64
	counts   map[string]int64
	arriveFn func(ctx context.Context, requestID string) (gate.Arrival, error)
}

func newCountingGate(expected int64) *countingGate {
	return &countingGate{expected: expected, counts: make(map[string]int64)}
}

func (g *countingGate) Arrive(ctx context.Context, requestID string) (gate.Arrival, error) {
	if g.arriveFn != nil {
		return g.arriveFn(ctx, requestID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts[requestID]++
	count := g.counts[requestID]
	complete := count >= g.expected
	if complete {
		delete(g.counts, requestID)
	}
	return gate.Arrival{
		Count:    count,
		Expected: g.expected,
		Complete: complete,
	}, nil
}

// mockPusher implements ResultPusher for testing
type mockPusher struct {
	mu     sync.Mutex
	pushed []*domain.AnalysisRequest
	merged []map[string]any
	pushFn func(ctx context.Context, req *domain.AnalysisRequest, merged map[string]any) error
}

func (m *mockPusher) Push(
	ctx context.Context,
	req *domain.AnalysisRequest,
	merged map[string]any,
) error {
	m.mu.Lock()
	m.pushed = append(m.pushed, req)
	m.merged = append(m.merged, merged)
	m.mu.Unlock()
	if m.pushFn != nil {
		return m.pushFn(ctx, req, merged)
	}
	return nil
}
