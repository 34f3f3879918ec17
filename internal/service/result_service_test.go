package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/gate"
	"github.com/tessellary/casework-api/internal/merge"
)

type resultFixture struct {
	svc      ResultService
	requests *mockRequestStore
	tasks    *mockTaskRecordStore
	gate     *countingGate
	pusher   *mockPusher
}

func newResultFixture(t *testing.T, expected int64) *resultFixture {
	t.Helper()

	requests := newMockRequestStore()
	tasks := newMockTaskRecordStore()
	completionGate := newCountingGate(expected)
	pusher := &mockPusher{}
	queue := &syncQueue{}

	svc, err := NewResultService(tasks, requests, completionGate, pusher, queue, setupTestLogger())
	require.NoError(t, err)

	return &resultFixture{
		svc:      svc,
		requests: requests,
		tasks:    tasks,
		gate:     completionGate,
		pusher:   pusher,
	}
}

// seedRequest creates a request with n pending tasks and returns both.
func (f *resultFixture) seedRequest(t *testing.T, n int) (*domain.AnalysisRequest, []*domain.TranscriptTask) {
	t.Helper()

	req, err := domain.NewAnalysisRequest("caller-1", "case-001")
	require.NoError(t, err)
	req.QuerySucceeded = true
	req.TranscriptCount = n
	require.NoError(t, f.requests.Create(context.Background(), req))

	tasks := make([]*domain.TranscriptTask, n)
	for i := range tasks {
		task, err := domain.NewTranscriptTask(req, i+1, domain.Transcript{
			IntervieweeName: "某人",
			Content:         "transcript",
		})
		require.NoError(t, err)
		tasks[i] = task
	}
	require.NoError(t, f.tasks.CreateBatch(context.Background(), tasks))
	return req, tasks
}

func payloadFor(t *testing.T, name, classType string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		merge.KeyClassification: classType,
		merge.KeyPersonInfo:     []any{map[string]any{"name": name}},
	})
	require.NoError(t, err)
	return string(raw)
}

func TestHandleResultBelowThresholdDoesNotPush(t *testing.T) {
	f := newResultFixture(t, 3)
	_, tasks := f.seedRequest(t, 3)

	err := f.svc.HandleResult(context.Background(), tasks[0].ID, "post", payloadFor(t, "甲", "theft"), 1.0)
	require.NoError(t, err)

	assert.Empty(t, f.pusher.pushed)

	stored, err := f.tasks.GetByID(context.Background(), tasks[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.Equal(t, 1.0, stored.DurationSeconds)
	assert.NotNil(t, stored.ReturnedAt)
}

func TestHandleResultLastCallbackPushesOnce(t *testing.T) {
	f := newResultFixture(t, 3)
	req, tasks := f.seedRequest(t, 3)

	// Callbacks arrive in an order unrelated to dispatch order.
	order := []int{2, 0, 1}
	for _, i := range order {
		err := f.svc.HandleResult(
			context.Background(), tasks[i].ID, "post", payloadFor(t, "甲", "theft"), 1.0)
		require.NoError(t, err)
	}

	require.Len(t, f.pusher.pushed, 1, "exactly one push per completed request")
	assert.Equal(t, req.ID, f.pusher.pushed[0].ID)

	merged := f.pusher.merged[0]
	classifications := merged[merge.KeyClassification].([]any)
	require.Len(t, classifications, 1)
	entry := classifications[0].(map[string]any)
	assert.Equal(t, "甲", entry["name"])
	assert.Equal(t, "theft", entry["type"])
}

func TestHandleResultDuplicateCallbackSingleTask(t *testing.T) {
	f := newResultFixture(t, 1)
	_, tasks := f.seedRequest(t, 1)

	err := f.svc.HandleResult(context.Background(), tasks[0].ID, "post", payloadFor(t, "甲", "theft"), 1.0)
	require.NoError(t, err)
	require.Len(t, f.pusher.pushed, 1)

	// The winner has already claimed and removed the counter entry; the
	// duplicate must stop at the completed task record, not restart the
	// count and win the gate a second time.
	err = f.svc.HandleResult(context.Background(), tasks[0].ID, "post", payloadFor(t, "甲", "theft"), 1.0)
	require.NoError(t, err)
	assert.Len(t, f.pusher.pushed, 1, "only one push per completed request")
}

func TestHandleResultDuplicatesAfterCompletionNeverRepush(t *testing.T) {
	f := newResultFixture(t, 3)
	_, tasks := f.seedRequest(t, 3)

	for _, task := range tasks {
		err := f.svc.HandleResult(context.Background(), task.ID, "post", payloadFor(t, "甲", "theft"), 1.0)
		require.NoError(t, err)
	}
	require.Len(t, f.pusher.pushed, 1)

	// Replaying every callback would reach the expected total again on a
	// fresh counter if the duplicates were allowed through.
	for _, task := range tasks {
		err := f.svc.HandleResult(context.Background(), task.ID, "post", payloadFor(t, "甲", "theft"), 1.0)
		require.NoError(t, err)
	}
	assert.Len(t, f.pusher.pushed, 1, "only one push per completed request")
}

func TestHandleResultDuplicateBeforeCompletionDoesNotCount(t *testing.T) {
	f := newResultFixture(t, 2)
	_, tasks := f.seedRequest(t, 2)

	err := f.svc.HandleResult(context.Background(), tasks[0].ID, "post", payloadFor(t, "甲", "theft"), 1.0)
	require.NoError(t, err)

	// The same task again: its record is already complete, so the
	// arrival must not be the one that reaches the expected total.
	err = f.svc.HandleResult(context.Background(), tasks[0].ID, "post", payloadFor(t, "甲", "theft"), 1.0)
	require.NoError(t, err)
	assert.Empty(t, f.pusher.pushed)

	err = f.svc.HandleResult(context.Background(), tasks[1].ID, "post", payloadFor(t, "甲", "theft"), 1.0)
	require.NoError(t, err)
	assert.Len(t, f.pusher.pushed, 1)
}

func TestHandleResultUnknownTask(t *testing.T) {
	f := newResultFixture(t, 1)

	err := f.svc.HandleResult(context.Background(), uuid.New(), "", "{}", 0)
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.Empty(t, f.pusher.pushed)
}

func TestHandleResultPushFailureDoesNotError(t *testing.T) {
	f := newResultFixture(t, 1)
	_, tasks := f.seedRequest(t, 1)
	f.pusher.pushFn = func(ctx context.Context, req *domain.AnalysisRequest, merged map[string]any) error {
		return assert.AnError
	}

	err := f.svc.HandleResult(context.Background(), tasks[0].ID, "", payloadFor(t, "甲", "theft"), 1.0)
	assert.NoError(t, err, "a failed push is terminal, not retryable")
	assert.Len(t, f.pusher.pushed, 1)
}

func TestHandleResultGateFailurePropagates(t *testing.T) {
	f := newResultFixture(t, 1)
	_, tasks := f.seedRequest(t, 1)
	f.gate.arriveFn = func(ctx context.Context, requestID string) (gate.Arrival, error) {
		return gate.Arrival{}, assert.AnError
	}

	err := f.svc.HandleResult(context.Background(), tasks[0].ID, "", "{}", 0)
	assert.Error(t, err)
	assert.Empty(t, f.pusher.pushed)
}

func TestAcceptResultEnqueuesAndProcesses(t *testing.T) {
	f := newResultFixture(t, 1)
	_, tasks := f.seedRequest(t, 1)

	err := f.svc.AcceptResult(context.Background(), tasks[0].ID, "post", payloadFor(t, "甲", "theft"), 2.0)
	require.NoError(t, err)

	// The synchronous queue executes inline, so the push already happened.
	assert.Len(t, f.pusher.pushed, 1)
}

func TestAcceptResultRejectsNilTaskID(t *testing.T) {
	f := newResultFixture(t, 1)

	err := f.svc.AcceptResult(context.Background(), uuid.Nil, "", "{}", 0)
	assert.Error(t, err)
}

func TestNewResultServiceValidation(t *testing.T) {
	tasks := newMockTaskRecordStore()
	requests := newMockRequestStore()
	completionGate := newCountingGate(1)
	pusher := &mockPusher{}
	queue := &syncQueue{}
	logger := setupTestLogger()

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{"nil task store", func() error {
			_, err := NewResultService(nil, requests, completionGate, pusher, queue, logger)
			return err
		}, ErrNilTaskStore},
		{"nil request store", func() error {
			_, err := NewResultService(tasks, nil, completionGate, pusher, queue, logger)
			return err
		}, ErrNilRequestStore},
		{"nil gate", func() error {
			_, err := NewResultService(tasks, requests, nil, pusher, queue, logger)
			return err
		}, ErrNilGate},
		{"nil pusher", func() error {
			_, err := NewResultService(tasks, requests, completionGate, nil, queue, logger)
			return err
		}, ErrNilPusher},
		{"nil queue", func() error {
			_, err := NewResultService(tasks, requests, completionGate, pusher, nil, logger)
			return err
		}, ErrNilQueue},
		{"nil logger", func() error {
			_, err := NewResultService(tasks, requests, completionGate, pusher, queue, nil)
			return err
		}, ErrNilLogger},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(), tc.want)
		})
	}
}
