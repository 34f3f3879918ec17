package task

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
	execFn   func(ctx context.Context) error
}

func (m *mockTask) ID() uuid.UUID {
	return m.id
}

func (m *mockTask) Type() string {
	return m.taskType
}

func (m *mockTask) Payload() []byte {
	return m.payload
}

func (m *mockTask) Status() TaskStatus {
	return m.status
}

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

func newMockTask() *mockTask {
	return &mockTask{
		id:       uuid.New(),
		taskType: "mock",
		payload:  []byte("test payload"),
		status:   TaskStatusPending,
	}
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestNewTaskQueue(t *testing.T) {
	queue := NewTaskQueue(10, setupTestLogger())

	assert.NotNil(t, queue)
	assert.Equal(t, 10, cap(queue.tasks))
	assert.False(t, queue.closed)
}

func TestEnqueue(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())

	assert.NoError(t, queue.Enqueue(newMockTask()))
	assert.NoError(t, queue.Enqueue(newMockTask()))

	// Queue is at capacity now
	err := queue.Enqueue(newMockTask())
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestEnqueueAfterClose(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())
	queue.Close()

	err := queue.Enqueue(newMockTask())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())

	queue.Close()
	assert.NotPanics(t, func() { queue.Close() })
}

func TestGetChannelDrainsBufferedTasks(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())

	task1 := newMockTask()
	task2 := newMockTask()
	assert.NoError(t, queue.Enqueue(task1))
	assert.NoError(t, queue.Enqueue(task2))
	queue.Close()

	var drained []Task
	for task := range queue.GetChannel() {
		drained = append(drained, task)
	}

	assert.Len(t, drained, 2)
	assert.Equal(t, task1.ID(), drained[0].ID())
	assert.Equal(t, task2.ID(), drained[1].ID())
}
