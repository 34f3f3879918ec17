package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/platform/logger"
	"github.com/tessellary/casework-api/internal/store"
)

// taskColumnCount is the number of columns written per task row in
// CreateBatch. The placeholder builder depends on it.
const taskColumnCount = 19

// PostgresTaskRecordStore implements the store.TaskRecordStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskRecordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskRecordStore creates a new PostgreSQL implementation of the
// TaskRecordStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskRecordStore(db store.DBTX, logger *slog.Logger) *PostgresTaskRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskRecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_record_store")),
	}
}

// Ensure PostgresTaskRecordStore implements store.TaskRecordStore interface
var _ store.TaskRecordStore = (*PostgresTaskRecordStore)(nil)

// CreateBatch implements store.TaskRecordStore.CreateBatch
// It persists the whole batch with a single multi-row INSERT so that a
// request's tasks become visible atomically. A no-op for an empty slice.
func (s *PostgresTaskRecordStore) CreateBatch(ctx context.Context, tasks []*domain.TranscriptTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(tasks) == 0 {
		return nil
	}

	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			log.Warn("task validation failed during batch create",
				slog.String("error", err.Error()),
				slog.String("task_id", task.ID.String()))
			return err
		}
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO transcript_tasks
			(id, request_id, case_number, ordinal, interviewee_name,
			 interview_type, id_number, gender, age, birth_date, registration,
			 recorded_at, register_dept, content, content_post, result_payload,
			 is_completed, created_at, updated_at)
		VALUES `)

	args := make([]interface{}, 0, len(tasks)*taskColumnCount)
	for i, task := range tasks {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * taskColumnCount
		sb.WriteString("(")
		for j := 1; j <= taskColumnCount; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")

		args = append(args,
			task.ID,
			task.RequestID,
			task.CaseNumber,
			task.Ordinal,
			task.IntervieweeName,
			task.InterviewType,
			task.IDNumber,
			task.Gender,
			task.Age,
			task.BirthDate,
			task.Registration,
			task.RecordedAt,
			task.RegisterDept,
			task.Content,
			task.ContentPost,
			task.ResultPayload,
			task.Completed,
			task.CreatedAt,
			task.UpdatedAt,
		)
	}

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		log.Error("failed to create task batch",
			slog.String("error", err.Error()),
			slog.String("request_id", tasks[0].RequestID.String()),
			slog.Int("task_count", len(tasks)))
		return MapError(err)
	}

	log.Info("task batch created",
		slog.String("request_id", tasks[0].RequestID.String()),
		slog.Int("task_count", len(tasks)))
	return nil
}

// GetByID implements store.TaskRecordStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TranscriptTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := taskSelectColumns + `
		FROM transcript_tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("transcript task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get transcript task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// ListByRequest implements store.TaskRecordStore.ListByRequest
// Tasks come back in ordinal order so merged output is deterministic.
func (s *PostgresTaskRecordStore) ListByRequest(
	ctx context.Context,
	requestID uuid.UUID,
) ([]*domain.TranscriptTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := taskSelectColumns + `
		FROM transcript_tasks
		WHERE request_id = $1
		ORDER BY ordinal ASC
	`

	rows, err := s.db.QueryContext(ctx, query, requestID)
	if err != nil {
		log.Error("failed to list tasks by request",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.TranscriptTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()),
				slog.String("request_id", requestID.String()))
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning task rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return tasks, nil
}

// RecordResult implements store.TaskRecordStore.RecordResult
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskRecordStore) RecordResult(
	ctx context.Context,
	id uuid.UUID,
	contentPost string,
	resultPayload string,
	durationSeconds float64,
	returnedAt time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE transcript_tasks
		SET content_post = $1,
		    result_payload = $2,
		    duration_seconds = $3,
		    returned_at = $4,
		    is_completed = TRUE,
		    updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		contentPost,
		resultPayload,
		durationSeconds,
		returnedAt,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		log.Error("failed to record task result",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "transcript task"); err != nil {
		log.Debug("transcript task not found for result",
			slog.String("task_id", id.String()))
		return store.ErrTaskNotFound
	}

	log.Info("task result recorded",
		slog.String("task_id", id.String()),
		slog.Float64("duration_seconds", durationSeconds))
	return nil
}

const taskSelectColumns = `
	SELECT id, request_id, case_number, ordinal, interviewee_name,
	       interview_type, id_number, gender, age, birth_date, registration,
	       recorded_at, register_dept, content, content_post, result_payload,
	       duration_seconds, is_completed, returned_at, created_at, updated_at
`

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*domain.TranscriptTask, error) {
	var task domain.TranscriptTask
	err := row.Scan(
		&task.ID,
		&task.RequestID,
		&task.CaseNumber,
		&task.Ordinal,
		&task.IntervieweeName,
		&task.InterviewType,
		&task.IDNumber,
		&task.Gender,
		&task.Age,
		&task.BirthDate,
		&task.Registration,
		&task.RecordedAt,
		&task.RegisterDept,
		&task.Content,
		&task.ContentPost,
		&task.ResultPayload,
		&task.DurationSeconds,
		&task.Completed,
		&task.ReturnedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
