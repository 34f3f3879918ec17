package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/platform/logger"
	"github.com/tessellary/casework-api/internal/store"
)

// PostgresRequestStore implements the store.RequestStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRequestStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRequestStore creates a new PostgreSQL implementation of the
// RequestStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresRequestStore(db store.DBTX, logger *slog.Logger) *PostgresRequestStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRequestStore{
		db:     db,
		logger: logger.With(slog.String("component", "request_store")),
	}
}

// Ensure PostgresRequestStore implements store.RequestStore interface
var _ store.RequestStore = (*PostgresRequestStore)(nil)

// Create implements store.RequestStore.Create
// It saves a new analysis request to the database, handling domain validation.
func (s *PostgresRequestStore) Create(ctx context.Context, req *domain.AnalysisRequest) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := req.Validate(); err != nil {
		log.Warn("request validation failed during create",
			slog.String("error", err.Error()),
			slog.String("request_id", req.ID.String()))
		return err
	}

	query := `
		INSERT INTO analysis_requests
			(id, case_number, caller_id, request_type, query_succeeded,
			 transcript_count, result_pushed, is_completed, push_time,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		req.ID,
		req.CaseNumber,
		req.CallerID,
		req.RequestType,
		req.QuerySucceeded,
		req.TranscriptCount,
		req.ResultPushed,
		req.Completed,
		req.PushTime,
		req.CreatedAt,
		req.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create analysis request",
			slog.String("error", err.Error()),
			slog.String("request_id", req.ID.String()),
			slog.String("case_number", req.CaseNumber))
		return MapError(err)
	}

	log.Info("analysis request created",
		slog.String("request_id", req.ID.String()),
		slog.String("case_number", req.CaseNumber),
		slog.Int("transcript_count", req.TranscriptCount))
	return nil
}

// GetByID implements store.RequestStore.GetByID
// Returns store.ErrRequestNotFound if the request does not exist.
func (s *PostgresRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnalysisRequest, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, case_number, caller_id, request_type, query_succeeded,
		       transcript_count, result_pushed, is_completed, push_time,
		       created_at, updated_at
		FROM analysis_requests
		WHERE id = $1
	`

	var req domain.AnalysisRequest
	var requestType string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.CaseNumber,
		&req.CallerID,
		&requestType,
		&req.QuerySucceeded,
		&req.TranscriptCount,
		&req.ResultPushed,
		&req.Completed,
		&req.PushTime,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("analysis request not found", slog.String("request_id", id.String()))
			return nil, store.ErrRequestNotFound
		}
		log.Error("failed to get analysis request by ID",
			slog.String("error", err.Error()),
			slog.String("request_id", id.String()))
		return nil, MapError(err)
	}

	req.RequestType = domain.RequestType(requestType)
	return &req, nil
}

// RecordPushOutcome implements store.RequestStore.RecordPushOutcome
// It marks the request completed and records the push outcome. The stored
// result count is pinned to the transcript count: a push only ever happens
// after every task has reported, so the two are equal at this point.
// Returns store.ErrRequestNotFound if the request does not exist.
func (s *PostgresRequestStore) RecordPushOutcome(
	ctx context.Context,
	id uuid.UUID,
	pushed bool,
	pushTime *time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE analysis_requests
		SET result_pushed = $1,
		    push_time = $2,
		    is_completed = TRUE,
		    result_count = transcript_count,
		    updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, pushed, pushTime, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to record push outcome",
			slog.String("error", err.Error()),
			slog.String("request_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "analysis request"); err != nil {
		log.Debug("analysis request not found for push outcome",
			slog.String("request_id", id.String()))
		return store.ErrRequestNotFound
	}

	log.Info("push outcome recorded",
		slog.String("request_id", id.String()),
		slog.Bool("pushed", pushed))
	return nil
}
