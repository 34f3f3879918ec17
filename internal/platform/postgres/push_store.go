package postgres

import (
	"context"
	"log/slog"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/platform/logger"
	"github.com/tessellary/casework-api/internal/store"
)

// PostgresPushStore implements the store.PushStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPushStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPushStore creates a new PostgreSQL implementation of the
// PushStore interface. If logger is nil, a default logger will be used.
func NewPostgresPushStore(db store.DBTX, logger *slog.Logger) *PostgresPushStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPushStore{
		db:     db,
		logger: logger.With(slog.String("component", "push_store")),
	}
}

// Ensure PostgresPushStore implements store.PushStore interface
var _ store.PushStore = (*PostgresPushStore)(nil)

// Append implements store.PushStore.Append
// The table is append-only; there is no update or delete path.
func (s *PostgresPushStore) Append(ctx context.Context, rec *domain.PushRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		log.Warn("push record validation failed",
			slog.String("error", err.Error()),
			slog.String("push_id", rec.ID.String()))
		return err
	}

	query := `
		INSERT INTO push_records (id, request_id, payload, succeeded, push_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.RequestID,
		rec.Payload,
		rec.Succeeded,
		rec.PushTime,
		rec.CreatedAt,
	)

	if err != nil {
		log.Error("failed to append push record",
			slog.String("error", err.Error()),
			slog.String("push_id", rec.ID.String()),
			slog.String("request_id", rec.RequestID.String()))
		return MapError(err)
	}

	log.Info("push record appended",
		slog.String("push_id", rec.ID.String()),
		slog.String("request_id", rec.RequestID.String()),
		slog.Bool("succeeded", rec.Succeeded))
	return nil
}
