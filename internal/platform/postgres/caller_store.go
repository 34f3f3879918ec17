package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/platform/logger"
	"github.com/tessellary/casework-api/internal/store"
)

// PostgresCallerStore implements the store.CallerStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCallerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCallerStore creates a new PostgreSQL implementation of the
// CallerStore interface. If logger is nil, a default logger will be used.
func NewPostgresCallerStore(db store.DBTX, logger *slog.Logger) *PostgresCallerStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCallerStore{
		db:     db,
		logger: logger.With(slog.String("component", "caller_store")),
	}
}

// Ensure PostgresCallerStore implements store.CallerStore interface
var _ store.CallerStore = (*PostgresCallerStore)(nil)

// GetByID implements store.CallerStore.GetByID
// Returns store.ErrCallerNotFound if the caller is not registered.
func (s *PostgresCallerStore) GetByID(ctx context.Context, id string) (*domain.Caller, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, affiliation
		FROM callers
		WHERE id = $1
	`

	var caller domain.Caller
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&caller.ID,
		&caller.Name,
		&caller.Affiliation,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("caller not found", slog.String("caller_id", id))
			return nil, store.ErrCallerNotFound
		}
		log.Error("failed to get caller by ID",
			slog.String("error", err.Error()),
			slog.String("caller_id", id))
		return nil, MapError(err)
	}

	return &caller, nil
}
