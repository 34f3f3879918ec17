package postgres

import (
	"context"
	"log/slog"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/platform/logger"
	"github.com/tessellary/casework-api/internal/store"
)

// PostgresTranscriptSource implements the store.TranscriptSource interface
// against the upstream case-records database. The connection typically
// points at a different database than the service's own; it is read-only
// from this service's perspective.
type PostgresTranscriptSource struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTranscriptSource creates a new PostgreSQL implementation of
// the TranscriptSource interface. If logger is nil, a default logger will
// be used.
func NewPostgresTranscriptSource(db store.DBTX, logger *slog.Logger) *PostgresTranscriptSource {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTranscriptSource{
		db:     db,
		logger: logger.With(slog.String("component", "transcript_source")),
	}
}

// Ensure PostgresTranscriptSource implements store.TranscriptSource interface
var _ store.TranscriptSource = (*PostgresTranscriptSource)(nil)

// FindByCaseNumber implements store.TranscriptSource.FindByCaseNumber
// An unknown case number yields an empty slice, not an error.
func (s *PostgresTranscriptSource) FindByCaseNumber(
	ctx context.Context,
	caseNumber string,
) ([]domain.Transcript, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT interviewee_name, id_number, interview_type, content,
		       recorded_at, register_dept
		FROM case_transcripts
		WHERE case_number = $1
		ORDER BY recorded_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, caseNumber)
	if err != nil {
		log.Error("failed to query case transcripts",
			slog.String("error", err.Error()),
			slog.String("case_number", caseNumber))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	transcripts := []domain.Transcript{}
	for rows.Next() {
		var tr domain.Transcript
		err := rows.Scan(
			&tr.IntervieweeName,
			&tr.IDNumber,
			&tr.InterviewType,
			&tr.Content,
			&tr.RecordedAt,
			&tr.RegisterDept,
		)
		if err != nil {
			log.Error("failed to scan transcript row",
				slog.String("error", err.Error()),
				slog.String("case_number", caseNumber))
			return nil, MapError(err)
		}
		transcripts = append(transcripts, tr)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning transcript rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("transcripts fetched for case",
		slog.String("case_number", caseNumber),
		slog.Int("count", len(transcripts)))
	return transcripts, nil
}
