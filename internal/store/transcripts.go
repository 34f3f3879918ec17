package store

import (
	"context"

	"github.com/tessellary/casework-api/internal/domain"
)

// TranscriptSource provides the raw interview transcripts for a case.
// It is an external collaborator: the records live in an upstream system
// and are only ever read, never written, by this service.
type TranscriptSource interface {
	// FindByCaseNumber returns every transcript recorded for the case,
	// ordered by recording time. An unknown case number yields an empty
	// slice, not an error.
	FindByCaseNumber(ctx context.Context, caseNumber string) ([]domain.Transcript, error)
}
