package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tessellary/casework-api/internal/domain"
)

// RequestStore defines the interface for analysis request persistence.
type RequestStore interface {
	// Create saves a new analysis request to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain AnalysisRequest if data is invalid.
	Create(ctx context.Context, req *domain.AnalysisRequest) error

	// GetByID retrieves an analysis request by its unique ID.
	// Returns ErrRequestNotFound if the request does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AnalysisRequest, error)

	// RecordPushOutcome marks a request's terminal state after the merged
	// result has been pushed (or the push terminally failed). The request
	// is always marked completed; pushed and pushTime reflect the outcome.
	// Returns ErrRequestNotFound if the request does not exist.
	RecordPushOutcome(ctx context.Context, id uuid.UUID, pushed bool, pushTime *time.Time) error
}
