package store

import (
	"context"

	"github.com/tessellary/casework-api/internal/domain"
)

// CallerStore resolves caller identities to their registered affiliation.
type CallerStore interface {
	// GetByID retrieves a caller by its identity string.
	// Returns ErrCallerNotFound if the caller is not registered.
	GetByID(ctx context.Context, id string) (*domain.Caller, error)
}
