package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tessellary/casework-api/internal/gate"
	"github.com/tessellary/casework-api/internal/store"
)

// StoreExpectedSource adapts the request store to the completion gate's
// ExpectedSource interface: the expected arrival total for a request is
// its persisted transcript count.
type StoreExpectedSource struct {
	requests store.RequestStore
}

// NewStoreExpectedSource creates an ExpectedSource backed by the request store.
func NewStoreExpectedSource(requests store.RequestStore) (*StoreExpectedSource, error) {
	if requests == nil {
		return nil, ErrNilRequestStore
	}
	return &StoreExpectedSource{requests: requests}, nil
}

// Ensure StoreExpectedSource implements gate.ExpectedSource
var _ gate.ExpectedSource = (*StoreExpectedSource)(nil)

// ExpectedTotal implements gate.ExpectedSource.ExpectedTotal
func (s *StoreExpectedSource) ExpectedTotal(ctx context.Context, requestID string) (int64, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return 0, fmt.Errorf("invalid request ID %q: %w", requestID, err)
	}

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	return int64(req.TranscriptCount), nil
}
