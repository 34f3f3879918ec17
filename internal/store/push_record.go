package store

import (
	"context"

	"github.com/tessellary/casework-api/internal/domain"
)

// PushStore defines the interface for the push audit log.
type PushStore interface {
	// Append adds one immutable push record. Records are never updated
	// or deleted.
	Append(ctx context.Context, rec *domain.PushRecord) error
}
