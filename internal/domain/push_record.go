package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for PushRecord
var (
	ErrEmptyPushID        = errors.New("push ID cannot be empty")
	ErrEmptyPushRequestID = errors.New("push request ID cannot be empty")
)

// PushRecord is one immutable audit entry for a downstream push attempt.
// The payload holds the exact serialized envelope that was sent (or would
// have been sent) to the downstream consumer. Append-only; never mutated.
type PushRecord struct {
	ID        uuid.UUID  `json:"push_id"`
	RequestID uuid.UUID  `json:"request_id"`
	Payload   string     `json:"payload"`
	Succeeded bool       `json:"succeeded"`
	PushTime  *time.Time `json:"push_time,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewPushRecord creates an audit record for one push attempt.
// Returns an error if validation fails.
func NewPushRecord(requestID uuid.UUID, payload string, succeeded bool, pushTime *time.Time) (*PushRecord, error) {
	rec := &PushRecord{
		ID:        uuid.New(),
		RequestID: requestID,
		Payload:   payload,
		Succeeded: succeeded,
		PushTime:  pushTime,
		CreatedAt: time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the PushRecord has valid data.
func (p *PushRecord) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPushID
	}

	if p.RequestID == uuid.Nil {
		return ErrEmptyPushRequestID
	}

	return nil
}
