package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies how an analysis request entered the system.
type RequestType string

// Possible request type values
const (
	// RequestTypeBackend marks requests initiated through the backend API.
	RequestTypeBackend RequestType = "backend"
)

// Common validation errors for AnalysisRequest
var (
	ErrEmptyRequestID  = errors.New("request ID cannot be empty")
	ErrEmptyCaseNumber = errors.New("case number cannot be empty")
	ErrEmptyCallerID   = errors.New("caller ID cannot be empty")
)

// AnalysisRequest represents one case-level analysis invocation covering
// multiple transcripts. It is created when a caller asks for a case to be
// analyzed and is updated as results arrive and the merged payload is
// pushed downstream. Rows are never deleted; they form the audit trail.
type AnalysisRequest struct {
	ID              uuid.UUID   `json:"id"`
	CaseNumber      string      `json:"case_number"`
	CallerID        string      `json:"caller_id"`
	RequestType     RequestType `json:"request_type"`
	QuerySucceeded  bool        `json:"query_succeeded"`
	TranscriptCount int         `json:"transcript_count"`
	ResultPushed    bool        `json:"result_pushed"`
	Completed       bool        `json:"is_completed"`
	PushTime        *time.Time  `json:"push_time,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewAnalysisRequest creates a new AnalysisRequest for the given caller and
// case number. It generates a new UUID for the request ID and sets the
// creation/update timestamps. Counts and status flags start at their zero
// values; the caller fills them in as the lookup progresses.
// Returns an error if validation fails.
func NewAnalysisRequest(callerID, caseNumber string) (*AnalysisRequest, error) {
	req := &AnalysisRequest{
		ID:          uuid.New(),
		CaseNumber:  caseNumber,
		CallerID:    callerID,
		RequestType: RequestTypeBackend,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// Validate checks if the AnalysisRequest has valid data.
// Returns an error if any field fails validation.
func (r *AnalysisRequest) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRequestID
	}

	if r.CaseNumber == "" {
		return ErrEmptyCaseNumber
	}

	if r.CallerID == "" {
		return ErrEmptyCallerID
	}

	return nil
}
