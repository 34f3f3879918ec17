package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for TranscriptTask
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskRequestID = errors.New("task request ID cannot be empty")
	ErrEmptyTaskContent   = errors.New("task transcript content cannot be empty")
)

// TranscriptTask is one transcript's analysis unit, dispatched to the
// inference service and completed independently of its siblings. A task
// belongs to exactly one AnalysisRequest. The result fields are written
// exactly once, when the inference service calls back with the task's
// result; the record is immutable afterward.
type TranscriptTask struct {
	ID              uuid.UUID `json:"task_id"`
	RequestID       uuid.UUID `json:"request_id"`
	CaseNumber      string    `json:"case_number"`
	Ordinal         int       `json:"ordinal"`
	IntervieweeName string    `json:"interviewee_name"`
	InterviewType   string    `json:"interview_type"`
	IDNumber        string    `json:"id_number"`

	// Identity attributes are derived best-effort from the ID number at
	// dispatch time. Any of them may be nil when the number is unparseable.
	Gender       *string    `json:"gender,omitempty"`
	Age          *int       `json:"age,omitempty"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	Registration *string    `json:"registration,omitempty"`

	RecordedAt   *time.Time `json:"recorded_at,omitempty"`
	RegisterDept string     `json:"register_dept"`
	Content      string     `json:"content"`

	// Result fields, filled in by the inference callback.
	ContentPost     string     `json:"content_post"`
	ResultPayload   string     `json:"result_payload"`
	DurationSeconds float64    `json:"duration_seconds"`
	Completed       bool       `json:"completed"`
	ReturnedAt      *time.Time `json:"returned_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTranscriptTask creates a task for one transcript of a request.
// The ordinal is the transcript's 1-based position within the batch.
// Returns an error if validation fails.
func NewTranscriptTask(req *AnalysisRequest, ordinal int, tr Transcript) (*TranscriptTask, error) {
	task := &TranscriptTask{
		ID:              uuid.New(),
		RequestID:       req.ID,
		CaseNumber:      req.CaseNumber,
		Ordinal:         ordinal,
		IntervieweeName: tr.IntervieweeName,
		InterviewType:   tr.InterviewType,
		IDNumber:        tr.IDNumber,
		RecordedAt:      tr.RecordedAt,
		RegisterDept:    tr.RegisterDept,
		Content:         tr.Content,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the TranscriptTask has valid data.
// Returns an error if any field fails validation.
func (t *TranscriptTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.RequestID == uuid.Nil {
		return ErrEmptyTaskRequestID
	}

	if t.Content == "" {
		return ErrEmptyTaskContent
	}

	return nil
}
