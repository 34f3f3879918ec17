// Package inference talks to the external transcript analysis service.
//
// The service is a black box: it accepts one submission per task and is
// expected to call the result-callback endpoint later with the same task
// ID. Submission is fire-and-forget from the dispatcher's perspective; a
// failed submission simply means the task's callback never arrives.
package inference

import (
	"context"
	"errors"
)

// Common errors
var (
	// ErrSubmitFailed is returned when the service rejects or never
	// receives a submission.
	ErrSubmitFailed = errors.New("inference submission failed")
)

// Submission is the payload sent to the analysis endpoint for one
// transcript.
type Submission struct {
	TaskID     string `json:"task_id"`
	Transcript string `json:"transcript"`
	CaseNumber string `json:"case_number"`
	Name       string `json:"name"`
}

// Client submits transcript analysis tasks.
type Client interface {
	// Submit sends one task to the analysis service. It returns once the
	// service has acknowledged receipt; the analysis result arrives later
	// through the callback interface.
	Submit(ctx context.Context, sub Submission) error
}
