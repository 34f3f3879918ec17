// Package service provides application-level services for case analysis
// requests and inference result handling.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNoTranscripts indicates that the case exists in the upstream
	// records database but has no transcripts to analyze.
	// API layer should map this to HTTP 404 Not Found.
	ErrNoTranscripts = errors.New("case has no transcripts")

	// ErrCaseLookupFailed indicates that the upstream transcript query
	// itself failed. The request row is still recorded for the audit
	// trail. API layer should map this to HTTP 502 Bad Gateway.
	ErrCaseLookupFailed = errors.New("case transcript lookup failed")

	// ErrUnknownTask indicates that a result callback referenced a task
	// ID this service never issued.
	// API layer should map this to HTTP 404 Not Found.
	ErrUnknownTask = errors.New("unknown analysis task")
)
