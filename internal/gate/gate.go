// Package gate defines the completion gate: a distributed counter that
// detects when the last of a request's expected results has arrived,
// without the caller tracking individual task identifiers, and with
// single-winner semantics so that exactly one concurrent result handler
// proceeds into aggregation for a request.
package gate

import "context"

// Arrival is the outcome of registering one result arrival.
type Arrival struct {
	// Count is the number of results received so far for the request,
	// including this one, read atomically with the increment.
	Count int64

	// Expected is the total number of results the request is waiting for.
	Expected int64

	// Complete is true for exactly one arrival per request: the one that
	// both reached the expected total and won the claim on the counter
	// entry. The winner owns the aggregation-and-push step.
	Complete bool
}

// CompletionGate tracks result arrivals per request.
//
// Implementations must serialize the increment so that no two arrivals
// observe the same count, and must remove the counter entries when the
// winning arrival is claimed: absence of an entry after completion is a
// correctness signal, not an error.
type CompletionGate interface {
	// Arrive records one result arrival for the request and reports
	// whether this arrival completed the set.
	Arrive(ctx context.Context, requestID string) (Arrival, error)
}

// ExpectedSource supplies the expected result total for a request. The
// gate consults it on the first arrival (and again if its cached value
// has expired).
type ExpectedSource interface {
	ExpectedTotal(ctx context.Context, requestID string) (int64, error)
}
