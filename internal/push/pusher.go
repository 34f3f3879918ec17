// Package push delivers a request's merged analysis result to the
// downstream consumer registered for the caller's affiliation.
//
// Delivery is terminal per attempt: any failure is recorded durably and
// never retried by this service. The pusher is only reachable through
// the completion gate's single-winner path, so each request is pushed at
// most once.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/store"
)

// DefaultTimeout bounds one downstream delivery round-trip.
const DefaultTimeout = 30 * time.Second

// Common errors
var (
	// ErrUnknownAffiliation is returned when the caller's affiliation has
	// no registered destination. This outcome is terminal: the request is
	// marked completed but not pushed.
	ErrUnknownAffiliation = errors.New("no destination for caller affiliation")

	// ErrDeliveryFailed is returned when the destination could not be
	// reached or rejected the payload. Terminal for this push.
	ErrDeliveryFailed = errors.New("downstream delivery failed")

	ErrNilCallerStore  = errors.New("caller store cannot be nil")
	ErrNilRequestStore = errors.New("request store cannot be nil")
	ErrNilPushStore    = errors.New("push store cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
)

// Destination identifies one downstream consumer and its signing
// credentials.
type Destination struct {
	URL    string
	AppID  string
	Secret string
}

// Body is the envelope delivered downstream. Field names are a wire
// contract.
type Body struct {
	SignParam       SignParam      `json:"signParam"`
	CaseNumber      string         `json:"caseNumber"`
	OriginalTextArr []string       `json:"originalTextArr"`
	Result          map[string]any `json:"result"`
}

// Pusher delivers merged results and records every outcome durably: the
// request's terminal flags plus one immutable audit record per attempt.
type Pusher struct {
	callers      store.CallerStore
	requests     store.RequestStore
	pushes       store.PushStore
	destinations map[string]Destination
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewPusher creates a Pusher. destinations maps caller affiliations to
// their delivery endpoints. A non-positive timeout falls back to
// DefaultTimeout.
func NewPusher(
	callers store.CallerStore,
	requests store.RequestStore,
	pushes store.PushStore,
	destinations map[string]Destination,
	timeout time.Duration,
	logger *slog.Logger,
) (*Pusher, error) {
	if callers == nil {
		return nil, ErrNilCallerStore
	}
	if requests == nil {
		return nil, ErrNilRequestStore
	}
	if pushes == nil {
		return nil, ErrNilPushStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if destinations == nil {
		destinations = map[string]Destination{}
	}

	return &Pusher{
		callers:      callers,
		requests:     requests,
		pushes:       pushes,
		destinations: destinations,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger.With("component", "pusher"),
	}, nil
}

// Push delivers the merged result for the request and records the
// outcome. The returned error describes why a delivery failed; the
// terminal state has already been persisted by the time Push returns.
func (p *Pusher) Push(ctx context.Context, req *domain.AnalysisRequest, merged map[string]any) error {
	dest, err := p.resolveDestination(ctx, req.CallerID)
	if err != nil {
		p.logger.Warn("request has no deliverable destination",
			"request_id", req.ID,
			"caller_id", req.CallerID,
			"error", err)
		p.recordOutcome(ctx, req.ID, "{}", false, nil)
		return err
	}

	payload, err := p.buildPayload(dest, req.CaseNumber, merged)
	if err != nil {
		p.recordOutcome(ctx, req.ID, "{}", false, nil)
		return err
	}

	if err := p.deliver(ctx, dest.URL, payload); err != nil {
		p.logger.Error("downstream delivery failed",
			"request_id", req.ID,
			"case_number", req.CaseNumber,
			"error", err)
		p.recordOutcome(ctx, req.ID, string(payload), false, nil)
		return err
	}

	now := time.Now().UTC()
	p.recordOutcome(ctx, req.ID, string(payload), true, &now)
	p.logger.Info("merged result pushed",
		"request_id", req.ID,
		"case_number", req.CaseNumber)
	return nil
}

// resolveDestination maps the caller identity to its downstream
// destination via the caller's registered affiliation.
func (p *Pusher) resolveDestination(ctx context.Context, callerID string) (Destination, error) {
	caller, err := p.callers.GetByID(ctx, callerID)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: caller %s: %v", ErrUnknownAffiliation, callerID, err)
	}

	dest, ok := p.destinations[caller.Affiliation]
	if !ok {
		return Destination{}, fmt.Errorf("%w: affiliation %q", ErrUnknownAffiliation, caller.Affiliation)
	}

	return dest, nil
}

// buildPayload constructs and serializes the signed envelope.
func (p *Pusher) buildPayload(dest Destination, caseNumber string, merged map[string]any) ([]byte, error) {
	signParam, err := NewSignParam(dest.AppID, dest.Secret, caseNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	body := Body{
		SignParam:       signParam,
		CaseNumber:      caseNumber,
		OriginalTextArr: []string{},
		Result:          merged,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode payload: %v", ErrDeliveryFailed, err)
	}
	return payload, nil
}

// deliver POSTs the payload to the destination with the bounded client.
func (p *Pusher) deliver(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

// recordOutcome persists the request's terminal flags and appends the
// audit record. Failures here are logged, not propagated: the push
// itself already happened (or terminally failed) and must not be
// re-attempted because bookkeeping lagged.
func (p *Pusher) recordOutcome(
	ctx context.Context,
	requestID uuid.UUID,
	payload string,
	succeeded bool,
	pushTime *time.Time,
) {
	if err := p.requests.RecordPushOutcome(ctx, requestID, succeeded, pushTime); err != nil {
		p.logger.Error("failed to record push outcome",
			"request_id", requestID,
			"error", err)
	}

	rec, err := domain.NewPushRecord(requestID, payload, succeeded, pushTime)
	if err != nil {
		p.logger.Error("failed to build push audit record",
			"request_id", requestID,
			"error", err)
		return
	}
	if err := p.pushes.Append(ctx, rec); err != nil {
		p.logger.Error("failed to append push audit record",
			"request_id", requestID,
			"push_id", rec.ID,
			"error", err)
	}
}
