package inference

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
)

// DefaultTimeout bounds one submission round-trip.
const DefaultTimeout = 30 * time.Second

// Common construction errors
var (
	ErrEmptyEndpoint = errors.New("inference endpoint cannot be empty")
	ErrNilLogger     = errors.New("logger cannot be nil")
)

// HTTPClient implements Client against the service's HTTP endpoint.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates an HTTPClient for the given endpoint. A
// non-positive timeout falls back to DefaultTimeout.
func NewHTTPClient(endpoint string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "inference_client"),
	}, nil
}

var _ Client = (*HTTPClient)(nil)

// Submit implements Client. A timeout, transport error, or non-2xx
// response is wrapped in ErrSubmitFailed.
func (c *HTTPClient) Submit(ctx context.Context, sub Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("%w: failed to encode submission for task %s: %v", ErrSubmitFailed, sub.TaskID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to build request for task %s: %v", ErrSubmitFailed, sub.TaskID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: task %s: %v", ErrSubmitFailed, sub.TaskID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: task %s: unexpected status %d", ErrSubmitFailed, sub.TaskID, resp.StatusCode)
	}

	c.logger.Debug("submission accepted", "task_id", sub.TaskID)
	return nil
}
