package api

import (
	"errors"
	"net/http"

	"github.com/tessellary/casework-api/internal/service"
	"github.com/tessellary/casework-api/internal/store"
	"github.com/tessellary/casework-api/internal/task"
)

// MapErrorToStatus maps service and store errors to HTTP status codes.
// Unknown errors map to 500.
func MapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNoTranscripts):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCaseLookupFailed):
		return http.StatusBadGateway
	case errors.Is(err, task.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
