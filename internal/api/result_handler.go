package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tessellary/casework-api/internal/api/shared"
	"github.com/tessellary/casework-api/internal/service"
)

// TaskResultRequest represents the callback body delivered by the
// inference service when one transcript's analysis finishes.
type TaskResultRequest struct {
	TaskID          string  `json:"task_id"          validate:"required"`
	ContentPost     string  `json:"transcript_content_pp"`
	AnalysisResult  string  `json:"analysis_result"  validate:"required"`
	DurationSeconds float64 `json:"analysis_duration"`
}

// TaskResultResponse acknowledges receipt of a result callback.
type TaskResultResponse struct {
	Msg string `json:"msg"`
}

// ResultHandler handles inference result callbacks
type ResultHandler struct {
	resultService service.ResultService
}

// NewResultHandler creates a new ResultHandler
func NewResultHandler(resultService service.ResultService) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
	}
}

// ReceiveResult handles POST /api/cases/result requests.
// The callback is acknowledged as soon as it is queued; recording the
// result and any completion work happen on the worker pool so the
// inference service never waits on a merge or a downstream push.
func (h *ResultHandler) ReceiveResult(w http.ResponseWriter, r *http.Request) {
	var req TaskResultRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	err = h.resultService.AcceptResult(
		r.Context(), taskID, req.ContentPost, req.AnalysisResult, req.DurationSeconds)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatus(err),
			"Failed to accept analysis result", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResultResponse{Msg: "success"})
}
