package api

import (
	"errors"
	"net/http"

	"github.com/tessellary/casework-api/internal/api/shared"
	"github.com/tessellary/casework-api/internal/service"
)

// AnalyzeCaseRequest represents the request body for starting a case analysis.
// The field names follow the established integration contract with callers.
type AnalyzeCaseRequest struct {
	CaseNumber string `json:"ajbh" validate:"required,min=1"`
}

// AnalyzeCaseData is the data portion of the acceptance response.
type AnalyzeCaseData struct {
	CaseNumber string `json:"ajbh"`
	ResultURL  string `json:"jglj"`
}

// AnalyzeCaseResponse represents the acceptance response for a case analysis.
type AnalyzeCaseResponse struct {
	Msg  string          `json:"msg"`
	Data AnalyzeCaseData `json:"data"`
}

// AnalysisHandler handles case analysis HTTP requests
type AnalysisHandler struct {
	analysisService service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// AnalyzeCase handles POST /api/cases/analyze requests.
// The response is an acceptance: analysis runs asynchronously and the
// merged result reaches the caller's affiliation endpoint via push.
func (h *AnalysisHandler) AnalyzeCase(w http.ResponseWriter, r *http.Request) {
	callerID := shared.GetCallerID(r.Context())
	if callerID == "" {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing caller identity")
		return
	}

	var req AnalyzeCaseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	_, err := h.analysisService.StartAnalysis(r.Context(), callerID, req.CaseNumber)
	if err != nil {
		if errors.Is(err, service.ErrNoTranscripts) {
			shared.RespondWithError(w, r, http.StatusNotFound, "No transcripts found for case")
			return
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatus(err),
			"Failed to start case analysis", err)
		return
	}

	response := AnalyzeCaseResponse{
		Msg: "请求成功",
		Data: AnalyzeCaseData{
			CaseNumber: req.CaseNumber,
			ResultURL:  "",
		},
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, response)
}
