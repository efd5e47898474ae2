package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/orchestrator"
)

type errorResponse struct {
	Error *apperrors.StandardError `json:"error"`
}

type runErrorResponse struct {
	Error *apperrors.StandardError `json:"error"`
	Run   *orchestrator.RunOutcome `json:"run,omitempty"`
}

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperrors.NewInvalidInputError("request body too large"))
		} else {
			writeError(w, apperrors.NewInvalidInputError("invalid request body: "+err.Error()))
		}
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	stdErr := standardError(err)
	writeJSON(w, statusFor(stdErr.Code), errorResponse{Error: stdErr})
}

// writeRunError keeps the partial run next to the error so callers can see
// where the case stopped.
func writeRunError(w http.ResponseWriter, err error, out *orchestrator.RunOutcome) {
	stdErr := standardError(err)
	writeJSON(w, statusFor(stdErr.Code), runErrorResponse{Error: stdErr, Run: out})
}

func standardError(err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if !errors.As(err, &stdErr) {
		stdErr = &apperrors.StandardError{Code: apperrors.ErrCodeInternal, Message: "internal server error"}
	}
	return stdErr
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.ErrCodeCaseNotFound, apperrors.ErrCodeDocumentNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeReverificationBlocked:
		return http.StatusConflict
	case apperrors.ErrCodeCollaboratorTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeCollaboratorFailed, apperrors.ErrCodeCollaboratorUnavailable,
		apperrors.ErrCodeStageResultInvalid, apperrors.ErrCodeClassificationFailed:
		return http.StatusBadGateway
	case apperrors.ErrCodeDatabaseConnectionFailed, apperrors.ErrCodeCacheUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errNoDriver = errors.New("case runs are not configured")
