package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Constructors & matching
// ==========================

func TestNotFoundErrorsCarryAlternatives(t *testing.T) {
	caseErr := NewCaseNotFoundError("REQ-999", []string{"REQ-001", "REQ-002"})
	assert.Equal(t, ErrCodeCaseNotFound, caseErr.Code)
	assert.False(t, caseErr.Retryable)
	assert.Equal(t, []string{"REQ-001", "REQ-002"}, caseErr.Metadata["availableCaseIds"])

	docErr := NewDocumentNotFoundError("REQ-001", "DOC-404", []string{"DOC-001"})
	assert.Equal(t, []string{"DOC-001"}, docErr.Metadata["availableDocumentIds"])
	assert.Contains(t, docErr.Details, "DOC-404")
}

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("driver: %w", NewStepBudgetExceededError(41, 40))

	assert.True(t, stderrors.Is(err, ErrStepBudgetExceeded))
	assert.False(t, stderrors.Is(err, ErrStageResultInvalid))
	assert.Equal(t, ErrCodeStepBudgetExceeded, CodeOf(err))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("stage: %w", NewCollaboratorTimeoutError("EligibilityDecision"))
	assert.Equal(t, ErrCodeCollaboratorTimeout, Normalize(wrapped).Code)

	plain := Normalize(stderrors.New("kaboom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "kaboom", plain.Details)
}

// ==========================
// BPMN conversion
// ==========================

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"step budget escalates", NewStepBudgetExceededError(5, 4), "MANUAL_ESCALATION", 0},
		{"collaborator failure retries", NewCollaboratorFailedError("Execution", stderrors.New("502")), "COLLABORATOR_FAILED", 3},
		{"circuit open shares collaborator code", NewCollaboratorUnavailableError("Execution", stderrors.New("open")), "COLLABORATOR_FAILED", 2},
		{"identity ambiguous is business error", NewIdentityAmbiguousError("2 candidates"), "IDENTITY_AMBIGUOUS", 0},
		{"unknown code falls through", &StandardError{Code: "CUSTOM", Retryable: true}, "CUSTOM", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_PropagatesMetadata(t *testing.T) {
	bpmn := ConvertToBPMNError(NewCaseNotFoundError("x", []string{"REQ-001"}))
	vars := bpmn.ToErrorVariables()

	require.Contains(t, vars, "availableCaseIds")
	assert.Equal(t, "CASE_NOT_FOUND", vars["errorCode"])
	assert.Equal(t, false, vars["retryable"])
}

func TestRemainingRetries(t *testing.T) {
	assert.Equal(t, int32(2), RemainingRetries(3, 3))
	assert.Equal(t, int32(1), RemainingRetries(5, 1))
	assert.Equal(t, int32(0), RemainingRetries(0, 3))
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeCaseNotFound:           "LOOKUP",
		ErrCodeDocumentNotFound:       "LOOKUP",
		ErrCodeIdentityNotFound:       "IDENTITY",
		ErrCodeIdentityAmbiguous:      "IDENTITY",
		ErrCodeStepBudgetExceeded:     "WORKFLOW",
		ErrCodeRoutingIndeterminate:   "WORKFLOW",
		ErrCodeStageResultInvalid:     "COLLABORATOR",
		ErrCodeQueryExecutionFailed:   "DATABASE",
		ErrCodeSearchQueryFailed:      "SEARCH",
		ErrCodeNotificationSendFailed: "NOTIFICATION",
		ErrCodeInvalidInput:           "VALIDATION",
		ErrCodeInternal:               "OTHER",
	}
	for code, want := range tests {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, want, GetErrorCategory(code))
		})
	}
}
