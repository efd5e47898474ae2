// internal/workers/workflow/invoke-stage/handler_test.go
package invokestage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"benefit-orchestrator/internal/collaborator"
	apperrors "benefit-orchestrator/internal/common/errors"
	commonhttp "benefit-orchestrator/internal/common/http"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T, handler http.HandlerFunc, maxRetries int) *Handler {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewTestLogger(t)
	transport := commonhttp.NewClient(commonhttp.Options{
		Timeout:        2 * time.Second,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
	}, log)
	collab := collaborator.NewHTTPCollaborator(transport, server.URL, "", log)
	return NewHandler(&Config{Timeout: 5 * time.Second}, collab, log)
}

func writeResult(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// ==========================
// Tests
// ==========================

func TestExecute_InvokesCollaborator(t *testing.T) {
	var got collaborator.StageRequest
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stages/QualityReview/invoke", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeResult(w, `{"stage":"QualityReview","outcome":"Approved","summary":"decision sound"}`)
	}, 0)

	out, err := h.Execute(context.Background(), &Input{
		CaseID:       "REQ-002",
		Stage:        "QualityReview",
		Context:      map[string]interface{}{"previousStage": "EligibilityDecision"},
		Instructions: "review the decision",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StageQualityReview, out.Stage)
	assert.Equal(t, models.OutcomeApproved, out.Outcome)
	assert.Equal(t, "decision sound", out.Result.Summary)
	assert.Equal(t, "REQ-002", got.CaseID)
	assert.Equal(t, "EligibilityDecision", got.Context["previousStage"])
}

func TestExecute_RejectsNonCollaboratorStages(t *testing.T) {
	var calls int32
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, 0)

	for _, stage := range []string{"IdentityVerification", "DocumentProcessing", "Done", "Bogus"} {
		_, err := h.Execute(context.Background(), &Input{CaseID: "REQ-001", Stage: stage})
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err), stage)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestExecute_RequiresCaseID(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {}, 0)

	_, err := h.Execute(context.Background(), &Input{Stage: "Execution"})

	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestExecute_InvalidResultIsNotRetryable(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, `{"stage":"Execution","outcome":"Maybe"}`)
	}, 0)

	_, err := h.Execute(context.Background(), &Input{CaseID: "REQ-001", Stage: "Execution"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStageResultInvalid, apperrors.CodeOf(err))
	assert.False(t, apperrors.Normalize(err).Retryable)
}

func TestExecute_ServerErrorIsRetryable(t *testing.T) {
	var calls int32
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, 1)

	_, err := h.Execute(context.Background(), &Input{CaseID: "REQ-001", Stage: "EligibilityDecision"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeCollaboratorFailed, apperrors.CodeOf(err))
	assert.True(t, apperrors.Normalize(err).Retryable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
