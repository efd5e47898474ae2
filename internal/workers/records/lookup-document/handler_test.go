// internal/workers/records/lookup-document/handler_test.go
package lookupdocument

import (
	"context"
	"testing"
	"time"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, cfg *Config) *Handler {
	t.Helper()
	repo, err := records.NewStaticRepository()
	require.NoError(t, err)
	log := logger.NewTestLogger(t)
	return NewHandler(cfg, records.NewStore(repo, log), log)
}

// ==========================
// Tests
// ==========================

func TestExecute_ResolvesDocumentWithContent(t *testing.T) {
	h := newTestHandler(t, &Config{Timeout: 5 * time.Second})

	out, err := h.Execute(context.Background(), &Input{CaseID: "REQ-001", DocumentID: "doc-001"})

	require.NoError(t, err)
	assert.True(t, out.Found)
	require.NotNil(t, out.Document)
	assert.Equal(t, "DOC-001", out.Document.DocumentID)
	assert.NotEmpty(t, out.Document.Content)
}

func TestExecute_DocumentNotInCase(t *testing.T) {
	h := newTestHandler(t, &Config{Timeout: 5 * time.Second})

	out, err := h.Execute(context.Background(), &Input{CaseID: "REQ-001", DocumentID: "DOC-003"})

	require.NoError(t, err)
	assert.False(t, out.Found)
	require.NotNil(t, out.NotFound)
	assert.Equal(t, models.KindDocumentNotFound, out.NotFound.Kind)
	assert.Equal(t, []string{"DOC-001", "DOC-002"}, out.NotFound.Alternatives)
}

func TestExecute_UnknownCaseShortCircuits(t *testing.T) {
	h := newTestHandler(t, &Config{Timeout: 5 * time.Second})

	out, err := h.Execute(context.Background(), &Input{CaseID: "REQ-404", DocumentID: "DOC-001"})

	require.NoError(t, err)
	require.NotNil(t, out.NotFound)
	assert.Equal(t, models.KindCaseNotFound, out.NotFound.Kind)
}

func TestExecute_FailOnMissing(t *testing.T) {
	h := newTestHandler(t, &Config{Timeout: 5 * time.Second, FailOnMissing: true})

	_, err := h.Execute(context.Background(), &Input{CaseID: "REQ-001", DocumentID: "DOC-999"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDocumentNotFound, apperrors.CodeOf(err))

	_, err = h.Execute(context.Background(), &Input{CaseID: "REQ-404", DocumentID: "DOC-001"})
	assert.Equal(t, apperrors.ErrCodeCaseNotFound, apperrors.CodeOf(err))
}

func TestExecute_MissingFields(t *testing.T) {
	h := newTestHandler(t, LoadConfig())

	_, err := h.Execute(context.Background(), &Input{})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
	assert.Contains(t, apperrors.Normalize(err).Details, "caseId")
}
