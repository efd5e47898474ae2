// internal/workers/workflow/route-next-stage/handler_test.go
package routenextstage

import (
	"context"
	"testing"
	"time"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T, cfg *Config, maxSteps int) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	return NewHandler(cfg, routing.New(routing.Options{MaxSteps: maxSteps}, log), log)
}

func event(seq int, s models.Stage, o models.Outcome) models.Event {
	return models.Event{Seq: seq, Stage: s, Result: &models.StageResult{Stage: s, Outcome: o}}
}

func approvedThrough(stages ...models.Stage) models.History {
	h := models.History{event(1, models.StageIntake, models.OutcomeApproved)}
	for i, s := range stages {
		h = append(h, event(i+2, s, models.OutcomeApproved))
	}
	return h
}

// ==========================
// Tests
// ==========================

func TestExecute_IntakeGoesToIdentityVerification(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), 40)

	out, err := h.Execute(context.Background(), &Input{CaseID: "REQ-001", History: approvedThrough()})

	require.NoError(t, err)
	assert.Equal(t, models.StageIdentityVerification, out.NextStage)
	assert.Equal(t, routing.RuleStart, out.Rule)
	assert.False(t, out.Terminal)
	assert.NotEmpty(t, out.Decision.Instructions)
}

func TestExecute_ExecutionEndsTheCase(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), 40)

	history := approvedThrough(
		models.StageIdentityVerification,
		models.StageEligibilityDecision,
		models.StageQualityReview,
		models.StageExecution,
	)
	out, err := h.Execute(context.Background(), &Input{History: history})

	require.NoError(t, err)
	assert.Equal(t, models.StageDone, out.NextStage)
	assert.True(t, out.Terminal)
	assert.False(t, out.Escalate)
}

func TestExecute_BudgetExhaustedThrows(t *testing.T) {
	h := newTestHandler(t, &Config{Timeout: time.Second, EscalateAsError: true}, 2)

	history := approvedThrough(models.StageIdentityVerification, models.StageEligibilityDecision)
	_, err := h.Execute(context.Background(), &Input{History: history})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStepBudgetExceeded, apperrors.CodeOf(err))
}

func TestExecute_BudgetExhaustedCompletesWhenConfigured(t *testing.T) {
	h := newTestHandler(t, &Config{Timeout: time.Second}, 2)

	history := approvedThrough(models.StageIdentityVerification, models.StageEligibilityDecision)
	out, err := h.Execute(context.Background(), &Input{History: history})

	require.NoError(t, err)
	assert.True(t, out.Terminal)
	assert.True(t, out.Escalate)
	assert.Equal(t, routing.RuleStepBudget, out.Rule)
	assert.Equal(t, string(apperrors.ErrCodeStepBudgetExceeded), out.Decision.ErrorCode)
}

func TestExecute_CancelledContext(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), 40)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Execute(ctx, &Input{History: approvedThrough()})

	assert.ErrorIs(t, err, context.Canceled)
}
