package routing

import (
	"errors"
	"math/rand"
	"testing"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestRouter(t *testing.T, maxSteps, maxAttempts int) *Router {
	t.Helper()
	return New(Options{MaxSteps: maxSteps, MaxIdentityAttempts: maxAttempts}, logger.NewTestLogger(t))
}

func intake() models.Event {
	return models.Event{
		Stage: models.StageIntake,
		Result: &models.StageResult{
			Stage:   models.StageIntake,
			Outcome: models.OutcomeApproved,
			Payload: map[string]interface{}{"requestId": "REQ-001"},
		},
	}
}

func stage(s models.Stage, o models.Outcome) models.Event {
	return models.Event{Stage: s, Result: &models.StageResult{Stage: s, Outcome: o}}
}

func review(kind models.ResponseKind) models.Event {
	e := stage(models.StageHumanReview, models.OutcomeApproved)
	e.Result.HumanResponse = &models.HumanResponse{Kind: kind, Note: "reviewer note"}
	return e
}

func withDocs(e models.Event, ids ...string) models.Event {
	e.Result.DocumentRequest = &models.DocumentRequest{DocumentIDs: ids}
	return e
}

func hist(events ...models.Event) models.History {
	for i := range events {
		events[i].Seq = i
	}
	return models.History(events)
}

var (
	ivOK   = func() models.Event { return stage(models.StageIdentityVerification, models.OutcomeApproved) }
	ivFail = func() models.Event { return stage(models.StageIdentityVerification, models.OutcomeDeclined) }
	edOK   = func() models.Event { return stage(models.StageEligibilityDecision, models.OutcomeApproved) }
	qr     = func() models.Event { return stage(models.StageQualityReview, models.OutcomeApproved) }
)

// ==========================
// Transition table
// ==========================

func TestRoute_TransitionTable(t *testing.T) {
	tests := []struct {
		name     string
		history  models.History
		wantNext models.Stage
		wantRule int
	}{
		{"new case", hist(intake()), models.StageIdentityVerification, RuleStart},
		{"identity verified", hist(intake(), ivOK()), models.StageEligibilityDecision, RuleIdentityVerified},
		{"identity not found", hist(intake(), ivFail()), models.StageHumanReview, RuleIdentityBlocked},
		{"decision approved", hist(intake(), ivOK(), edOK()), models.StageQualityReview, RuleDecisionMade},
		{"decision declined", hist(intake(), ivOK(), stage(models.StageEligibilityDecision, models.OutcomeDeclined)), models.StageQualityReview, RuleDecisionMade},
		{"decision pending", hist(intake(), ivOK(), stage(models.StageEligibilityDecision, models.OutcomePending)), models.StageHumanReview, RuleDecisionPending},
		{"quality reviewed", hist(intake(), ivOK(), edOK(), qr()), models.StageHumanReview, RuleQualityReviewed},
		{"identity review retries", hist(intake(), ivFail(), review(models.ResponseCorrect)), models.StageIdentityVerification, RuleIdentityReviewed},
		{"clarification answered", hist(intake(), ivOK(), stage(models.StageEligibilityDecision, models.OutcomeNeedsInfo), review(models.ResponseAgree)), models.StageEligibilityDecision, RuleClarified},
		{"final corrected", hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseCorrect)), models.StageEligibilityDecision, RuleDecisionCorrected},
		{"final unclear", hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseClarify)), models.StageHumanReview, RuleDecisionUnclear},
		{"final confirmed", hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseAgree)), models.StageExecution, RuleDecisionConfirmed},
		{"confirmed after clarify round", hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseClarify), review(models.ResponseAgree)), models.StageExecution, RuleDecisionConfirmed},
		{"executed", hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseAgree), stage(models.StageExecution, models.OutcomeApproved)), models.StageDone, RuleExecutionDone},
		{"reopen after decision", hist(intake(), ivOK(), stage(models.StageEligibilityDecision, models.OutcomePending), models.Event{Stage: models.StageReopen}), models.StageIdentityVerification, RuleReopened},
		{"reopen after execution ignored", hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseAgree), stage(models.StageExecution, models.OutcomeApproved), models.Event{Stage: models.StageReopen}), models.StageDone, RuleExecuted},
		{"documents requested", hist(intake(), ivOK(), withDocs(edOK(), "DOC-001")), models.StageDocumentProcessing, RuleDocumentRequest},
		{"documents returned", hist(intake(), ivOK(), withDocs(edOK(), "DOC-001"), stage(models.StageDocumentProcessing, models.OutcomeApproved)), models.StageEligibilityDecision, RuleDocumentReturn},
		{"documents for identity", hist(intake(), withDocs(ivFail(), "DOC-002"), stage(models.StageDocumentProcessing, models.OutcomeApproved)), models.StageIdentityVerification, RuleDocumentReturn},
		{"empty history", hist(), models.StageIdentityVerification, RuleIndeterminate},
		{"orphan document result before adjudication", hist(intake(), stage(models.StageDocumentProcessing, models.OutcomeApproved)), models.StageIdentityVerification, RuleIndeterminate},
		{"review without question after adjudication", hist(intake(), ivOK(), edOK(), ivOK(), review(models.ResponseAgree)), models.StageEligibilityDecision, RuleIndeterminate},
		{"review without question after reopen", hist(intake(), ivOK(), edOK(), models.Event{Stage: models.StageReopen}, review(models.ResponseAgree)), models.StageIdentityVerification, RuleIndeterminate},
	}

	r := newTestRouter(t, 40, 3)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Route(tt.history)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNext, d.Next)
			assert.Equal(t, tt.wantRule, d.Rule)
			assert.Equal(t, tt.wantRule == RuleIndeterminate, d.Anomaly)
		})
	}
}

func TestRoute_DocumentRequestCarriesReturnTarget(t *testing.T) {
	d, err := newTestRouter(t, 40, 3).Route(hist(intake(), ivOK(), edOK(), withDocs(qr(), "DOC-001", "DOC-002")))
	require.NoError(t, err)

	assert.Equal(t, models.StageDocumentProcessing, d.Next)
	assert.Equal(t, models.StageQualityReview, d.ReturnTo)
	assert.Equal(t, []string{"DOC-001", "DOC-002"}, d.DocumentIDs)
}

func TestRoute_IdentityBlockReason(t *testing.T) {
	r := newTestRouter(t, 40, 3)

	d, err := r.Route(hist(intake(), stage(models.StageIdentityVerification, models.OutcomeNeedsInfo)))
	require.NoError(t, err)
	assert.True(t, d.Blocked)
	assert.Equal(t, string(apperrors.ErrCodeIdentityAmbiguous), d.BlockReason)

	d, err = r.Route(hist(intake(), ivFail()))
	require.NoError(t, err)
	assert.Equal(t, string(apperrors.ErrCodeIdentityNotFound), d.BlockReason)
}

func TestRoute_IdentityAttemptsExhaustedEscalates(t *testing.T) {
	r := newTestRouter(t, 40, 2)

	d, err := r.Route(hist(intake(), ivFail(), review(models.ResponseCorrect), ivFail(), review(models.ResponseCorrect)))
	require.NoError(t, err)
	assert.Equal(t, models.StageDone, d.Next)
	assert.Equal(t, RuleIdentityReviewed, d.Rule)
	assert.True(t, d.Escalate)
	assert.Equal(t, string(apperrors.ErrCodeIdentityNotFound), d.ErrorCode)
}

func TestRoute_ReviewerAgreeingWithBlockEscalates(t *testing.T) {
	d, err := newTestRouter(t, 40, 3).Route(hist(intake(), ivFail(), review(models.ResponseAgree)))
	require.NoError(t, err)
	assert.True(t, d.Terminal())
	assert.True(t, d.Escalate)
}

func TestRoute_CorrectionCarriesOverride(t *testing.T) {
	d, err := newTestRouter(t, 40, 3).Route(hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseCorrect)))
	require.NoError(t, err)

	override, ok := d.RequestContext["override"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "reviewer note", override["note"])
	assert.Equal(t, map[string]interface{}{"requestId": "REQ-001"}, d.RequestContext["case"])
}

func TestRoute_AmbiguousResponsePrefersCorrect(t *testing.T) {
	e := review(models.ResponseAgree)
	e.Result.HumanResponse.Candidates = []models.ResponseKind{models.ResponseAgree, models.ResponseClarify, models.ResponseCorrect}

	d, err := newTestRouter(t, 40, 3).Route(hist(intake(), ivOK(), edOK(), qr(), e))
	require.NoError(t, err)
	assert.Equal(t, models.StageEligibilityDecision, d.Next)
}

// ==========================
// Step budget
// ==========================

func TestRoute_StepBudget(t *testing.T) {
	r := newTestRouter(t, 4, 3)

	d, err := r.Route(hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseAgree)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStepBudgetExceeded))
	assert.Equal(t, models.StageDone, d.Next)
	assert.Equal(t, RuleStepBudget, d.Rule)
	assert.True(t, d.Escalate)
}

func TestRoute_StepBudgetAllowsTerminationAtLimit(t *testing.T) {
	r := newTestRouter(t, 5, 3)

	d, err := r.Route(hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseAgree), stage(models.StageExecution, models.OutcomeApproved)))
	require.NoError(t, err)
	assert.Equal(t, RuleExecutionDone, d.Rule)
}

func TestRoute_OverBudgetRegardlessOfContent(t *testing.T) {
	r := newTestRouter(t, 3, 3)
	h := hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseAgree), stage(models.StageExecution, models.OutcomeApproved))

	_, err := r.Route(h)
	assert.Equal(t, apperrors.ErrCodeStepBudgetExceeded, apperrors.CodeOf(err))
}

// ==========================
// Reopen
// ==========================

func TestCanReopen(t *testing.T) {
	assert.NoError(t, CanReopen(hist(intake(), ivOK(), edOK())))
	assert.Error(t, CanReopen(hist()))

	err := CanReopen(hist(intake(), ivOK(), edOK(), qr(), review(models.ResponseAgree), stage(models.StageExecution, models.OutcomeApproved)))
	assert.Equal(t, apperrors.ErrCodeReverificationBlocked, apperrors.CodeOf(err))
}

// ==========================
// Properties over simulated runs
// ==========================

func randomResult(rng *rand.Rand, s models.Stage) *models.StageResult {
	outcomes := []models.Outcome{models.OutcomeApproved, models.OutcomeDeclined, models.OutcomePending, models.OutcomeNeedsInfo}
	res := &models.StageResult{Stage: s, Outcome: outcomes[rng.Intn(len(outcomes))]}
	if s != models.StageDocumentProcessing && rng.Intn(10) == 0 {
		res.DocumentRequest = &models.DocumentRequest{DocumentIDs: []string{"DOC-001"}}
	}
	if s == models.StageHumanReview {
		kinds := []models.ResponseKind{models.ResponseAgree, models.ResponseCorrect, models.ResponseClarify}
		res.HumanResponse = &models.HumanResponse{Kind: kinds[rng.Intn(len(kinds))]}
	}
	return res
}

func TestRoute_SimulatedRunsHoldInvariants(t *testing.T) {
	const maxSteps = 40
	r := New(Options{MaxSteps: maxSteps, MaxIdentityAttempts: 3}, logger.NewNoOpLogger())
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 300; run++ {
		h := hist(intake())
		terminated := false

		for i := 0; i <= maxSteps+1; i++ {
			d, _ := r.Route(h)
			require.False(t, d.Anomaly, "run %d: anomaly at %v", run, d)

			if d.Terminal() {
				terminated = true
				break
			}

			switch d.Next {
			case models.StageIdentityVerification:
				assert.False(t, h.Contains(models.StageEligibilityDecision), "run %d: re-verification after adjudication", run)
				assert.False(t, h.Contains(models.StageExecution))
			case models.StageEligibilityDecision:
				verified := false
				for _, e := range h {
					if e.Stage == models.StageIdentityVerification && e.Outcome() == models.OutcomeApproved {
						verified = true
					}
				}
				assert.True(t, verified, "run %d: eligibility without verified identity", run)
			case models.StageExecution:
				assert.False(t, h.Contains(models.StageExecution), "run %d: second execution", run)
			}

			h = append(h, models.Event{Seq: len(h), Stage: d.Next, Result: randomResult(rng, d.Next)})
		}

		require.True(t, terminated, "run %d did not terminate", run)
		assert.LessOrEqual(t, h.StageCount(), maxSteps)
	}
}
