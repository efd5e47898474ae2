package routing

import (
	"fmt"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/models"
)

type reviewKind int

const (
	reviewNone reviewKind = iota
	reviewIdentity
	reviewClarification
	reviewFinalDecision
)

// AdjudicationBegun reports whether an eligibility decision exists since the
// latest Reopen marker.
func AdjudicationBegun(h models.History) bool {
	return h.SinceLast(models.StageReopen).Contains(models.StageEligibilityDecision)
}

// CanReopen reports whether a Reopen marker may be appended to h.
func CanReopen(h models.History) error {
	if h.Contains(models.StageExecution) {
		return apperrors.NewReverificationBlockedError("case already executed")
	}
	if !h.Contains(models.StageIntake) {
		return apperrors.NewInvalidInputError("case has not been started")
	}
	return nil
}

// reviewContext finds what the latest human review is answering by walking
// back past review rounds and document call/returns.
func reviewContext(h models.History) reviewKind {
	for i := len(h) - 2; i >= 0; i-- {
		e := h[i]
		switch e.Stage {
		case models.StageHumanReview, models.StageDocumentProcessing:
			continue
		case models.StageIdentityVerification:
			if e.Outcome() != models.OutcomeApproved {
				return reviewIdentity
			}
			return reviewNone
		case models.StageEligibilityDecision:
			if e.Outcome().IsFinal() {
				return reviewFinalDecision
			}
			return reviewClarification
		case models.StageQualityReview:
			return reviewFinalDecision
		default:
			return reviewNone
		}
	}
	return reviewNone
}

func identityBlockReason(h models.History) string {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Stage == models.StageIdentityVerification {
			if h[i].Outcome() == models.OutcomeNeedsInfo {
				return string(apperrors.ErrCodeIdentityAmbiguous)
			}
			return string(apperrors.ErrCodeIdentityNotFound)
		}
	}
	return string(apperrors.ErrCodeIdentityNotFound)
}

func documentRequest(e models.Event) *models.DocumentRequest {
	if e.Stage == models.StageDocumentProcessing || e.Stage.IsMarker() || e.Result == nil {
		return nil
	}
	if req := e.Result.DocumentRequest; req != nil && len(req.DocumentIDs) > 0 {
		return req
	}
	return nil
}

// documentRequester finds the stage whose document request the trailing
// DocumentProcessing event answered.
func documentRequester(h models.History) (models.Stage, bool) {
	for i := len(h) - 2; i >= 0; i-- {
		if h[i].Stage == models.StageDocumentProcessing {
			continue
		}
		if documentRequest(h[i]) != nil {
			return h[i].Stage, true
		}
		return "", false
	}
	return "", false
}

func overrideOf(resp *models.HumanResponse) map[string]interface{} {
	if resp == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{
		"note": resp.Note,
		"text": resp.Text,
	}
}

func requestContext(h models.History, extra map[string]interface{}) map[string]interface{} {
	ctx := map[string]interface{}{}
	if snapshot := h.CaseSnapshot(); snapshot != nil {
		ctx["case"] = snapshot
	}
	if last, ok := h.Last(); ok && last.Result != nil {
		ctx["previousStage"] = string(last.Stage)
		ctx["previousOutcome"] = string(last.Result.Outcome)
		if last.Result.Summary != "" {
			ctx["previousSummary"] = last.Result.Summary
		}
	}
	for k, v := range extra {
		ctx[k] = v
	}
	return ctx
}

func instructionsFor(next models.Stage, rule int) string {
	switch next {
	case models.StageIdentityVerification:
		return "Verify the requestor against the system of record using SSN last-4, full name and address."
	case models.StageDocumentProcessing:
		return "Retrieve the requested documents and summarize their content."
	case models.StageEligibilityDecision:
		if rule == RuleDecisionCorrected {
			return "Re-evaluate eligibility applying the reviewer's correction in the override context."
		}
		return "Decide eligibility for the requested benefit from the verified identity and document evidence."
	case models.StageQualityReview:
		return "Review the eligibility decision for policy compliance and completeness."
	case models.StageHumanReview:
		switch rule {
		case RuleIdentityBlocked:
			return "Identity could not be verified. Ask the reviewer for additional identifying information."
		case RuleDecisionPending:
			return "Ask the reviewer to resolve the open questions before a decision is made."
		default:
			return "Present the final decision to the reviewer for confirmation or correction."
		}
	case models.StageExecution:
		return "Execute the confirmed decision and prepare the requestor notification."
	}
	return fmt.Sprintf("Continue with %s.", next)
}
