// Package routing decides the next workflow stage from a case history.
//
// Route is pure: the decision depends only on the history and the Router's
// limits. Rules are evaluated in a fixed order and the first match wins; the
// matching rule number is reported on the decision.
package routing

import (
	"fmt"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/common/metrics"
	"benefit-orchestrator/internal/models"
)

// Rule numbers of the transition table.
const (
	RuleStepBudget        = 0
	RuleExecuted          = 1
	RuleStart             = 2
	RuleDocumentRequest   = 3
	RuleDocumentReturn    = 4
	RuleReopened          = 5
	RuleIdentityVerified  = 6
	RuleIdentityBlocked   = 7
	RuleDecisionMade      = 8
	RuleDecisionPending   = 9
	RuleQualityReviewed   = 10
	RuleIdentityReviewed  = 11
	RuleClarified         = 12
	RuleDecisionCorrected = 13
	RuleDecisionUnclear   = 14
	RuleDecisionConfirmed = 15
	RuleExecutionDone     = 16
	RuleIndeterminate     = 17
)

type Options struct {
	MaxSteps            int
	MaxIdentityAttempts int
}

// Router is safe for concurrent use.
type Router struct {
	opts Options
	log  logger.Logger
}

func New(opts Options, log logger.Logger) *Router {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 40
	}
	if opts.MaxIdentityAttempts <= 0 {
		opts.MaxIdentityAttempts = 3
	}
	return &Router{
		opts: opts,
		log:  log.WithFields(map[string]interface{}{"component": "router"}),
	}
}

// Route returns the next stage for h. The error is non-nil only when the step
// budget is exhausted; the decision then terminates the case and escalates.
func (r *Router) Route(h models.History) (models.RoutingDecision, error) {
	steps := h.StageCount()
	if steps > r.opts.MaxSteps {
		return r.budgetExceeded(steps)
	}

	d := r.decide(h)
	if !d.Terminal() && steps >= r.opts.MaxSteps {
		return r.budgetExceeded(steps)
	}

	if !d.Terminal() {
		d.RequestContext = requestContext(h, d.RequestContext)
	}

	from := "none"
	if last, ok := h.Last(); ok {
		from = string(last.Stage)
	}
	metrics.StageTransitions.WithLabelValues(from, string(d.Next)).Inc()

	r.log.Debug("route decided", map[string]interface{}{
		"from":  from,
		"next":  d.Next,
		"rule":  d.Rule,
		"steps": steps,
	})
	return d, nil
}

func (r *Router) budgetExceeded(steps int) (models.RoutingDecision, error) {
	err := apperrors.NewStepBudgetExceededError(steps, r.opts.MaxSteps)
	r.log.Warn("step budget exceeded", map[string]interface{}{"steps": steps, "maxSteps": r.opts.MaxSteps})
	return models.RoutingDecision{
		Next:      models.StageDone,
		Rule:      RuleStepBudget,
		Escalate:  true,
		ErrorCode: string(apperrors.ErrCodeStepBudgetExceeded),
		Summary:   fmt.Sprintf("Stopped after %d stages; manual handling required", steps),
	}, err
}

func (r *Router) decide(h models.History) models.RoutingDecision {
	last, ok := h.Last()
	if !ok {
		return r.indeterminate(h, "empty history")
	}

	if h.Contains(models.StageExecution) {
		rule := RuleExecuted
		if last.Stage == models.StageExecution {
			rule = RuleExecutionDone
		}
		return models.RoutingDecision{Next: models.StageDone, Rule: rule, Summary: "Benefit decision executed"}
	}

	if h.StageCount() == 0 && last.Stage == models.StageIntake {
		return to(models.StageIdentityVerification, RuleStart, "New case; verifying requestor identity")
	}

	if req := documentRequest(last); req != nil {
		d := to(models.StageDocumentProcessing, RuleDocumentRequest,
			fmt.Sprintf("%s requested %d document(s)", last.Stage, len(req.DocumentIDs)))
		d.ReturnTo = last.Stage
		d.DocumentIDs = append([]string(nil), req.DocumentIDs...)
		return d
	}

	switch last.Stage {
	case models.StageDocumentProcessing:
		requester, found := documentRequester(h)
		if !found {
			return r.indeterminate(h, "document result without a requester")
		}
		if requester == models.StageIdentityVerification && AdjudicationBegun(h) {
			return r.indeterminate(h, "document return would re-verify identity after adjudication")
		}
		return to(requester, RuleDocumentReturn, fmt.Sprintf("Documents processed; returning to %s", requester))

	case models.StageReopen:
		return to(models.StageIdentityVerification, RuleReopened, "Case reopened; verifying requestor identity again")

	case models.StageIdentityVerification:
		if last.Outcome() == models.OutcomeApproved {
			return to(models.StageEligibilityDecision, RuleIdentityVerified, "Identity verified; deciding eligibility")
		}
		reason := apperrors.ErrCodeIdentityNotFound
		if last.Outcome() == models.OutcomeNeedsInfo {
			reason = apperrors.ErrCodeIdentityAmbiguous
		}
		d := to(models.StageHumanReview, RuleIdentityBlocked, "Identity could not be verified; human review required")
		d.Blocked = true
		d.BlockReason = string(reason)
		return d

	case models.StageEligibilityDecision:
		switch last.Outcome() {
		case models.OutcomeApproved, models.OutcomeDeclined:
			return to(models.StageQualityReview, RuleDecisionMade,
				fmt.Sprintf("Eligibility %s; quality review", last.Outcome()))
		case models.OutcomePending, models.OutcomeNeedsInfo:
			return to(models.StageHumanReview, RuleDecisionPending, "Eligibility needs clarification from a reviewer")
		}

	case models.StageQualityReview:
		return to(models.StageHumanReview, RuleQualityReviewed, "Quality review complete; final human review")

	case models.StageHumanReview:
		return r.afterHumanReview(h, last)
	}

	return r.indeterminate(h, fmt.Sprintf("no rule for %s/%s", last.Stage, last.Outcome()))
}

func (r *Router) afterHumanReview(h models.History, last models.Event) models.RoutingDecision {
	var resp *models.HumanResponse
	if last.Result != nil {
		resp = last.Result.HumanResponse
	}
	kind := resp.Resolve()

	switch reviewContext(h) {
	case reviewIdentity:
		blocked := identityBlockReason(h)
		attempts := h.SinceLast(models.StageReopen).Count(models.StageIdentityVerification)
		if kind == models.ResponseAgree || attempts >= r.opts.MaxIdentityAttempts {
			return models.RoutingDecision{
				Next:      models.StageDone,
				Rule:      RuleIdentityReviewed,
				Escalate:  true,
				Blocked:   true,
				ErrorCode: blocked,
				Summary:   fmt.Sprintf("Identity unresolved after %d attempt(s); escalating", attempts),
			}
		}
		return to(models.StageIdentityVerification, RuleIdentityReviewed, "Reviewer supplied details; retrying identity verification")

	case reviewClarification:
		return to(models.StageEligibilityDecision, RuleClarified, "Clarification received; re-deciding eligibility")

	case reviewFinalDecision:
		switch kind {
		case models.ResponseCorrect:
			d := to(models.StageEligibilityDecision, RuleDecisionCorrected, "Reviewer corrected the decision; re-deciding eligibility")
			d.RequestContext = map[string]interface{}{"override": overrideOf(resp)}
			return d
		case models.ResponseClarify:
			return to(models.StageHumanReview, RuleDecisionUnclear, "Reviewer asked for clarification; decision unchanged")
		default:
			return to(models.StageExecution, RuleDecisionConfirmed, "Reviewer confirmed the decision; executing")
		}
	}

	return r.indeterminate(h, "human review without a pending question")
}

// indeterminate logs the anomaly and falls back to identity verification
// before adjudication, eligibility decision after.
func (r *Router) indeterminate(h models.History, reason string) models.RoutingDecision {
	lastStage := "none"
	if last, ok := h.Last(); ok {
		lastStage = string(last.Stage)
	}
	metrics.RoutingAnomalies.WithLabelValues(lastStage).Inc()
	r.log.Warn("routing indeterminate", map[string]interface{}{
		"reason":    reason,
		"lastStage": lastStage,
		"events":    len(h),
	})

	next := models.StageIdentityVerification
	if AdjudicationBegun(h) {
		next = models.StageEligibilityDecision
	}
	d := to(next, RuleIndeterminate, "Unexpected history; resuming at "+string(next))
	d.Anomaly = true
	d.ErrorCode = string(apperrors.ErrCodeRoutingIndeterminate)
	return d
}

func to(next models.Stage, rule int, summary string) models.RoutingDecision {
	return models.RoutingDecision{
		Next:         next,
		Rule:         rule,
		Summary:      summary,
		Instructions: instructionsFor(next, rule),
	}
}
