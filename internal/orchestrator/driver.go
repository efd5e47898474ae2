// Package orchestrator drives a case through the workflow. Each iteration asks
// the router for the next stage, runs it, and appends the result to the case
// history until the router terminates the case.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"benefit-orchestrator/internal/collaborator"
	"benefit-orchestrator/internal/common/config"
	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/common/metrics"
	"benefit-orchestrator/internal/common/observability"
	"benefit-orchestrator/internal/identity"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/notification"
	"benefit-orchestrator/internal/records"
	"benefit-orchestrator/internal/routing"

	"github.com/google/uuid"
)

type Options struct {
	MaxSteps         int
	StageTimeout     time.Duration
	StageRetries     int
	RetryBackoff     time.Duration
	BatchParallelism int
}

func OptionsFromConfig(cfg config.WorkflowConfig) Options {
	return Options{
		MaxSteps:         cfg.MaxSteps,
		StageTimeout:     config.GetDuration(cfg.StageTimeout),
		StageRetries:     cfg.StageRetries,
		RetryBackoff:     config.GetDuration(cfg.RetryBackoff),
		BatchParallelism: cfg.BatchParallelism,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = 40
	}
	if o.StageTimeout <= 0 {
		o.StageTimeout = 60 * time.Second
	}
	if o.StageRetries < 0 {
		o.StageRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.BatchParallelism <= 0 {
		o.BatchParallelism = 4
	}
	return o
}

// Dependencies are the collaborators of a Driver. Notifier, Classifier,
// Observability and Sinks are optional.
type Dependencies struct {
	Store         *records.Store
	Matcher       *identity.Matcher
	Router        *routing.Router
	Collaborator  collaborator.Collaborator
	Classifier    collaborator.ResponseClassifier
	Notifier      *notification.Notifier
	Sinks         []HistorySink
	Observability *observability.Observability
}

type RunStatus string

const (
	RunCompleted    RunStatus = "completed"
	RunEscalated    RunStatus = "escalated"
	RunCaseNotFound RunStatus = "case_not_found"
	RunFailed       RunStatus = "failed"
)

// RunOutcome is the final state of one driver run.
type RunOutcome struct {
	RunID         string                  `json:"runId"`
	CaseID        string                  `json:"caseId"`
	Status        RunStatus               `json:"status"`
	Steps         int                     `json:"steps"`
	Decision      *models.RoutingDecision `json:"decision,omitempty"`
	ErrorCode     string                  `json:"errorCode,omitempty"`
	NotFound      *models.NotFound        `json:"notFound,omitempty"`
	History       models.History          `json:"history,omitempty"`
	Notifications []models.Notification   `json:"notifications,omitempty"`
}

// Driver is safe for concurrent use across cases. A single case is always
// processed sequentially.
type Driver struct {
	opts Options
	deps Dependencies
	log  logger.Logger
	now  func() time.Time
}

func NewDriver(opts Options, deps Dependencies, log logger.Logger) *Driver {
	return &Driver{
		opts: opts.withDefaults(),
		deps: deps,
		log:  log.WithFields(map[string]interface{}{"component": "driver"}),
		now:  time.Now,
	}
}

type run struct {
	id      string
	c       *models.Case
	history models.History
}

// Run processes caseID from intake to termination. An unknown case is not an
// error: the outcome carries the valid case ids. The error is non-nil when a
// stage fails after its retry budget or a repository is unreachable.
func (d *Driver) Run(ctx context.Context, caseID string) (*RunOutcome, error) {
	ctx, span := observability.StartCaseSpan(ctx, caseID, d.opts.MaxSteps)
	out, err := d.start(ctx, caseID)
	observability.EndSpan(span, err)
	return out, err
}

func (d *Driver) start(ctx context.Context, caseID string) (*RunOutcome, error) {
	c, notFound, err := d.deps.Store.LookupCase(ctx, caseID)
	if err != nil {
		metrics.CaseRuns.WithLabelValues(string(RunFailed)).Inc()
		return nil, err
	}
	if notFound != nil {
		metrics.CaseRuns.WithLabelValues(string(RunCaseNotFound)).Inc()
		d.log.Warn("case not found", map[string]interface{}{
			"caseId":    caseID,
			"available": notFound.Alternatives,
		})
		return &RunOutcome{
			RunID:    uuid.New().String(),
			CaseID:   caseID,
			Status:   RunCaseNotFound,
			NotFound: notFound,
		}, nil
	}

	snapshot, err := toMap(c)
	if err != nil {
		return nil, fmt.Errorf("snapshot case: %w", err)
	}

	r := &run{id: uuid.New().String(), c: c}
	d.log.Info("case run started", map[string]interface{}{"caseId": c.ID, "runId": r.id})
	d.append(ctx, r, models.StageIntake, &models.StageResult{
		Stage:   models.StageIntake,
		Outcome: models.OutcomeApproved,
		Summary: fmt.Sprintf("Case %s received", c.ID),
		Payload: snapshot,
	})
	return d.drive(ctx, r)
}

// Reopen continues a finished run after an explicit Reopen marker, which is
// the only way identity is verified again once adjudication has begun. Runs
// that reached Execution cannot be reopened.
func (d *Driver) Reopen(ctx context.Context, prev *RunOutcome, reason string) (*RunOutcome, error) {
	if prev == nil || len(prev.History) == 0 {
		return nil, apperrors.NewInvalidInputError("reopen requires a previous run history")
	}
	if err := routing.CanReopen(prev.History); err != nil {
		return nil, err
	}

	ctx, span := observability.StartCaseSpan(ctx, prev.CaseID, d.opts.MaxSteps)
	out, err := d.reopen(ctx, prev, reason)
	observability.EndSpan(span, err)
	return out, err
}

func (d *Driver) reopen(ctx context.Context, prev *RunOutcome, reason string) (*RunOutcome, error) {
	c, notFound, err := d.deps.Store.LookupCase(ctx, prev.CaseID)
	if err != nil {
		return nil, err
	}
	if notFound != nil {
		return nil, apperrors.NewCaseNotFoundError(prev.CaseID, notFound.Alternatives)
	}

	r := &run{id: prev.RunID, c: c, history: append(models.History(nil), prev.History...)}
	d.log.Info("case reopened", map[string]interface{}{"caseId": c.ID, "runId": r.id, "reason": reason})
	d.append(ctx, r, models.StageReopen, &models.StageResult{
		Stage:   models.StageReopen,
		Outcome: models.OutcomePending,
		Summary: reason,
	})
	return d.drive(ctx, r)
}

func (d *Driver) drive(ctx context.Context, r *run) (*RunOutcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return d.fail(r, err)
		}

		decision, routeErr := d.deps.Router.Route(r.history)
		if decision.Terminal() {
			return d.finish(ctx, r, decision, routeErr), nil
		}

		result, err := d.runStage(ctx, r, decision)
		if err != nil {
			return d.fail(r, err)
		}
		d.append(ctx, r, decision.Next, result)
	}
}

func (d *Driver) runStage(ctx context.Context, r *run, decision models.RoutingDecision) (*models.StageResult, error) {
	step := r.history.StageCount() + 1
	ctx, span := observability.StartStageSpan(ctx, r.c.ID, string(decision.Next), step)
	start := time.Now()

	var (
		result *models.StageResult
		err    error
	)
	switch {
	case decision.Next == models.StageIdentityVerification:
		result, err = d.verifyIdentity(ctx, r)
	case decision.Next == models.StageDocumentProcessing:
		result, err = d.processDocuments(ctx, r, decision)
	case decision.Next.IsCollaborator():
		result, err = d.invokeCollaborator(ctx, r, decision)
	default:
		err = apperrors.NewInvalidInputError(fmt.Sprintf("stage %s cannot be executed", decision.Next))
	}
	observability.EndSpan(span, err)

	outcome := "error"
	if err == nil {
		outcome = string(result.Outcome)
	}
	metrics.StageDuration.WithLabelValues(string(decision.Next), outcome).Observe(time.Since(start).Seconds())
	d.deps.Observability.RecordStep(ctx, string(decision.Next), outcome)

	d.log.Debug("stage finished", map[string]interface{}{
		"caseId":  r.c.ID,
		"stage":   decision.Next,
		"rule":    decision.Rule,
		"step":    step,
		"outcome": outcome,
	})
	return result, err
}

func (d *Driver) append(ctx context.Context, r *run, stage models.Stage, result *models.StageResult) {
	e := models.Event{
		Seq:       len(r.history) + 1,
		Stage:     stage,
		Result:    result,
		Timestamp: d.now().UTC(),
	}
	r.history = append(r.history, e)

	for _, sink := range d.deps.Sinks {
		if err := sink.Record(ctx, r.id, r.c.ID, e); err != nil {
			d.log.Warn("history sink failed", map[string]interface{}{
				"caseId": r.c.ID,
				"seq":    e.Seq,
				"error":  err.Error(),
			})
		}
	}
}

func (d *Driver) finish(ctx context.Context, r *run, decision models.RoutingDecision, routeErr error) *RunOutcome {
	out := &RunOutcome{
		RunID:     r.id,
		CaseID:    r.c.ID,
		Status:    RunCompleted,
		Steps:     r.history.StageCount(),
		Decision:  &decision,
		ErrorCode: decision.ErrorCode,
		History:   r.history,
	}
	if decision.Escalate {
		out.Status = RunEscalated
	}

	fields := map[string]interface{}{
		"caseId": r.c.ID,
		"runId":  r.id,
		"status": out.Status,
		"steps":  out.Steps,
		"rule":   decision.Rule,
	}
	if routeErr != nil {
		fields["error"] = routeErr.Error()
	}
	d.log.Info("case run finished", fields)

	out.Notifications = d.notify(ctx, r, out)
	metrics.CaseRuns.WithLabelValues(string(out.Status)).Inc()
	return out
}

func (d *Driver) fail(r *run, err error) (*RunOutcome, error) {
	metrics.CaseRuns.WithLabelValues(string(RunFailed)).Inc()
	d.log.Error("case run failed", map[string]interface{}{
		"caseId": r.c.ID,
		"runId":  r.id,
		"steps":  r.history.StageCount(),
		"error":  err.Error(),
	})
	return &RunOutcome{
		RunID:     r.id,
		CaseID:    r.c.ID,
		Status:    RunFailed,
		Steps:     r.history.StageCount(),
		ErrorCode: string(apperrors.CodeOf(err)),
		History:   r.history,
	}, err
}

func (d *Driver) notify(ctx context.Context, r *run, out *RunOutcome) []models.Notification {
	if d.deps.Notifier == nil {
		return nil
	}

	req := notification.Request{
		CaseID: r.c.ID,
		Data: map[string]interface{}{
			"name":        r.c.Requestor.FullName,
			"benefitType": string(r.c.Details.BenefitType),
			"steps":       out.Steps,
			"summary":     out.Decision.Summary,
		},
	}

	if out.Status == RunEscalated {
		req.Kind = models.NotificationEscalation
		req.Data["errorCode"] = out.ErrorCode
		if last, ok := r.history.Last(); ok {
			req.Data["lastStage"] = string(last.Stage)
		}
	} else {
		req.Kind = models.NotificationOutcome
		req.Recipient = r.c.Requestor.Email
		if exec, ok := lastOf(r.history, models.StageExecution); ok && exec.Result != nil {
			req.Data["outcome"] = string(exec.Result.Outcome)
			if exec.Result.Summary != "" {
				req.Data["summary"] = exec.Result.Summary
			}
		}
	}

	n, err := d.deps.Notifier.Notify(ctx, req)
	if err != nil {
		d.log.Warn("notification skipped", map[string]interface{}{"caseId": r.c.ID, "error": err.Error()})
		return nil
	}
	return []models.Notification{*n}
}

func lastOf(h models.History, s models.Stage) (models.Event, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Stage == s {
			return h[i], true
		}
	}
	return models.Event{}, false
}

func retryable(err error) bool {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
