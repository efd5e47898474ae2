package orchestrator

import (
	"context"
	"fmt"
	"time"

	"benefit-orchestrator/internal/collaborator"
	"benefit-orchestrator/internal/models"
)

func (d *Driver) verifyIdentity(ctx context.Context, r *run) (*models.StageResult, error) {
	q := identityQuery(r.c, r.history)
	v, err := d.deps.Matcher.Verify(ctx, q)
	if err != nil {
		return nil, err
	}

	payload, err := toMap(v)
	if err != nil {
		return nil, fmt.Errorf("encode verification: %w", err)
	}

	result := &models.StageResult{
		Stage:   models.StageIdentityVerification,
		Summary: fmt.Sprintf("%s (%d%%): %s", v.Status, v.Confidence, v.MatchDetails),
		Payload: payload,
	}
	switch v.Status {
	case models.VerificationVerified:
		result.Outcome = models.OutcomeApproved
	case models.VerificationAmbiguous:
		result.Outcome = models.OutcomeNeedsInfo
	default:
		result.Outcome = models.OutcomeDeclined
	}
	return result, nil
}

// identityQuery starts from the requestor and overlays the identifying fields
// a reviewer supplied since the last verification attempt.
func identityQuery(c *models.Case, h models.History) models.IdentityQuery {
	q := models.QueryFromRequestor(c.Requestor)
	for _, e := range h.SinceLast(models.StageIdentityVerification) {
		if e.Stage != models.StageHumanReview || e.Result == nil || e.Result.HumanResponse == nil {
			continue
		}
		supplied := e.Result.HumanResponse.Identity
		if supplied == nil {
			continue
		}
		if supplied.SSN != "" {
			q.SSN = supplied.SSN
		}
		if supplied.Name != "" {
			q.Name = supplied.Name
		}
		if supplied.Address != "" {
			q.Address = supplied.Address
		}
	}
	return q
}

type documentBatch struct {
	Documents []models.DocumentResult `json:"documents"`
	Missing   []models.NotFound       `json:"missing,omitempty"`
	ReturnTo  models.Stage            `json:"returnTo,omitempty"`
}

func (d *Driver) processDocuments(ctx context.Context, r *run, decision models.RoutingDecision) (*models.StageResult, error) {
	batch := documentBatch{Documents: []models.DocumentResult{}, ReturnTo: decision.ReturnTo}
	for _, id := range decision.DocumentIDs {
		doc, notFound, err := d.deps.Store.LookupDocument(ctx, r.c.ID, id)
		if err != nil {
			return nil, err
		}
		if notFound != nil {
			batch.Missing = append(batch.Missing, *notFound)
			continue
		}
		batch.Documents = append(batch.Documents, *doc)
	}

	payload, err := toMap(batch)
	if err != nil {
		return nil, fmt.Errorf("encode documents: %w", err)
	}

	outcome := models.OutcomeApproved
	if len(batch.Missing) > 0 {
		outcome = models.OutcomeNeedsInfo
	}
	return &models.StageResult{
		Stage:   models.StageDocumentProcessing,
		Outcome: outcome,
		Summary: fmt.Sprintf("Processed %d of %d document(s)", len(batch.Documents), len(decision.DocumentIDs)),
		Payload: payload,
	}, nil
}

func (d *Driver) invokeCollaborator(ctx context.Context, r *run, decision models.RoutingDecision) (*models.StageResult, error) {
	req := collaborator.StageRequest{
		CaseID:       r.c.ID,
		Stage:        decision.Next,
		Context:      decision.RequestContext,
		Instructions: decision.Instructions,
	}

	backoff := d.opts.RetryBackoff
	var (
		result *models.StageResult
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = d.invokeOnce(ctx, req)
		if err == nil {
			break
		}
		if !retryable(err) || attempt >= d.opts.StageRetries || ctx.Err() != nil {
			return nil, err
		}

		d.log.Warn("stage attempt failed, retrying", map[string]interface{}{
			"caseId":    r.c.ID,
			"stage":     decision.Next,
			"attempt":   attempt + 1,
			"backoffMs": backoff.Milliseconds(),
			"error":     err.Error(),
		})
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
		backoff *= 2
	}

	if decision.Next == models.StageHumanReview {
		resp, err := d.classify(ctx, result)
		if err != nil {
			return nil, err
		}
		result.HumanResponse = resp
	}
	return result, nil
}

func (d *Driver) invokeOnce(ctx context.Context, req collaborator.StageRequest) (*models.StageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.StageTimeout)
	defer cancel()
	return d.deps.Collaborator.Invoke(ctx, req)
}

// classify makes sure a HumanReview result carries a tag. An explicit tag is
// kept; otherwise the reviewer's text, or the summary, is classified.
func (d *Driver) classify(ctx context.Context, result *models.StageResult) (*models.HumanResponse, error) {
	resp := result.HumanResponse
	if resp != nil && resp.Kind != "" {
		return resp, nil
	}
	if d.deps.Classifier == nil {
		return resp, nil
	}

	text := result.Summary
	if resp != nil && resp.Text != "" {
		text = resp.Text
	}
	classified, err := d.deps.Classifier.ClassifyHumanResponse(ctx, text)
	if err != nil {
		return nil, err
	}
	if resp != nil {
		classified.Identity = resp.Identity
		if classified.Note == "" {
			classified.Note = resp.Note
		}
	}
	return classified, nil
}
