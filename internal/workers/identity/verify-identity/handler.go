// internal/workers/identity/verify-identity/handler.go
package verifyidentity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/identity"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/records"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "verify-identity"
)

type Handler struct {
	config  *Config
	store   *records.Store
	matcher *identity.Matcher
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, store *records.Store, matcher *identity.Matcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		store:   store,
		matcher: matcher,
		errors:  apperrors.NewErrorHandler(log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job,
			apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	query, err := h.buildQuery(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := h.matcher.Verify(ctx, query)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError("identities", err)
	}

	verified := result.Status == models.VerificationVerified
	h.logger.Info("identity verified", map[string]interface{}{
		"caseId":     input.CaseID,
		"status":     result.Status,
		"confidence": result.Confidence,
	})

	if !verified && h.config.FailUnverified {
		return nil, identity.VerificationError(result)
	}
	return &Output{Verified: verified, Verification: result}, nil
}

func (h *Handler) buildQuery(ctx context.Context, input *Input) (models.IdentityQuery, error) {
	var query models.IdentityQuery

	if caseID := strings.TrimSpace(input.CaseID); caseID != "" {
		c, notFound, err := h.store.LookupCase(ctx, caseID)
		if err != nil {
			return query, apperrors.NewQueryExecutionFailedError("lookup_case", err)
		}
		if notFound != nil {
			return query, apperrors.NewCaseNotFoundError(caseID, notFound.Alternatives)
		}
		query = models.QueryFromRequestor(c.Requestor)
	}

	if input.SSN != "" {
		query.SSN = input.SSN
	}
	if input.Name != "" {
		query.Name = input.Name
	}
	if input.Address != "" {
		query.Address = input.Address
	}

	if query.IsEmpty() {
		return query, apperrors.NewInvalidInputError("caseId or at least one identity fragment is required")
	}
	return query, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
