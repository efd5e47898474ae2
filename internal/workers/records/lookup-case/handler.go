// internal/workers/records/lookup-case/handler.go
package lookupcase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/records"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "lookup-case"
)

var (
	ErrCaseIDRequired = errors.New("CASE_ID_REQUIRED")
)

type Handler struct {
	config *Config
	store  *records.Store
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, store *records.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
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
	caseID := strings.TrimSpace(input.CaseID)
	if caseID == "" {
		return nil, apperrors.NewInvalidInputError(ErrCaseIDRequired.Error())
	}

	c, notFound, err := h.store.LookupCase(ctx, caseID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("lookup_case", err)
	}

	if notFound != nil {
		h.logger.Info("case not found", map[string]interface{}{
			"caseId":       caseID,
			"alternatives": len(notFound.Alternatives),
		})
		return &Output{Found: false, NotFound: notFound}, nil
	}

	h.logger.Info("case resolved", map[string]interface{}{
		"caseId":      c.ID,
		"benefitType": c.Details.BenefitType,
		"documents":   len(c.Documents),
	})
	return &Output{Found: true, Case: c}, nil
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
