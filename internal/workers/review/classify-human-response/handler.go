// internal/workers/review/classify-human-response/handler.go
package classifyhumanresponse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"benefit-orchestrator/internal/collaborator"
	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "classify-human-response"
)

type Handler struct {
	config     *Config
	classifier collaborator.ResponseClassifier
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, classifier collaborator.ResponseClassifier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		classifier: classifier,
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	text := strings.TrimSpace(input.Text)

	// A blank reply carries no decision; ask again.
	if text == "" {
		resp := &models.HumanResponse{Note: input.Note, Identity: input.Identity}
		resp.Kind = resp.Resolve()
		return h.output(input.CaseID, resp), nil
	}

	resp, err := h.classifier.ClassifyHumanResponse(ctx, text)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeInternal {
			err = apperrors.NewClassificationFailedError(err)
		}
		return nil, err
	}

	resp.Kind = resp.Resolve()
	if resp.Note == "" {
		resp.Note = input.Note
	}
	if resp.Identity == nil {
		resp.Identity = input.Identity
	}
	return h.output(input.CaseID, resp), nil
}

func (h *Handler) output(caseID string, resp *models.HumanResponse) *Output {
	h.logger.Info("human response classified", map[string]interface{}{
		"caseId":     caseID,
		"kind":       resp.Kind,
		"candidates": resp.Candidates,
	})
	return &Output{
		ResponseKind:  resp.Kind,
		Ambiguous:     len(resp.Candidates) > 1,
		HumanResponse: resp,
	}
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
