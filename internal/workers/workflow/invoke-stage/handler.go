// internal/workers/workflow/invoke-stage/handler.go
package invokestage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"benefit-orchestrator/internal/collaborator"
	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/common/metrics"
	"benefit-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "invoke-stage"
)

type Handler struct {
	config       *Config
	collaborator collaborator.Collaborator
	errors       *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, collab collaborator.Collaborator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		collaborator: collab,
		errors:       apperrors.NewErrorHandler(log),
		logger:       log,
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
	stage, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := h.collaborator.Invoke(ctx, collaborator.StageRequest{
		CaseID:       input.CaseID,
		Stage:        stage,
		Context:      input.Context,
		Instructions: input.Instructions,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && apperrors.CodeOf(err) == apperrors.ErrCodeInternal {
			err = apperrors.NewCollaboratorTimeoutError(string(stage))
		}
		metrics.StageDuration.WithLabelValues(string(stage), "error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	metrics.StageDuration.WithLabelValues(string(stage), string(result.Outcome)).Observe(time.Since(start).Seconds())

	h.logger.Info("stage completed", map[string]interface{}{
		"caseId":     input.CaseID,
		"stage":      stage,
		"outcome":    result.Outcome,
		"durationMs": time.Since(start).Milliseconds(),
	})

	return &Output{Stage: stage, Outcome: result.Outcome, Result: result}, nil
}

func validateInput(input *Input) (models.Stage, error) {
	if strings.TrimSpace(input.CaseID) == "" {
		return "", apperrors.NewInvalidInputError("caseId is required")
	}
	stage, ok := models.ParseStage(input.Stage)
	if !ok || !stage.IsCollaborator() {
		return "", apperrors.NewInvalidInputError(fmt.Sprintf("stage %q is not served by a collaborator", input.Stage))
	}
	return stage, nil
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
