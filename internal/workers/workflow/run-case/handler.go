// internal/workers/workflow/run-case/handler.go
package runcase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "run-case"
)

// Handler drives a whole case in-process, for deployments where the BPMN
// model delegates the stage loop instead of modelling each stage.
type Handler struct {
	config *Config
	driver *orchestrator.Driver
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, driver *orchestrator.Driver, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		driver: driver,
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
		return nil, apperrors.NewInvalidInputError("caseId is required")
	}

	out, err := h.driver.Run(ctx, caseID)
	if err != nil {
		return nil, err
	}

	output := &Output{
		RunID:     out.RunID,
		Status:    out.Status,
		Steps:     out.Steps,
		ErrorCode: out.ErrorCode,
		NotFound:  out.NotFound,
	}
	if out.Decision != nil {
		output.Rule = out.Decision.Rule
	}
	for _, n := range out.Notifications {
		if n.Status == models.NotificationSent {
			output.NotificationsSent++
		}
	}
	if h.config.IncludeHistory {
		output.History = out.History
	}

	h.logger.Info("case run completed", map[string]interface{}{
		"caseId": caseID,
		"runId":  out.RunID,
		"status": out.Status,
		"steps":  out.Steps,
	})
	return output, nil
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
