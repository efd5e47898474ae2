// internal/workers/notification/send-case-notification/handler.go
package sendcasenotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/notification"
	"benefit-orchestrator/internal/records"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-case-notification"
)

var (
	ErrSendFailed = errors.New("notification delivery failed")
)

type Handler struct {
	config   *Config
	store    *records.Store
	notifier *notification.Notifier
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, store *records.Store, notifier *notification.Notifier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		store:    store,
		notifier: notifier,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
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
	if input.CaseID == "" {
		return nil, apperrors.NewInvalidInputError("caseId is required")
	}

	req := notification.Request{
		CaseID:    input.CaseID,
		Kind:      input.Kind,
		Recipient: input.Recipient,
		Data:      map[string]interface{}{},
	}
	h.enrichFromCase(ctx, &req)
	for k, v := range input.Data {
		req.Data[k] = v
	}

	sent, err := h.notifier.Notify(ctx, req)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	if sent.Status == models.NotificationFailed && h.config.RetryFailedSends {
		return nil, apperrors.NewNotificationSendFailedError(string(sent.Channel), ErrSendFailed).
			WithMetadata("notificationId", sent.ID)
	}

	return &Output{
		NotificationSent: sent.Status == models.NotificationSent,
		Notification:     sent,
	}, nil
}

// enrichFromCase fills the recipient and template fields the requestor
// supplies. Lookup problems only cost the personalisation.
func (h *Handler) enrichFromCase(ctx context.Context, req *notification.Request) {
	if h.store == nil {
		return
	}
	c, notFound, err := h.store.LookupCase(ctx, req.CaseID)
	if err != nil || notFound != nil {
		h.logger.Warn("case details unavailable for notification", map[string]interface{}{
			"caseId": req.CaseID,
			"found":  notFound == nil,
			"error":  err,
		})
		return
	}

	if req.Recipient == "" && req.Kind == models.NotificationOutcome {
		req.Recipient = c.Requestor.Email
	}
	req.Data["name"] = c.Requestor.FullName
	req.Data["benefitType"] = string(c.Details.BenefitType)
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
