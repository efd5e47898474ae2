// internal/workers/records/lookup-document/handler.go
package lookupdocument

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/records"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "lookup-document"
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
	if err := h.validateInput(input); err != nil {
		return nil, err
	}

	doc, notFound, err := h.store.LookupDocument(ctx, input.CaseID, input.DocumentID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("lookup_document", err)
	}

	if notFound != nil {
		h.logger.Info("lookup missed", map[string]interface{}{
			"kind":       notFound.Kind,
			"caseId":     input.CaseID,
			"documentId": input.DocumentID,
		})
		if h.config.FailOnMissing {
			return nil, notFoundError(notFound)
		}
		return &Output{Found: false, NotFound: notFound}, nil
	}

	h.logger.Info("document resolved", map[string]interface{}{
		"caseId":       doc.CaseID,
		"documentId":   doc.DocumentID,
		"documentType": doc.DocumentType,
	})
	return &Output{Found: true, Document: doc}, nil
}

func (h *Handler) validateInput(input *Input) error {
	var missing []string
	if strings.TrimSpace(input.CaseID) == "" {
		missing = append(missing, "caseId")
	}
	if strings.TrimSpace(input.DocumentID) == "" {
		missing = append(missing, "documentId")
	}
	if len(missing) > 0 {
		return apperrors.NewInvalidInputError("missing " + strings.Join(missing, ", "))
	}
	return nil
}

func notFoundError(nf *models.NotFound) *apperrors.StandardError {
	if nf.Kind == models.KindCaseNotFound {
		return apperrors.NewCaseNotFoundError(nf.CaseID, nf.Alternatives)
	}
	return apperrors.NewDocumentNotFoundError(nf.CaseID, nf.DocumentID, nf.Alternatives)
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
