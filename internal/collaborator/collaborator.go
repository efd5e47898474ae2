// Package collaborator reaches the external decision-making stages over HTTP.
package collaborator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"benefit-orchestrator/internal/common/config"
	apperrors "benefit-orchestrator/internal/common/errors"
	commonhttp "benefit-orchestrator/internal/common/http"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
)

// StageRequest is the body posted to a stage collaborator.
type StageRequest struct {
	CaseID       string                 `json:"caseId"`
	Stage        models.Stage           `json:"stage"`
	Context      map[string]interface{} `json:"context"`
	Instructions string                 `json:"instructions"`
}

// Collaborator runs one opaque stage and returns its typed result.
type Collaborator interface {
	Invoke(ctx context.Context, req StageRequest) (*models.StageResult, error)
}

// ResponseClassifier turns a free-text reviewer reply into a tagged response.
type ResponseClassifier interface {
	ClassifyHumanResponse(ctx context.Context, text string) (*models.HumanResponse, error)
}

// NewTransport builds the shared HTTP client for collaborator calls.
func NewTransport(cfg config.CollaboratorsConfig, log logger.Logger) *commonhttp.Client {
	return commonhttp.NewClient(commonhttp.Options{
		Name:             "collaborators",
		Timeout:          config.GetDuration(cfg.Timeout),
		MaxRetries:       cfg.MaxRetries,
		InitialBackoff:   250 * time.Millisecond,
		RateLimit:        cfg.RateLimit,
		RateBurst:        cfg.RateBurst,
		BreakerFailRatio: cfg.BreakerFailRatio,
		BreakerMinCalls:  cfg.BreakerMinCalls,
		BreakerOpenFor:   config.GetDuration(cfg.BreakerOpenFor),
	}, log)
}

// HTTPCollaborator posts to {baseURL}/api/stages/{stage}/invoke.
type HTTPCollaborator struct {
	client  *commonhttp.Client
	baseURL string
	apiKey  string
	log     logger.Logger
}

func NewHTTPCollaborator(client *commonhttp.Client, baseURL, apiKey string, log logger.Logger) *HTTPCollaborator {
	return &HTTPCollaborator{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		log:     log.WithFields(map[string]interface{}{"component": "collaborator"}),
	}
}

func (c *HTTPCollaborator) Invoke(ctx context.Context, req StageRequest) (*models.StageResult, error) {
	endpoint := fmt.Sprintf("%s/api/stages/%s/invoke", c.baseURL, url.PathEscape(string(req.Stage)))

	start := time.Now()
	resp, err := c.client.PostJSON(ctx, endpoint, c.headers(), req)
	if err != nil {
		return nil, classifyTransportError(string(req.Stage), err)
	}

	result, err := DecodeStageResult(resp.Body, req.Stage)
	if err != nil {
		return nil, err
	}

	c.log.Info("stage collaborator returned", map[string]interface{}{
		"caseId":     req.CaseID,
		"stage":      req.Stage,
		"outcome":    result.Outcome,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (c *HTTPCollaborator) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// DecodeStageResult validates raw against the StageResult contract and
// decodes it. A missing stage defaults to expected; a different one is rejected.
func DecodeStageResult(raw []byte, expected models.Stage) (*models.StageResult, error) {
	res, err := stageResultSchema.Validate(raw)
	if err != nil {
		return nil, apperrors.NewStageResultInvalidError(string(expected), []string{err.Error()})
	}
	if !res.Valid {
		return nil, apperrors.NewStageResultInvalidError(string(expected), res.GetErrorMessages())
	}

	var result models.StageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperrors.NewStageResultInvalidError(string(expected), []string{err.Error()})
	}
	if result.Stage == "" {
		result.Stage = expected
	}
	if expected != "" && result.Stage != expected {
		return nil, apperrors.NewStageResultInvalidError(string(expected),
			[]string{fmt.Sprintf("stage: got %s", result.Stage)})
	}
	return &result, nil
}

func classifyTransportError(stage string, err error) error {
	switch {
	case commonhttp.IsTimeout(err):
		return apperrors.NewCollaboratorTimeoutError(stage)
	case commonhttp.IsCircuitOpen(err):
		return apperrors.NewCollaboratorUnavailableError(stage, err)
	default:
		return apperrors.NewCollaboratorFailedError(stage, err)
	}
}
