// internal/workers/workflow/run-case/models.go
package runcase

import (
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/orchestrator"
)

type Input struct {
	CaseID string `json:"caseId"`
}

type Output struct {
	RunID             string                 `json:"runId"`
	Status            orchestrator.RunStatus `json:"runStatus"`
	Steps             int                    `json:"steps"`
	Rule              int                    `json:"finalRule"`
	ErrorCode         string                 `json:"errorCode,omitempty"`
	NotFound          *models.NotFound       `json:"notFound,omitempty"`
	NotificationsSent int                    `json:"notificationsSent"`
	History           models.History         `json:"history,omitempty"`
}
