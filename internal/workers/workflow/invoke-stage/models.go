// internal/workers/workflow/invoke-stage/models.go
package invokestage

import "benefit-orchestrator/internal/models"

type Input struct {
	CaseID       string                 `json:"caseId"`
	Stage        string                 `json:"stage"`
	Context      map[string]interface{} `json:"requestContext"`
	Instructions string                 `json:"instructions"`
}

type Output struct {
	Stage   models.Stage        `json:"stage"`
	Outcome models.Outcome      `json:"outcome"`
	Result  *models.StageResult `json:"stageResult"`
}
