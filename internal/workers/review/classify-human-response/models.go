// internal/workers/review/classify-human-response/models.go
package classifyhumanresponse

import "benefit-orchestrator/internal/models"

type Input struct {
	CaseID   string                `json:"caseId"`
	Text     string                `json:"text"`
	Note     string                `json:"note"`
	Identity *models.IdentityQuery `json:"identity,omitempty"`
}

type Output struct {
	ResponseKind  models.ResponseKind   `json:"responseKind"`
	Ambiguous     bool                  `json:"ambiguous"`
	HumanResponse *models.HumanResponse `json:"humanResponse"`
}
