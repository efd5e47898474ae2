// internal/workers/workflow/route-next-stage/models.go
package routenextstage

import "benefit-orchestrator/internal/models"

type Input struct {
	CaseID  string         `json:"caseId"`
	History models.History `json:"history"`
}

// Output flattens the fields gateways branch on next to the full decision.
type Output struct {
	NextStage models.Stage           `json:"nextStage"`
	Rule      int                    `json:"rule"`
	Terminal  bool                   `json:"terminal"`
	Escalate  bool                   `json:"escalate"`
	Blocked   bool                   `json:"blocked"`
	Decision  models.RoutingDecision `json:"decision"`
}
