// internal/workers/records/lookup-case/models.go
package lookupcase

import "benefit-orchestrator/internal/models"

type Input struct {
	CaseID string `json:"caseId"`
}

// Output carries either the case or the not-found payload, never both.
type Output struct {
	Found    bool             `json:"found"`
	Case     *models.Case     `json:"case,omitempty"`
	NotFound *models.NotFound `json:"notFound,omitempty"`
}
