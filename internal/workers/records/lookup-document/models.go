// internal/workers/records/lookup-document/models.go
package lookupdocument

import "benefit-orchestrator/internal/models"

type Input struct {
	CaseID     string `json:"caseId"`
	DocumentID string `json:"documentId"`
}

type Output struct {
	Found    bool                   `json:"found"`
	Document *models.DocumentResult `json:"document,omitempty"`
	NotFound *models.NotFound       `json:"notFound,omitempty"`
}
