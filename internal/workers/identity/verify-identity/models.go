// internal/workers/identity/verify-identity/models.go
package verifyidentity

import "benefit-orchestrator/internal/models"

// Input takes explicit fragments, or a caseId whose requestor supplies them.
// Explicit fragments override the requestor's.
type Input struct {
	CaseID  string `json:"caseId"`
	SSN     string `json:"ssn"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Output struct {
	Verified     bool                       `json:"verified"`
	Verification *models.VerificationResult `json:"verification"`
}
