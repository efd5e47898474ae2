// internal/workers/identity/search-identity/models.go
package searchidentity

import "benefit-orchestrator/internal/models"

type Input struct {
	SSN     string `json:"ssn"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (i Input) Query() models.IdentityQuery {
	return models.IdentityQuery{SSN: i.SSN, Name: i.Name, Address: i.Address}
}

type Output struct {
	Results       []models.MatchResult `json:"results"`
	Count         int                  `json:"count"`
	TopConfidence int                  `json:"topConfidence"`
}
