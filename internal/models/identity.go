// internal/models/identity.go
package models

import "strings"

// IdentityRecord is a candidate person from the system of record.
type IdentityRecord struct {
	ID               string         `json:"customerId" yaml:"customerId"`
	FullName         string         `json:"fullName" yaml:"fullName"`
	DateOfBirth      string         `json:"dateOfBirth" yaml:"dateOfBirth"`
	SSNLast4         string         `json:"ssnLast4" yaml:"ssnLast4"`
	Email            string         `json:"email" yaml:"email"`
	Phone            string         `json:"phone" yaml:"phone"`
	Address          Address        `json:"address" yaml:"address"`
	MilitaryStatus   MilitaryStatus `json:"militaryStatus" yaml:"militaryStatus"`
	Branch           string         `json:"branch" yaml:"branch"`
	ServiceStartDate string         `json:"serviceStartDate" yaml:"serviceStartDate"`
	ServiceEndDate   *string        `json:"serviceEndDate" yaml:"serviceEndDate"`
}

// IdentityQuery holds up to three optional fragments. Empty strings are absent.
type IdentityQuery struct {
	SSN     string `json:"ssn,omitempty"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

func (q IdentityQuery) IsEmpty() bool {
	return q.SSN == "" && q.Name == "" && q.Address == ""
}

// QueryFromRequestor builds the default query for a case requestor.
func QueryFromRequestor(r Requestor) IdentityQuery {
	return IdentityQuery{
		SSN:     r.SSNLast4,
		Name:    r.FullName,
		Address: strings.TrimSpace(r.Address.Flatten()),
	}
}

type MatchFactor struct {
	Label  string `json:"label"`
	Points int    `json:"points"`
}

type MatchResult struct {
	Record     IdentityRecord `json:"customer"`
	Confidence int            `json:"confidence_percentage"`
	Factors    []MatchFactor  `json:"confidence_factors"`
	Summary    string         `json:"match_summary"`
}

type VerificationStatus string

const (
	VerificationVerified  VerificationStatus = "verified"
	VerificationAmbiguous VerificationStatus = "ambiguous"
	VerificationNotFound  VerificationStatus = "not_found"
)

type Actor string

const (
	ActorSelf   Actor = "self"
	ActorSpouse Actor = "spouse"
)

// Candidate is a condensed alternative offered for remediation.
type Candidate struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Confidence   int    `json:"confidence_percentage"`
}

// VerificationResult is the decision drawn from a ranked search.
type VerificationResult struct {
	Status          VerificationStatus `json:"verification_result"`
	Confidence      int                `json:"confidence_percentage"`
	CustomerID      string             `json:"customer_id,omitempty"`
	CustomerName    string             `json:"customer_name,omitempty"`
	Actor           Actor              `json:"actor,omitempty"`
	MatchDetails    string             `json:"match_details"`
	SearchStrategy  string             `json:"search_strategy_used"`
	Recommendation  string             `json:"recommendation"`
	Alternatives    []Candidate        `json:"alternatives,omitempty"`
	RequestedFields []string           `json:"requested_fields,omitempty"`
}
