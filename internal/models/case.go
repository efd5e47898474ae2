// internal/models/case.go
package models

import "strings"

type MilitaryStatus string

const (
	MilitaryStatusActiveDuty    MilitaryStatus = "Active Duty"
	MilitaryStatusReserve       MilitaryStatus = "Reserve"
	MilitaryStatusVeteran       MilitaryStatus = "Veteran"
	MilitaryStatusNationalGuard MilitaryStatus = "National Guard"
)

type BenefitType string

const (
	BenefitAutoLoanDeferment      BenefitType = "Auto Loan Deferment"
	BenefitForeclosureProtection  BenefitType = "Foreclosure Protection"
	BenefitOverdraftFeeRefund     BenefitType = "Overdraft Fee Refund"
	BenefitCreditCardAPRReduction BenefitType = "Credit Card APR Reduction"
	BenefitInterestRateReduction  BenefitType = "Interest Rate Reduction"
	BenefitLeaseTermination       BenefitType = "Lease Termination"
)

type DocumentType string

const (
	DocOrders               DocumentType = "Orders Document"
	DocProofOfService       DocumentType = "Proof of Military Service"
	DocLeaveAndEarnings     DocumentType = "Leave and Earnings Statement"
	DocProofOfResidence     DocumentType = "Proof of Residence"
	DocLoanStatement        DocumentType = "Loan Statement"
	DocMortgageDocuments    DocumentType = "Mortgage Documents"
	DocBankStatements       DocumentType = "Bank Statements"
	DocCreditCardStatements DocumentType = "Credit Card Statements"
	DocAccountHistory       DocumentType = "Account History"
)

// Address is shared by requestors and identity records.
type Address struct {
	Street string `json:"street" yaml:"street"`
	City   string `json:"city" yaml:"city"`
	State  string `json:"state" yaml:"state"`
	Zip    string `json:"zip" yaml:"zip"`
}

// Flatten renders "street city state zip".
func (a Address) Flatten() string {
	return a.Street + " " + a.City + " " + a.State + " " + a.Zip
}

type Requestor struct {
	FullName         string         `json:"fullName" yaml:"fullName"`
	DateOfBirth      string         `json:"dateOfBirth" yaml:"dateOfBirth"`
	SSNLast4         string         `json:"ssnLast4" yaml:"ssnLast4"`
	Email            string         `json:"email" yaml:"email"`
	Phone            string         `json:"phone" yaml:"phone"`
	Address          Address        `json:"address" yaml:"address"`
	MilitaryStatus   MilitaryStatus `json:"militaryStatus" yaml:"militaryStatus"`
	Branch           string         `json:"branch" yaml:"branch"`
	Rank             string         `json:"rank,omitempty" yaml:"rank,omitempty"`
	ServiceStartDate string         `json:"serviceStartDate" yaml:"serviceStartDate"`
	ServiceEndDate   *string        `json:"serviceEndDate" yaml:"serviceEndDate"`
}

type RequestDetails struct {
	BenefitType            BenefitType `json:"benefitType" yaml:"benefitType"`
	Description            string      `json:"description" yaml:"description"`
	RequestedEffectiveDate string      `json:"requestedEffectiveDate" yaml:"requestedEffectiveDate"`
}

type DocumentRef struct {
	ID       string       `json:"documentId" yaml:"documentId"`
	Type     DocumentType `json:"documentType" yaml:"documentType"`
	FileName string       `json:"fileName" yaml:"fileName"`
	FilePath string       `json:"filePath" yaml:"filePath"`
}

// Case is a benefit request. It is read-only once loaded.
type Case struct {
	ID         string         `json:"requestId" yaml:"requestId"`
	Timestamp  string         `json:"timestamp" yaml:"timestamp"`
	CustomerID string         `json:"customerId" yaml:"customerId"`
	Requestor  Requestor      `json:"requestor" yaml:"requestor"`
	Details    RequestDetails `json:"requestDetails" yaml:"requestDetails"`
	Documents  []DocumentRef  `json:"documents" yaml:"documents"`
}

// DocumentIDs returns the document ids in their stored order and case.
func (c *Case) DocumentIDs() []string {
	ids := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		ids[i] = d.ID
	}
	return ids
}

// FindDocument matches id case-insensitively.
func (c *Case) FindDocument(id string) (DocumentRef, bool) {
	for _, d := range c.Documents {
		if strings.EqualFold(d.ID, id) {
			return d, true
		}
	}
	return DocumentRef{}, false
}

// DocumentResult is a resolved document with content derived at lookup time.
type DocumentResult struct {
	CaseID       string                 `json:"request_id"`
	DocumentID   string                 `json:"document_id"`
	DocumentType DocumentType           `json:"document_type"`
	FileName     string                 `json:"file_name"`
	FilePath     string                 `json:"file_path"`
	Content      map[string]interface{} `json:"content"`
}

type NotFoundKind string

const (
	KindCaseNotFound     NotFoundKind = "CaseNotFound"
	KindDocumentNotFound NotFoundKind = "DocumentNotFound"
)

// NotFound is the structured, non-error outcome of a failed lookup.
type NotFound struct {
	Kind         NotFoundKind `json:"kind"`
	CaseID       string       `json:"caseId"`
	DocumentID   string       `json:"documentId,omitempty"`
	Message      string       `json:"error"`
	Alternatives []string     `json:"alternatives"`
}
