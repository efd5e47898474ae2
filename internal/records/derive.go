package records

import (
	"time"

	"benefit-orchestrator/internal/models"
)

const (
	processedDate = "2024-12-30"
	defaultRank   = "Sergeant (E-5)"
	dateLayout    = "2006-01-02"
)

// DeriveContent synthesizes the content of a document. The result depends
// only on the document type, the parent case and the document metadata, and
// every value is non-nil. Neither input is modified.
func DeriveContent(docType models.DocumentType, c *models.Case, doc models.DocumentRef) map[string]interface{} {
	content := map[string]interface{}{
		"document_id":    doc.ID,
		"file_path":      doc.FilePath,
		"processed_date": processedDate,
	}

	r := c.Requestor
	effective := c.Details.RequestedEffectiveDate

	switch docType {
	case models.DocOrders:
		content["orders_type"] = "Permanent Change of Station (PCS)"
		content["effective_date"] = effective
		content["report_date"] = effective
		content["from_location"] = "Previous Base"
		content["to_location"] = "New Assignment Location"
		content["service_member_name"] = r.FullName
		content["rank"] = rankOf(r)
		content["branch"] = branchOf(r)

	case models.DocProofOfService:
		content["service_verification"] = true
		content["active_duty_status"] = dutyStatus(r.MilitaryStatus)
		content["branch"] = branchOf(r)
		content["rank"] = rankOf(r)
		content["service_start_date"] = r.ServiceStartDate
		content["verification_date"] = processedDate

	case models.DocLeaveAndEarnings:
		content["pay_period"] = "2024-12-01 to 2024-12-31"
		content["base_pay"] = 3500.00
		content["allowances"] = 1200.00
		content["deductions"] = 800.00
		content["net_pay"] = 3900.00
		content["service_member_name"] = r.FullName

	case models.DocProofOfResidence:
		content["address_verified"] = true
		content["address"] = r.Address.Flatten()
		content["lease_start_date"] = "2024-01-01"
		content["monthly_rent"] = 2500.00
		content["landlord_contact"] = "Property Management Company"

	case models.DocLoanStatement:
		content["loan_account_holder"] = r.FullName
		content["loan_type"] = loanType(c.Details.BenefitType)
		content["current_balance"] = 18450.00
		content["interest_rate"] = 6.9
		content["statement_date"] = processedDate

	case models.DocMortgageDocuments:
		content["borrower_name"] = r.FullName
		content["property_address"] = r.Address.Flatten()
		content["loan_balance"] = 285000.00
		content["payment_status"] = "Current"

	case models.DocBankStatements:
		content["account_holder"] = r.FullName
		content["statement_period"] = "2024-12-01 to 2024-12-31"
		content["opening_balance"] = 4200.00
		content["closing_balance"] = 3650.00
		content["fees"] = feeSchedule(r.ServiceStartDate, "Overdraft fee", 35.00)

	case models.DocCreditCardStatements:
		content["account_holder"] = r.FullName
		content["statement_period"] = "2024-12-01 to 2024-12-31"
		content["opening_balance"] = 1875.40
		content["closing_balance"] = 2010.15
		content["interest_rate"] = 24.99
		content["fees"] = feeSchedule(r.ServiceStartDate, "Late payment fee", 39.00)

	case models.DocAccountHistory:
		content["account_holder"] = r.FullName
		content["account_opened"] = "2012-04-01"
		content["entries"] = []map[string]interface{}{
			{"month": "2024-10", "balance": 3980.00},
			{"month": "2024-11", "balance": 4200.00},
			{"month": "2024-12", "balance": 3650.00},
		}

	default:
		content["content_type"] = string(docType)
		content["status"] = "verified"
	}

	return content
}

func rankOf(r models.Requestor) string {
	if r.Rank != "" {
		return r.Rank
	}
	return defaultRank
}

func branchOf(r models.Requestor) string {
	if r.Branch == "" {
		return "Unknown"
	}
	return "U.S. " + r.Branch
}

func dutyStatus(s models.MilitaryStatus) string {
	switch s {
	case models.MilitaryStatusActiveDuty:
		return "Active"
	case models.MilitaryStatusVeteran:
		return "Separated"
	case "":
		return "Unknown"
	default:
		return string(s)
	}
}

func loanType(b models.BenefitType) string {
	switch b {
	case models.BenefitAutoLoanDeferment:
		return "Auto Loan"
	case models.BenefitForeclosureProtection:
		return "Mortgage"
	case models.BenefitCreditCardAPRReduction:
		return "Credit Card"
	case models.BenefitInterestRateReduction:
		return "Personal Loan"
	default:
		return "Consumer Loan"
	}
}

// feeSchedule places one fee before the service start date and two after it.
// Fees on or after the start date are deployment related. An unparseable
// start date yields fixed dates that are never flagged.
func feeSchedule(serviceStart, description string, amount float64) []map[string]interface{} {
	start, err := time.Parse(dateLayout, serviceStart)
	if err != nil {
		return []map[string]interface{}{
			fee("2024-11-15", description, amount, false),
			fee("2024-12-03", description, amount, false),
		}
	}

	offsets := []int{-30, 14, 45}
	fees := make([]map[string]interface{}, 0, len(offsets))
	for _, days := range offsets {
		d := start.AddDate(0, 0, days)
		fees = append(fees, fee(d.Format(dateLayout), description, amount, !d.Before(start)))
	}
	return fees
}

func fee(date, description string, amount float64, deployment bool) map[string]interface{} {
	return map[string]interface{}{
		"date":               date,
		"amount":             amount,
		"description":        description,
		"deployment_related": deployment,
	}
}
