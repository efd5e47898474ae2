package identity

import (
	"context"
	"fmt"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/models"
)

// Verify searches and classifies the ranking: verified when exactly one
// candidate reaches the verified threshold, ambiguous when several do or the
// best is between the floor and the threshold, not found otherwise.
func (m *Matcher) Verify(ctx context.Context, q models.IdentityQuery) (*models.VerificationResult, error) {
	results, err := m.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	observeTop(results)

	out := &models.VerificationResult{
		SearchStrategy: searchStrategy(q),
	}

	if len(results) == 0 {
		out.Status = models.VerificationNotFound
		out.MatchDetails = noMatchSummary
		out.Recommendation = "Additional verification needed"
		out.RequestedFields = requestedFields(q)
		return out, nil
	}

	top := results[0]
	strong := 0
	for _, r := range results {
		if r.Confidence >= m.opts.VerifiedThreshold {
			strong++
		}
	}

	out.Confidence = top.Confidence
	out.MatchDetails = top.Summary

	switch {
	case strong == 1:
		out.Status = models.VerificationVerified
		out.CustomerID = top.Record.ID
		out.CustomerName = top.Record.FullName
		out.Actor = models.ActorSelf
		out.Recommendation = "Proceed with high confidence"
	case strong > 1 || top.Confidence >= m.opts.AmbiguousFloor:
		out.Status = models.VerificationAmbiguous
		out.Recommendation = "Manual review recommended"
		out.Alternatives = candidates(results)
		out.RequestedFields = requestedFields(q)
	default:
		out.Status = models.VerificationNotFound
		out.Recommendation = "Additional verification needed"
		out.Alternatives = candidates(results)
		out.RequestedFields = requestedFields(q)
	}

	m.log.Info("identity verification completed", map[string]interface{}{
		"status":     out.Status,
		"confidence": out.Confidence,
		"customerId": out.CustomerID,
	})
	return out, nil
}

// VerificationError maps a non-verified result to its error; nil when verified.
func VerificationError(v *models.VerificationResult) *apperrors.StandardError {
	switch v.Status {
	case models.VerificationVerified:
		return nil
	case models.VerificationAmbiguous:
		return apperrors.NewIdentityAmbiguousError(fmt.Sprintf("%d candidates, best %d%%", len(v.Alternatives), v.Confidence)).
			WithMetadata("alternatives", v.Alternatives).
			WithMetadata("requestedFields", v.RequestedFields)
	default:
		return apperrors.NewIdentityNotFoundError(v.MatchDetails).
			WithMetadata("requestedFields", v.RequestedFields)
	}
}

func candidates(results []models.MatchResult) []models.Candidate {
	out := make([]models.Candidate, len(results))
	for i, r := range results {
		out[i] = models.Candidate{
			CustomerID:   r.Record.ID,
			CustomerName: r.Record.FullName,
			Confidence:   r.Confidence,
		}
	}
	return out
}

// requestedFields lists the fragments missing from q. With all three present
// it asks for a secondary identifier.
func requestedFields(q models.IdentityQuery) []string {
	var fields []string
	if q.SSN == "" {
		fields = append(fields, "ssnLast4")
	}
	if q.Name == "" {
		fields = append(fields, "fullName")
	}
	if q.Address == "" {
		fields = append(fields, "address")
	}
	if len(fields) == 0 {
		fields = append(fields, "dateOfBirth")
	}
	return fields
}
