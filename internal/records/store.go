package records

import (
	"context"
	"fmt"
	"strings"

	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
)

// Store answers case and document lookups. Misses are reported as a
// *models.NotFound with the valid identifiers; err is reserved for
// repository failures.
type Store struct {
	cases CaseRepository
	log   logger.Logger
}

func NewStore(cases CaseRepository, log logger.Logger) *Store {
	return &Store{
		cases: cases,
		log:   log.WithFields(map[string]interface{}{"component": "record-store"}),
	}
}

// LookupCase matches caseID case-insensitively.
func (s *Store) LookupCase(ctx context.Context, caseID string) (*models.Case, *models.NotFound, error) {
	cases, err := s.cases.ListCases(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list cases: %w", err)
	}

	for i := range cases {
		if strings.EqualFold(cases[i].ID, caseID) {
			c := cases[i]
			return &c, nil, nil
		}
	}

	s.log.Debug("case not found", map[string]interface{}{"caseId": caseID})
	return nil, &models.NotFound{
		Kind:         models.KindCaseNotFound,
		CaseID:       caseID,
		Message:      fmt.Sprintf("Request ID '%s' not found", caseID),
		Alternatives: caseIDs(cases),
	}, nil
}

// LookupDocument resolves a document within a case. An unknown case short-circuits.
func (s *Store) LookupDocument(ctx context.Context, caseID, documentID string) (*models.DocumentResult, *models.NotFound, error) {
	c, notFound, err := s.LookupCase(ctx, caseID)
	if err != nil || notFound != nil {
		return nil, notFound, err
	}

	doc, ok := c.FindDocument(documentID)
	if !ok {
		return nil, &models.NotFound{
			Kind:         models.KindDocumentNotFound,
			CaseID:       c.ID,
			DocumentID:   documentID,
			Message:      fmt.Sprintf("Document ID '%s' not found for request '%s'", documentID, caseID),
			Alternatives: c.DocumentIDs(),
		}, nil
	}

	return &models.DocumentResult{
		CaseID:       c.ID,
		DocumentID:   doc.ID,
		DocumentType: doc.Type,
		FileName:     doc.FileName,
		FilePath:     doc.FilePath,
		Content:      DeriveContent(doc.Type, c, doc),
	}, nil, nil
}

// CaseIDs lists every case id in repository order.
func (s *Store) CaseIDs(ctx context.Context) ([]string, error) {
	cases, err := s.cases.ListCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return caseIDs(cases), nil
}

func caseIDs(cases []models.Case) []string {
	ids := make([]string, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
	}
	return ids
}
