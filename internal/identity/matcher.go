// Package identity scores identity records against partial identifying
// fragments and draws a verification decision from the ranking.
package identity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/common/metrics"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/records"
)

const (
	ssnWeight     = 40
	nameWeight    = 30
	addressWeight = 30

	ssnPartialPoints   = 25
	namePartPoints     = 5
	namePartsCap       = 15
	addressTokenPoints = 5
	addressTokensCap   = 20

	noMatchSummary = "No specific matches found"
)

// Options tunes Search and Verify. Zero values take the defaults.
type Options struct {
	VerifiedThreshold int
	AmbiguousFloor    int
	MaxResults        int
}

func (o Options) withDefaults() Options {
	if o.VerifiedThreshold <= 0 {
		o.VerifiedThreshold = 70
	}
	if o.AmbiguousFloor <= 0 {
		o.AmbiguousFloor = 50
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 5
	}
	return o
}

// Matcher is stateless between calls and safe for concurrent use.
type Matcher struct {
	repo records.IdentityRepository
	opts Options
	log  logger.Logger
}

func NewMatcher(repo records.IdentityRepository, opts Options, log logger.Logger) *Matcher {
	return &Matcher{
		repo: repo,
		opts: opts.withDefaults(),
		log:  log.WithFields(map[string]interface{}{"component": "identity-matcher"}),
	}
}

// Search ranks every record against q. Zero-confidence records are dropped,
// ties keep repository order and at most MaxResults are returned.
func (m *Matcher) Search(ctx context.Context, q models.IdentityQuery) ([]models.MatchResult, error) {
	candidates, err := m.repo.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	results := make([]models.MatchResult, 0, len(candidates))
	for _, rec := range candidates {
		if r := Score(q, rec); r.Confidence > 0 {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	if len(results) > m.opts.MaxResults {
		results = results[:m.opts.MaxResults]
	}

	m.log.Debug("identity search completed", map[string]interface{}{
		"candidates": len(candidates),
		"results":    len(results),
		"strategy":   searchStrategy(q),
	})
	return results, nil
}

// Score computes one record's confidence. Only fields present in q count
// toward the denominator.
func Score(q models.IdentityQuery, rec models.IdentityRecord) models.MatchResult {
	var (
		factors  []models.MatchFactor
		total    int
		possible int
	)
	add := func(label string, points int) {
		factors = append(factors, models.MatchFactor{Label: label, Points: points})
		total += points
	}

	if q.SSN != "" {
		possible += ssnWeight
		query := strings.ReplaceAll(strings.ReplaceAll(q.SSN, "-", ""), " ", "")
		stored := rec.SSNLast4
		if query != "" && stored != "" {
			switch {
			case query == stored:
				add("SSN exact match", ssnWeight)
			case strings.Contains(stored, query) || strings.Contains(query, stored):
				add("SSN partial match", ssnPartialPoints)
			}
		}
	}

	if q.Name != "" {
		possible += nameWeight
		stored := strings.ToLower(rec.FullName)
		query := strings.ToLower(q.Name)
		if stored != "" {
			if stored == query {
				add("Name exact match", nameWeight)
			} else {
				ratio := similarityRatio(stored, query)
				switch {
				case ratio >= 0.9:
					add(fmt.Sprintf("Name high similarity (%.2f)", ratio), int(30*ratio))
				case ratio >= 0.7:
					add(fmt.Sprintf("Name good similarity (%.2f)", ratio), int(25*ratio))
				case ratio >= 0.5:
					add(fmt.Sprintf("Name moderate similarity (%.2f)", ratio), int(15*ratio))
				}
				if common := commonTokens(query, stored); common > 0 {
					add(fmt.Sprintf("Name parts match (%d parts)", common), min(namePartsCap, common*namePartPoints))
				}
			}
		}
	}

	if q.Address != "" {
		possible += addressWeight
		if rec.Address != (models.Address{}) {
			stored := strings.ToLower(rec.Address.Flatten())
			query := strings.ToLower(q.Address)

			if strings.Contains(stored, query) || strings.Contains(query, stored) {
				qLen, sLen := utf8.RuneCountInString(query), utf8.RuneCountInString(stored)
				ratio := float64(min(qLen, sLen)) / float64(max(qLen, sLen))
				add(fmt.Sprintf("Address partial match (%.2f)", ratio), int(30*ratio))
			}

			matched := 0
			for _, token := range strings.Fields(query) {
				if strings.Contains(stored, token) {
					matched++
				}
			}
			if matched > 0 {
				add(fmt.Sprintf("Address components match (%d)", matched), min(addressTokensCap, matched*addressTokenPoints))
			}
		}
	}

	confidence := 0
	if possible > 0 {
		confidence = min(100, int(float64(total)/float64(possible)*100))
	}

	return models.MatchResult{
		Record:     rec,
		Confidence: confidence,
		Factors:    factors,
		Summary:    summarize(factors),
	}
}

func commonTokens(a, b string) int {
	seen := map[string]bool{}
	for _, t := range strings.Fields(a) {
		seen[t] = true
	}
	common := 0
	for _, t := range strings.Fields(b) {
		if seen[t] {
			common++
			delete(seen, t)
		}
	}
	return common
}

func summarize(factors []models.MatchFactor) string {
	if len(factors) == 0 {
		return noMatchSummary
	}
	labels := make([]string, len(factors))
	for i, f := range factors {
		labels[i] = f.Label
	}
	return strings.Join(labels, "; ")
}

func searchStrategy(q models.IdentityQuery) string {
	var parts []string
	if q.SSN != "" {
		parts = append(parts, "SSN")
	}
	if q.Name != "" {
		parts = append(parts, "Name")
	}
	if q.Address != "" {
		parts = append(parts, "Address")
	}
	switch len(parts) {
	case 0:
		return "No identifying fields"
	case 1:
		return parts[0] + "-only search"
	default:
		return strings.Join(parts, " + ") + " combination"
	}
}

func observeTop(results []models.MatchResult) {
	if len(results) > 0 {
		metrics.IdentityConfidence.Observe(float64(results[0].Confidence))
	}
}
