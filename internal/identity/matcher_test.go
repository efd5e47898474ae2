package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	repo, err := records.NewStaticRepository()
	require.NoError(t, err)
	return NewMatcher(repo, Options{}, logger.NewTestLogger(t))
}

type staticIdentities []models.IdentityRecord

func (s staticIdentities) ListIdentities(ctx context.Context) ([]models.IdentityRecord, error) {
	return s, nil
}

type brokenIdentities struct{}

func (brokenIdentities) ListIdentities(ctx context.Context) ([]models.IdentityRecord, error) {
	return nil, errors.New("index unavailable")
}

func title(w string) string {
	return strings.ToUpper(w[:1]) + w[1:]
}

func labels(r models.MatchResult) []string {
	out := make([]string, len(r.Factors))
	for i, f := range r.Factors {
		out[i] = f.Label
	}
	return out
}

// ==========================
// Search
// ==========================

func TestSearch_ExactSSNAndName(t *testing.T) {
	results, err := newTestMatcher(t).Search(context.Background(), models.IdentityQuery{SSN: "7583", Name: "Ashlee Thompson"})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "CUST-001", top.Record.ID)
	assert.Equal(t, 100, top.Confidence)
	assert.Equal(t, "SSN exact match; Name exact match", top.Summary)
}

func TestSearch_NameTypoStillRanksFirst(t *testing.T) {
	results, err := newTestMatcher(t).Search(context.Background(), models.IdentityQuery{Name: "Ashley Thompson"})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "CUST-001", top.Record.ID)
	assert.GreaterOrEqual(t, top.Confidence, 90)
	assert.Equal(t, []string{"Name high similarity (0.93)", "Name parts match (1 parts)"}, labels(top))
	assert.Equal(t, 28, top.Factors[0].Points)
}

func TestSearch_Table(t *testing.T) {
	tests := []struct {
		name       string
		query      models.IdentityQuery
		wantTopID  string
		wantConf   int
		wantLabels []string
	}{
		{
			name:       "first name only",
			query:      models.IdentityQuery{Name: "Heather"},
			wantTopID:  "CUST-003",
			wantConf:   73,
			wantLabels: []string{"Name good similarity (0.70)", "Name parts match (1 parts)"},
		},
		{
			name:       "partial address",
			query:      models.IdentityQuery{Address: "Lake Todd AZ"},
			wantTopID:  "CUST-003",
			wantConf:   80,
			wantLabels: []string{"Address partial match (0.32)", "Address components match (3)"},
		},
		{
			name:       "full address",
			query:      models.IdentityQuery{Address: "38232 Joseph Fords Lake Todd AZ 58315"},
			wantTopID:  "CUST-003",
			wantConf:   100,
			wantLabels: []string{"Address partial match (1.00)", "Address components match (7)"},
		},
		{
			name:       "wrong ssn with name and street",
			query:      models.IdentityQuery{SSN: "1234", Name: "Kristopher Phillips", Address: "8009 Snyder Radial"},
			wantTopID:  "CUST-005",
			wantConf:   56,
			wantLabels: []string{"Name exact match", "Address partial match (0.40)", "Address components match (3)"},
		},
		{
			name:       "swapped name order",
			query:      models.IdentityQuery{Name: "Mason Heather"},
			wantTopID:  "CUST-003",
			wantConf:   60,
			wantLabels: []string{"Name moderate similarity (0.54)", "Name parts match (2 parts)"},
		},
		{
			name:       "dashed ssn normalizes",
			query:      models.IdentityQuery{SSN: "83-65"},
			wantTopID:  "CUST-002",
			wantConf:   100,
			wantLabels: []string{"SSN exact match"},
		},
	}

	m := newTestMatcher(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := m.Search(context.Background(), tt.query)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, tt.wantTopID, results[0].Record.ID)
			assert.Equal(t, tt.wantConf, results[0].Confidence)
			assert.Equal(t, tt.wantLabels, labels(results[0]))
		})
	}
}

func TestSearch_EmptyQueryReturnsNothing(t *testing.T) {
	results, err := newTestMatcher(t).Search(context.Background(), models.IdentityQuery{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_NoMatchesExcluded(t *testing.T) {
	results, err := newTestMatcher(t).Search(context.Background(), models.IdentityQuery{Name: "zzzz qqq"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_TiesKeepRepositoryOrder(t *testing.T) {
	results, err := newTestMatcher(t).Search(context.Background(), models.IdentityQuery{SSN: "58"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "CUST-001", results[0].Record.ID)
	assert.Equal(t, "CUST-004", results[1].Record.ID)
	assert.Equal(t, 62, results[0].Confidence)
	assert.Equal(t, 62, results[1].Confidence)
}

func TestSearch_CapsAtMaxResultsInDescendingOrder(t *testing.T) {
	names := []string{
		"Jon Smythe",       // 60
		"Jordana Smithers", // 70
		"Jorge Smith",      // 80
		"Gordon Smith",     // 83
		"Jordan Sm",        // 86
		"Jordan Smith",     // 100
		"Jordan Sims",      // 80
		"Dan Smith",        // 86
	}
	var recs staticIdentities
	for i, name := range names {
		recs = append(recs, models.IdentityRecord{ID: string(rune('A' + i)), FullName: name})
	}
	m := NewMatcher(recs, Options{}, logger.NewTestLogger(t))

	results, err := m.Search(context.Background(), models.IdentityQuery{Name: "Jordan Smith"})
	require.NoError(t, err)
	require.Len(t, results, 5)

	ids := make([]string, len(results))
	confidences := make([]int, len(results))
	for i, r := range results {
		ids[i] = r.Record.ID
		confidences[i] = r.Confidence
	}
	assert.Equal(t, []string{"F", "E", "H", "D", "C"}, ids)
	assert.Equal(t, []int{100, 86, 86, 83, 80}, confidences)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Confidence, results[i].Confidence, "results out of order at %d", i)
	}
}

func TestSearch_RepositoryError(t *testing.T) {
	m := NewMatcher(brokenIdentities{}, Options{}, logger.NewTestLogger(t))
	_, err := m.Search(context.Background(), models.IdentityQuery{Name: "x"})
	assert.Error(t, err)
}

// ==========================
// Score
// ==========================

func TestScore_AddingMatchingFieldNeverLowersConfidence(t *testing.T) {
	rec := models.IdentityRecord{
		ID:       "CUST-002",
		FullName: "Rachel Glover",
		SSNLast4: "8365",
		Address:  models.Address{Street: "3595 Elizabeth Passage", City: "South Mariaton", State: "OH", Zip: "59096"},
	}

	nameOnly := Score(models.IdentityQuery{Name: "Rachel Glover"}, rec)
	withSSN := Score(models.IdentityQuery{Name: "Rachel Glover", SSN: "8365"}, rec)
	withAll := Score(models.IdentityQuery{Name: "Rachel Glover", SSN: "8365", Address: "3595 Elizabeth Passage South Mariaton OH 59096"}, rec)

	assert.LessOrEqual(t, nameOnly.Confidence, withSSN.Confidence)
	assert.LessOrEqual(t, withSSN.Confidence, withAll.Confidence)
	assert.Equal(t, 100, withAll.Confidence)
}

func TestScore_MonotonicOverRandomRecords(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"ashlee", "thompson", "rachel", "glover", "maria", "lopez", "ann", "lee", "jordan", "smith", "elizabeth", "passage", "main", "oak"}

	word := func() string { return words[rng.Intn(len(words))] }
	digits := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte('0' + rng.Intn(10))
		}
		return string(b)
	}
	// fragment is either a near miss of want or something unrelated.
	fragment := func(want string) string {
		switch rng.Intn(3) {
		case 0:
			return want[:1+rng.Intn(len(want))]
		case 1:
			return want + " " + word()
		default:
			return word() + " " + word()
		}
	}

	for i := 0; i < 2000; i++ {
		rec := models.IdentityRecord{
			ID:       fmt.Sprintf("CUST-%03d", i),
			FullName: title(word()) + " " + title(word()),
			SSNLast4: digits(4),
			Address: models.Address{
				Street: digits(4) + " " + title(word()) + " St",
				City:   title(word()),
				State:  "OH",
				Zip:    digits(5),
			},
		}
		correct := models.IdentityQuery{SSN: rec.SSNLast4, Name: rec.FullName, Address: rec.Address.Flatten()}

		var q models.IdentityQuery
		if rng.Intn(2) == 0 {
			q.SSN = digits(1 + rng.Intn(4))
		}
		if rng.Intn(2) == 0 {
			q.Name = fragment(strings.ToLower(rec.FullName))
		}
		if rng.Intn(2) == 0 {
			q.Address = fragment(strings.ToLower(rec.Address.Flatten()))
		}
		base := Score(q, rec).Confidence

		if q.SSN == "" {
			with := q
			with.SSN = correct.SSN
			assert.GreaterOrEqual(t, Score(with, rec).Confidence, base, "record %d: adding ssn to %+v", i, q)
		}
		if q.Name == "" {
			with := q
			with.Name = correct.Name
			assert.GreaterOrEqual(t, Score(with, rec).Confidence, base, "record %d: adding name to %+v", i, q)
		}
		if q.Address == "" {
			with := q
			with.Address = correct.Address
			assert.GreaterOrEqual(t, Score(with, rec).Confidence, base, "record %d: adding address to %+v", i, q)
		}
	}
}

func TestScore_NoFactorsSummary(t *testing.T) {
	r := Score(models.IdentityQuery{SSN: "0000"}, models.IdentityRecord{SSNLast4: "7583"})
	assert.Equal(t, 0, r.Confidence)
	assert.Equal(t, "No specific matches found", r.Summary)
}

func TestScore_EmptyStoredAddressOnlyCountsDenominator(t *testing.T) {
	r := Score(models.IdentityQuery{Name: "Ann Lee", Address: "Main St"}, models.IdentityRecord{FullName: "Ann Lee"})
	assert.Equal(t, 50, r.Confidence)
}

func TestSearchStrategy(t *testing.T) {
	assert.Equal(t, "SSN + Name combination", searchStrategy(models.IdentityQuery{SSN: "1", Name: "a"}))
	assert.Equal(t, "Name-only search", searchStrategy(models.IdentityQuery{Name: "a"}))
	assert.Equal(t, "No identifying fields", searchStrategy(models.IdentityQuery{}))
}
