package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"benefit-orchestrator/internal/models"
)

const (
	defaultPageSize = 500
	identitySortKey = "customerId.keyword"
)

// Searcher is the part of *database.ElasticsearchClient the repository needs.
type Searcher interface {
	SearchSources(ctx context.Context, index string, query map[string]interface{}) ([]json.RawMessage, error)
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

// ElasticsearchRepository lists identity candidates from a search index.
type ElasticsearchRepository struct {
	es       Searcher
	index    string
	pageSize int
}

func NewElasticsearchRepository(es Searcher, index string) *ElasticsearchRepository {
	return &ElasticsearchRepository{es: es, index: index, pageSize: defaultPageSize}
}

// ListIdentities returns every indexed record ordered by customer id. The
// index is walked with search_after so no record is left out of the
// candidate set.
func (r *ElasticsearchRepository) ListIdentities(ctx context.Context) ([]models.IdentityRecord, error) {
	var (
		out   []models.IdentityRecord
		after string
	)
	for {
		query := map[string]interface{}{
			"size":  r.pageSize,
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"sort":  []interface{}{map[string]interface{}{identitySortKey: "asc"}},
		}
		if after != "" {
			query["search_after"] = []interface{}{after}
		}

		hits, err := r.es.SearchSources(ctx, r.index, query)
		if err != nil {
			return nil, err
		}

		for _, hit := range hits {
			var rec models.IdentityRecord
			if err := json.Unmarshal(hit, &rec); err != nil {
				return nil, fmt.Errorf("decode identity hit: %w", err)
			}
			out = append(out, rec)
		}

		if len(hits) < r.pageSize {
			break
		}
		next := out[len(out)-1].ID
		if next == "" || next == after {
			return nil, fmt.Errorf("identity index %s: cannot page past record without customerId", r.index)
		}
		after = next
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IndexIdentities writes recs under their customer ids.
func (r *ElasticsearchRepository) IndexIdentities(ctx context.Context, recs []models.IdentityRecord) error {
	for _, rec := range recs {
		if err := r.es.IndexDocument(ctx, r.index, rec.ID, rec); err != nil {
			return fmt.Errorf("index identity %s: %w", rec.ID, err)
		}
	}
	return nil
}
