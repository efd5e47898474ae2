package records

import (
	"context"
	"encoding/json"
	"time"

	"benefit-orchestrator/internal/common/cache"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
)

const (
	casesCacheKey      = "records:cases"
	identitiesCacheKey = "records:identities"
)

type casesAndIdentities interface {
	CaseRepository
	IdentityRepository
}

// CachedRepository keeps listings in a tiered cache. Cache failures fall back
// to the inner repository and are only logged.
type CachedRepository struct {
	inner casesAndIdentities
	cache *cache.TieredCache
	ttl   time.Duration
	log   logger.Logger
}

func NewCachedRepository(inner casesAndIdentities, c *cache.TieredCache, ttl time.Duration, log logger.Logger) *CachedRepository {
	return &CachedRepository{
		inner: inner,
		cache: c,
		ttl:   ttl,
		log:   log.WithFields(map[string]interface{}{"component": "records-cache"}),
	}
}

func (r *CachedRepository) ListCases(ctx context.Context) ([]models.Case, error) {
	var cases []models.Case
	if r.load(ctx, casesCacheKey, &cases) {
		return cases, nil
	}
	cases, err := r.inner.ListCases(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, casesCacheKey, cases)
	return cases, nil
}

func (r *CachedRepository) ListIdentities(ctx context.Context) ([]models.IdentityRecord, error) {
	var identities []models.IdentityRecord
	if r.load(ctx, identitiesCacheKey, &identities) {
		return identities, nil
	}
	identities, err := r.inner.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, identitiesCacheKey, identities)
	return identities, nil
}

// Refresh drops both listings.
func (r *CachedRepository) Refresh(ctx context.Context) error {
	if err := r.cache.Invalidate(ctx, casesCacheKey); err != nil {
		return err
	}
	return r.cache.Invalidate(ctx, identitiesCacheKey)
}

func (r *CachedRepository) load(ctx context.Context, key string, dst interface{}) bool {
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("cache read failed, using source", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.log.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (r *CachedRepository) store(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.log.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
