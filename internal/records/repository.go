// Package records resolves benefit cases and their documents from an injected repository.
package records

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"benefit-orchestrator/internal/models"

	"gopkg.in/yaml.v3"
)

// CaseRepository lists every known case in a stable order.
type CaseRepository interface {
	ListCases(ctx context.Context) ([]models.Case, error)
}

// IdentityRepository lists every candidate identity in a stable order.
type IdentityRepository interface {
	ListIdentities(ctx context.Context) ([]models.IdentityRecord, error)
}

//go:embed seed/reference.yaml
var embeddedSeed []byte

// ReferenceData is the on-disk layout of a seed file.
type ReferenceData struct {
	Cases      []models.Case           `yaml:"cases"`
	Identities []models.IdentityRecord `yaml:"identities"`
}

// StaticRepository serves a fixed, read-only reference set.
type StaticRepository struct {
	data ReferenceData
}

// NewStaticRepository loads the embedded seed.
func NewStaticRepository() (*StaticRepository, error) {
	return ParseReferenceData(embeddedSeed)
}

// LoadStaticRepository loads a seed file from disk. An empty path uses the embedded seed.
func LoadStaticRepository(path string) (*StaticRepository, error) {
	if path == "" {
		return NewStaticRepository()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseReferenceData(raw)
}

// ParseReferenceData decodes YAML seed data, rejecting unknown fields.
func ParseReferenceData(raw []byte) (*StaticRepository, error) {
	var data ReferenceData
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}
	return &StaticRepository{data: data}, nil
}

// ListCases returns a copy of the seeded cases.
func (r *StaticRepository) ListCases(ctx context.Context) ([]models.Case, error) {
	out := make([]models.Case, len(r.data.Cases))
	copy(out, r.data.Cases)
	return out, nil
}

// ListIdentities returns a copy of the seeded identities.
func (r *StaticRepository) ListIdentities(ctx context.Context) ([]models.IdentityRecord, error) {
	out := make([]models.IdentityRecord, len(r.data.Identities))
	copy(out, r.data.Identities)
	return out, nil
}

// Data exposes the reference set, e.g. for seeding Postgres.
func (r *StaticRepository) Data() ReferenceData {
	return r.data
}
