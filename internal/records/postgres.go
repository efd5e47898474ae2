package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/models"
)

const (
	listCasesQuery = `
		SELECT payload
		FROM benefit_cases
		ORDER BY case_id`

	listIdentitiesQuery = `
		SELECT payload
		FROM identity_records
		ORDER BY customer_id`

	upsertCaseQuery = `
		INSERT INTO benefit_cases (case_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (case_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`

	upsertIdentityQuery = `
		INSERT INTO identity_records (customer_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET payload = EXCLUDED.payload`
)

// PostgresRepository reads cases and identities stored as JSONB payloads.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListCases(ctx context.Context) ([]models.Case, error) {
	var cases []models.Case
	err := r.scanPayloads(ctx, "list_cases", listCasesQuery, func(raw []byte) error {
		var c models.Case
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		cases = append(cases, c)
		return nil
	})
	return cases, err
}

func (r *PostgresRepository) ListIdentities(ctx context.Context) ([]models.IdentityRecord, error) {
	var identities []models.IdentityRecord
	err := r.scanPayloads(ctx, "list_identities", listIdentitiesQuery, func(raw []byte) error {
		var rec models.IdentityRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		identities = append(identities, rec)
		return nil
	})
	return identities, err
}

func (r *PostgresRepository) scanPayloads(ctx context.Context, queryType, query string, each func([]byte) error) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError(queryType, err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return apperrors.NewQueryExecutionFailedError(queryType, err)
		}
		if err := each(raw); err != nil {
			return apperrors.NewQueryExecutionFailedError(queryType, fmt.Errorf("decode payload: %w", err))
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewQueryExecutionFailedError(queryType, err)
	}
	return nil
}

// Import upserts a reference set in a single transaction.
func (r *PostgresRepository) Import(ctx context.Context, data ReferenceData) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	for _, c := range data.Cases {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode case %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, upsertCaseQuery, c.ID, payload); err != nil {
			return apperrors.NewQueryExecutionFailedError("upsert_case", err)
		}
	}
	for _, rec := range data.Identities {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode identity %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, upsertIdentityQuery, rec.ID, payload); err != nil {
			return apperrors.NewQueryExecutionFailedError("upsert_identity", err)
		}
	}
	return tx.Commit()
}
