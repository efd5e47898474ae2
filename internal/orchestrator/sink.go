package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"benefit-orchestrator/internal/common/database"
	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/messaging"
	"benefit-orchestrator/internal/models"

	"github.com/google/uuid"
)

// HistorySink receives every event appended to a case history.
type HistorySink interface {
	Record(ctx context.Context, runID, caseID string, e models.Event) error
}

// EventEnvelope is the persisted and published form of an event.
type EventEnvelope struct {
	RunID  string       `json:"runId"`
	CaseID string       `json:"caseId"`
	Event  models.Event `json:"event"`
}

// PostgresSink appends events to the case_events audit table.
type PostgresSink struct {
	db *database.PostgresClient
}

func NewPostgresSink(db *database.PostgresClient) *PostgresSink {
	return &PostgresSink{db: db}
}

const insertEventQuery = `
	INSERT INTO case_events (id, run_id, case_id, seq, stage, outcome, payload)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (s *PostgresSink) Record(ctx context.Context, runID, caseID string, e models.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = s.db.Exec(ctx, insertEventQuery,
		uuid.New().String(), runID, caseID, e.Seq, string(e.Stage), string(e.Outcome()), payload)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("insert_case_event", err)
	}
	return nil
}

// NATSSink publishes events on <prefix>.<caseId>.events.
type NATSSink struct {
	pub    messaging.Publisher
	prefix string
}

func NewNATSSink(pub messaging.Publisher, prefix string) *NATSSink {
	return &NATSSink{pub: pub, prefix: prefix}
}

func (s *NATSSink) Record(ctx context.Context, runID, caseID string, e models.Event) error {
	data, err := json.Marshal(EventEnvelope{RunID: runID, CaseID: caseID, Event: e})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	subject := messaging.CaseEventSubject(s.prefix, caseID)
	if err := s.pub.Publish(ctx, subject, data); err != nil {
		return apperrors.NewEventPublishFailedError(subject, err)
	}
	return nil
}
