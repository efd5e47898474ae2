package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func TestNew_WithoutJaegerStillRecords(t *testing.T) {
	log := zaptest.NewLogger(t)
	o := New("benefit-orchestrator-test", "", log)
	defer o.Shutdown(log)

	assert.NotNil(t, o.Tracer())
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(context.Background(), "lookup-case", "success")
		o.RecordJobDuration(context.Background(), "lookup-case", 15*time.Millisecond, "success")
		o.RecordStep(context.Background(), "EligibilityDecision", "Approved")
	})
}

func TestNilObservabilityIsSafe(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordStep(context.Background(), "Execution", "Approved")
		o.Shutdown(nil)
		_ = o.Tracer()
	})
}

func TestSpans_RecordCaseAndStage(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, caseSpan := StartCaseSpan(context.Background(), "REQ-001", 40)
	_, stageSpan := StartStageSpan(ctx, "REQ-001", "EligibilityDecision", 3)
	EndSpan(stageSpan, errors.New("collaborator timeout"))
	EndSpan(caseSpan, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "stage.EligibilityDecision", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, ended[1].SpanContext().TraceID(), ended[0].SpanContext().TraceID())

	assert.Equal(t, "case.run", ended[1].Name())
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
}
