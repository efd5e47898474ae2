package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartCaseSpan starts the root span of a driver run.
func StartCaseSpan(ctx context.Context, caseID string, maxSteps int) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, "case.run",
		trace.WithAttributes(
			attribute.String("case.id", caseID),
			attribute.Int("case.max_steps", maxSteps),
		),
	)
}

// StartStageSpan starts a span for one stage invocation.
func StartStageSpan(ctx context.Context, caseID, stage string, step int) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, "stage."+stage,
		trace.WithAttributes(
			attribute.String("case.id", caseID),
			attribute.String("stage.name", stage),
			attribute.Int("stage.step", step),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
