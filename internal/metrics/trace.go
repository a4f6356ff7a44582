package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jerardpelaez/wedding-calendar"

// Tracer wraps an OpenTelemetry tracer; the zero value uses the global provider.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer(t trace.Tracer) Tracer {
	return Tracer{tracer: t}
}

// Start opens a span and returns the func that ends it, recording err.
func (t Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	tr := t.tracer
	if tr == nil {
		tr = otel.Tracer(instrumentationName)
	}
	ctx, span := tr.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
