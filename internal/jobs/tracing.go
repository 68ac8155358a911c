package jobs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrSnakeDoc/multisite/jobs"

// Span names.
const (
	spanRun    = "multisite.job.run"
	spanReplay = "multisite.job.replay"
)

// Span attribute keys.
const (
	attrJobID     = attribute.Key("multisite.job.id")
	attrJobName   = attribute.Key("multisite.job.name")
	attrSite      = attribute.Key("multisite.site.uid")
	attrInitiator = attribute.Key("multisite.job.initiator")
	attrOrigin    = attribute.Key("multisite.command.origin")
)

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func (r *Runner) startSpan(ctx context.Context, name string, job *Job, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs := append([]attribute.KeyValue{
		attrJobID.String(job.ID),
		attrJobName.String(job.Name),
		attrSite.String(job.Site),
		attrInitiator.Bool(job.RunAsInitiator),
	}, extra...)

	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
