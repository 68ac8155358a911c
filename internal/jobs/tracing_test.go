package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/routing"
	"github.com/MrSnakeDoc/multisite/internal/sites"
	"github.com/MrSnakeDoc/multisite/internal/store/memory"
)

func tracedRunner(t *testing.T) (*Runner, *sites.Repository, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	repo := sites.NewRepository(memory.New(), domain.GlobalSite("Main", globalHost))
	r := NewRunner(repo, routing.NewRegistry(), nil, Options{
		Multisite:      true,
		GlobalHostname: globalHost,
		CommandTimeout: 100 * time.Millisecond,
		Tracer:         tp.Tracer("test"),
	}, logger.NewNop())
	return r, repo, sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRunRecordsSpan(t *testing.T) {
	r, repo, sr := tracedRunner(t)
	acme := createSite(t, repo, "Acme", "acme.example.com")

	job := New(Activate, acme.UID).AsInitiator()
	_, err := r.Run(context.Background(), job)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, spanRun, span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	id, ok := spanAttr(span, attrJobID)
	require.True(t, ok)
	assert.Equal(t, job.ID, id.AsString())

	site, ok := spanAttr(span, attrSite)
	require.True(t, ok)
	assert.Equal(t, acme.UID, site.AsString())

	initiator, ok := spanAttr(span, attrInitiator)
	require.True(t, ok)
	assert.True(t, initiator.AsBool())
}

func TestRunRecordsFailure(t *testing.T) {
	r, _, sr := tracedRunner(t)

	_, err := r.Run(context.Background(), New(Deactivate, "missing"))
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}
