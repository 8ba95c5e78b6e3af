package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSampleRate(t *testing.T) {
	assert.Equal(t, 0.1, DefaultSampleRate("production"))
	assert.Equal(t, 1.0, DefaultSampleRate("development"))
	assert.Equal(t, 1.0, DefaultSampleRate("staging"))
}

func TestInit_EmptyDSNIsNoOp(t *testing.T) {
	shutdown, err := Init(Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestSampleRate(t *testing.T) {
	ctx := context.Background()

	root := sentry.StartSpan(ctx, "IngestionService.RunBatch")
	assert.Equal(t, 0.25, sampleRate(root, 0.25))

	health := sentry.StartSpan(ctx, "http.server", sentry.WithTransactionName("GET /health"))
	health.Name = "GET /health"
	assert.Equal(t, 0.0, sampleRate(health, 0.25))

	child := root.StartChild("Pipeline.Ingest")
	child.Sampled = sentry.SampledTrue
	assert.Equal(t, 1.0, sampleRate(child, 0.25))
	child.Sampled = sentry.SampledFalse
	assert.Equal(t, 0.0, sampleRate(child, 0.25))

	assert.Equal(t, 0.5, sampleRate(nil, 0.5))
}

func TestSpanHelpers_WithoutSentry(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "Pipeline.Ingest", SpanAttributes{
		JobID:        "job-1",
		DocumentID:   "doc-1",
		RemoteFileID: "file-1",
		Operation:    "ingest",
	})
	require.NotNil(t, ctx)

	childCtx, child := StartSpan(ctx, "Pipeline.process", SpanAttributes{})
	require.NotNil(t, childCtx)
	assert.NotNil(t, sentry.SpanFromContext(childCtx))

	child.SetError(errors.New("boom"))
	child.End()
	span.End()

	_, tx := StartTransaction(context.Background(), "jobs.retention", "worker")
	tx.End()

	CaptureError(ctx, errors.New("not reported"))
	AddBreadcrumb(ctx, "job.job-1", "ingest a.pdf: boom")

	var empty Span
	empty.End()
	empty.SetError(errors.New("ignored"))
}
