package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func testOTelConfig() *OTelConfig {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "none"
	return cfg
}

func TestOTelInitialization(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	providers, err := InitializeOTel(testOTelConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelUnsupportedExporter(t *testing.T) {
	cfg := testOTelConfig()
	cfg.MetricExporter = "statsd"
	_, err := InitializeOTel(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(testOTelConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-operation")
	defer span.End()

	assert.Len(t, TraceIDFromContext(ctx), 32)
	assert.Empty(t, TraceIDFromContext(context.Background()))

	AddSpanEvent(ctx, "noop")
	RecordError(ctx, assert.AnError)
}

func TestBusinessMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(testOTelConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordExtraction(ctx, "manual", 3, 1, 250*time.Millisecond)
	metrics.RecordChat(ctx, "mock", time.Second, nil)
	metrics.RecordAuth(ctx, "user", true)
	metrics.RecordRegistration(ctx)
	metrics.RecordApproval(ctx)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, "extraction_runs_total")
	assert.Contains(t, body, "chat_requests_total")
	assert.Contains(t, body, "company_approvals_total")
}

func TestNilBusinessMetricsAreSafe(t *testing.T) {
	var metrics *BusinessMetrics
	assert.NotPanics(t, func() {
		metrics.RecordExtraction(context.Background(), "cron", 1, 0, time.Second)
		metrics.RecordChat(context.Background(), "mock", time.Second, nil)
		metrics.RecordAuth(context.Background(), "admin", false)
	})
}
