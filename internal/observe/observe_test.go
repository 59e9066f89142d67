package observe_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/accentor-ai/accentor/internal/observe"
	"github.com/accentor-ai/accentor/pkg/provider/stt"
	"github.com/accentor-ai/accentor/pkg/provider/stt/mock"
)

// newTestMetrics returns Metrics wired to a manual reader so tests can
// collect recorded data points.
func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all currently recorded metrics.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	return rm
}

// findMetric locates a metric by name in the collected data.
func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestRecordAttempt(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAttempt(ctx, "text", "ok")
	m.RecordAttempt(ctx, "text", "ok")
	m.RecordAttempt(ctx, "audio", "transcription_failed")

	rm := collect(t, reader)
	metric, ok := findMetric(rm, "accentor.attempts.analyzed")
	if !ok {
		t.Fatal("accentor.attempts.analyzed not recorded")
	}

	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", metric.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total attempts=%d, want 3", total)
	}
	// Distinct attribute sets produce distinct data points.
	if len(sum.DataPoints) != 2 {
		t.Errorf("data points=%d, want 2 (text/ok and audio/failed)", len(sum.DataPoints))
	}
}

func TestInstrumentSTT_RecordsLatencyAndPreservesResult(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	inner := &mock.Provider{Transcript: stt.Transcript{Text: "hello"}}
	wrapped := observe.InstrumentSTT(inner, "mock", m)

	got, err := wrapped.Transcribe(context.Background(), []byte{1}, stt.Config{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: unexpected error: %v", err)
	}
	if got.Text != "hello" {
		t.Errorf("Text=%q, want the inner provider result", got.Text)
	}

	rm := collect(t, reader)
	if _, ok := findMetric(rm, "accentor.stt.duration"); !ok {
		t.Error("accentor.stt.duration not recorded")
	}
	if _, ok := findMetric(rm, "accentor.provider.errors"); ok {
		t.Error("provider error recorded for a successful call")
	}
}

func TestInstrumentSTT_PreservesErrorValues(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	cause := errors.New("rate limited")
	wrapped := observe.InstrumentSTT(&mock.Provider{Err: cause}, "mock", m)

	_, err := wrapped.Transcribe(context.Background(), []byte{1}, stt.Config{})
	if !errors.Is(err, cause) {
		t.Fatalf("err=%v, want the inner error preserved for classification", err)
	}

	rm := collect(t, reader)
	metric, ok := findMetric(rm, "accentor.provider.errors")
	if !ok {
		t.Fatal("accentor.provider.errors not recorded")
	}
	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatalf("unexpected error-counter data: %+v", metric.Data)
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("error count=%d, want 1", sum.DataPoints[0].Value)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)

	handler := observe.Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/attempts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status=%d, want the handler status passed through", rec.Code)
	}

	rm := collect(t, reader)
	metric, ok := findMetric(rm, "accentor.http.request.duration")
	if !ok {
		t.Fatal("accentor.http.request.duration not recorded")
	}
	hist, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("unexpected histogram data: %+v", metric.Data)
	}
	if hist.DataPoints[0].Count != 1 {
		t.Errorf("request count=%d, want 1", hist.DataPoints[0].Count)
	}
}

func TestMiddleware_ActiveLiveSessionsGauge(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveLiveSessions.Add(ctx, 1)
	m.ActiveLiveSessions.Add(ctx, 1)
	m.ActiveLiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	metric, ok := findMetric(rm, "accentor.active_live_sessions")
	if !ok {
		t.Fatal("accentor.active_live_sessions not recorded")
	}
	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatalf("unexpected gauge data: %+v", metric.Data)
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("active sessions=%d, want 1", sum.DataPoints[0].Value)
	}
}
