package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/accentor-ai/accentor/pkg/provider/stt"
)

// STTProvider decorates an [stt.Provider] with transcription latency and
// error metrics plus a span per call. It preserves the wrapped provider's
// error values unchanged so that caller-side classification still works.
type STTProvider struct {
	inner   stt.Provider
	name    string
	metrics *Metrics
}

// Compile-time interface check.
var _ stt.Provider = (*STTProvider)(nil)

// InstrumentSTT wraps provider with the given metrics. name identifies the
// backend in metric attributes (e.g., "openai").
func InstrumentSTT(provider stt.Provider, name string, m *Metrics) *STTProvider {
	return &STTProvider{inner: provider, name: name, metrics: m}
}

// Transcribe implements [stt.Provider].
func (p *STTProvider) Transcribe(ctx context.Context, audio []byte, cfg stt.Config) (stt.Transcript, error) {
	ctx, span := StartSpan(ctx, "stt.Transcribe",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	start := time.Now()
	transcript, err := p.inner.Transcribe(ctx, audio, cfg)
	p.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		p.metrics.RecordProviderError(ctx, p.name, "stt")
		span.RecordError(err)
		return stt.Transcript{}, err
	}
	return transcript, nil
}
