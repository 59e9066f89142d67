package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/accentor-ai/accentor/internal/observe"
	"github.com/accentor-ai/accentor/internal/server"
	"github.com/accentor-ai/accentor/pkg/analysis"
	"github.com/accentor-ai/accentor/pkg/provider/stt"
	"github.com/accentor-ai/accentor/pkg/provider/stt/mock"
	"github.com/accentor-ai/accentor/pkg/scoring"
	"github.com/accentor-ai/accentor/pkg/session"
	"github.com/accentor-ai/accentor/pkg/session/memstore"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// newTestServer wires a server around the given analyzer options, backed by a
// fresh in-memory store.
func newTestServer(t *testing.T, analyzerOpts []analysis.Option, serverOpts ...server.Option) (http.Handler, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	opts := append([]server.Option{
		server.WithAttemptStore(store),
		server.WithConversationStore(store),
	}, serverOpts...)
	srv := server.New(":0", analysis.New(analyzerOpts...), testMetrics(t), opts...)
	return srv.Handler(), store
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	t.Parallel()

	h, store := newTestServer(t, nil)

	rec := postJSON(t, h, "/v1/attempts", map[string]any{
		"session_id":    "s1",
		"expected_text": "I would like a cappuccino",
		"transcription": "I would like a cappucino",
		"user_level":    2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200; body=%s", rec.Code, rec.Body.String())
	}

	var result scoring.VoiceAnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.WordScores) != 5 {
		t.Errorf("WordScores: got %d, want 5", len(result.WordScores))
	}
	if result.PronunciationScore <= 0 || result.PronunciationScore > 100 {
		t.Errorf("PronunciationScore=%d, want within (0, 100]", result.PronunciationScore)
	}

	// The attempt lands in the store under its session.
	attempts, err := store.ListAttempts(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("stored attempts: got %d, want 1", len(attempts))
	}
	if attempts[0].ExpectedText != "I would like a cappuccino" {
		t.Errorf("stored ExpectedText=%q", attempts[0].ExpectedText)
	}

	// And as a learner/tutor turn pair in the conversation log.
	turns, err := store.Recent(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 2 || turns[0].Role != "learner" || turns[1].Role != "tutor" {
		t.Errorf("conversation turns: got %+v, want learner then tutor", turns)
	}
}

func TestAnalyzeEndpoint_EmptyExpectedText(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil)

	rec := postJSON(t, h, "/v1/attempts", map[string]any{
		"expected_text": "   ",
		"transcription": "hello",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400; body=%s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeEndpoint_MalformedBody(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/attempts", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestAnalyzeEndpoint_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil)

	rec := postJSON(t, h, "/v1/attempts", map[string]any{
		"expected_text": "hello",
		"transcript":    "hello",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400 for unknown field", rec.Code)
	}
}

func TestAudioEndpoint(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{Transcript: stt.Transcript{Text: "hello world"}}
	h, _ := newTestServer(t,
		[]analysis.Option{analysis.WithProvider(provider)},
		server.WithAudioEnabled(true),
	)

	req := httptest.NewRequest(http.MethodPost,
		"/v1/attempts/audio?expected_text=hello+world&session_id=s1&user_level=3",
		bytes.NewReader([]byte{1, 2, 3}))
	req.Header.Set("Content-Type", "audio/wav")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var result scoring.VoiceAnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Transcription != "hello world" {
		t.Errorf("Transcription=%q, want the provider text", result.Transcription)
	}

	if len(provider.Calls) != 1 {
		t.Fatalf("provider calls: got %d, want 1", len(provider.Calls))
	}
	if provider.Calls[0].Config.MIMEType != "audio/wav" {
		t.Errorf("MIMEType=%q, want audio/wav", provider.Calls[0].Config.MIMEType)
	}
}

func TestAudioEndpoint_MissingExpectedText(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{Transcript: stt.Transcript{Text: "hello"}}
	h, _ := newTestServer(t,
		[]analysis.Option{analysis.WithProvider(provider)},
		server.WithAudioEnabled(true),
	)

	req := httptest.NewRequest(http.MethodPost, "/v1/attempts/audio", bytes.NewReader([]byte{1}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestAudioEndpoint_ProviderFailure(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{Err: errors.New("upstream down")}
	h, _ := newTestServer(t,
		[]analysis.Option{analysis.WithProvider(provider)},
		server.WithAudioEnabled(true),
	)

	req := httptest.NewRequest(http.MethodPost,
		"/v1/attempts/audio?expected_text=hello", bytes.NewReader([]byte{1}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502; body=%s", rec.Code, rec.Body.String())
	}
}

func TestAudioEndpoint_Timeout(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{Delay: make(chan struct{})}
	h, _ := newTestServer(t,
		[]analysis.Option{
			analysis.WithProvider(provider),
			analysis.WithTranscribeTimeout(20 * time.Millisecond),
		},
		server.WithAudioEnabled(true),
	)

	req := httptest.NewRequest(http.MethodPost,
		"/v1/attempts/audio?expected_text=hello", bytes.NewReader([]byte{1}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d, want 504; body=%s", rec.Code, rec.Body.String())
	}
}

func TestAudioEndpoint_DisabledWithoutProvider(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost,
		"/v1/attempts/audio?expected_text=hello", bytes.NewReader([]byte{1}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404 when audio is disabled", rec.Code)
	}
}

func TestListAttemptsEndpoint(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil)

	for _, text := range []string{"first sentence", "second sentence"} {
		rec := postJSON(t, h, "/v1/attempts", map[string]any{
			"session_id":    "s1",
			"expected_text": text,
			"transcription": text,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("seed attempt: status=%d", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/attempts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200; body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Attempts []session.Attempt `json:"attempts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Attempts) != 2 {
		t.Fatalf("attempts: got %d, want 2", len(resp.Attempts))
	}
	if resp.Attempts[0].ExpectedText != "second sentence" {
		t.Errorf("first listed attempt=%q, want the newest", resp.Attempts[0].ExpectedText)
	}
}

func TestListAttemptsEndpoint_EmptySession(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/nope/attempts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"attempts":[]`) {
		t.Errorf("body=%s, want an empty attempts array", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body=%s, want ok status", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
}
