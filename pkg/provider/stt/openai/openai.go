// Package openai provides an STT provider backed by the OpenAI audio
// transcription API (Whisper). It implements [stt.Provider].
//
// The API returns plain transcription text without word-level timestamps in
// its default JSON response; [stt.Transcript.Words] is therefore left nil
// and downstream timing analysis falls back to its heuristic estimator.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/accentor-ai/accentor/pkg/provider/stt"
)

const defaultModel = "whisper-1"

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// OpenAI-compatible local Whisper servers.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel selects the transcription model. Default: "whisper-1".
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout. The context deadline passed
// to Transcribe still applies on top of it.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements [stt.Provider] using the OpenAI API.
// Safe for concurrent use.
type Provider struct {
	client oai.Client
	model  string
}

// Compile-time interface check.
var _ stt.Provider = (*Provider)(nil)

// New constructs a new OpenAI transcription Provider. apiKey must be
// non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Transcribe implements [stt.Provider].
func (p *Provider) Transcribe(ctx context.Context, audio []byte, cfg stt.Config) (stt.Transcript, error) {
	if len(audio) == 0 {
		return stt.Transcript{}, fmt.Errorf("openai stt: empty audio payload")
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio), uploadFilename(cfg.MIMEType), contentType(cfg.MIMEType)),
		Model: oai.AudioModel(p.model),
	}
	if cfg.Language != "" {
		params.Language = oai.String(cfg.Language)
	}
	if cfg.Prompt != "" {
		params.Prompt = oai.String(cfg.Prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openai stt: transcribe: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return stt.Transcript{}, fmt.Errorf("openai stt: empty transcription in response")
	}

	return stt.Transcript{Text: text}, nil
}

// uploadFilename picks a filename whose extension matches the payload type;
// the API infers the container format from it.
func uploadFilename(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return "attempt.mp3"
	case "audio/ogg":
		return "attempt.ogg"
	case "audio/webm":
		return "attempt.webm"
	case "audio/flac":
		return "attempt.flac"
	case "audio/mp4", "audio/m4a":
		return "attempt.m4a"
	default:
		return "attempt.wav"
	}
}

// contentType normalises the declared MIME type, defaulting to WAV.
func contentType(mimeType string) string {
	if mimeType == "" {
		return "audio/wav"
	}
	return mimeType
}
