// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (e.g., the OpenAI Whisper
// API or a local Whisper server) behind a uniform batch interface: one audio
// clip in, one [Transcript] out. The scoring engine never talks to a speech
// API directly — it receives a Provider as an injected dependency, so the
// core stays decoupled from any specific ASR backend.
//
// Implementations must be safe for concurrent use; multiple attempts may be
// transcribed simultaneously.
package stt

import (
	"context"
	"time"
)

// Config describes the audio format and recognition hints for a
// transcription request.
type Config struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en",
	// "en-US"). An empty string lets the provider auto-detect.
	Language string

	// Prompt optionally biases recognition towards expected vocabulary.
	// Providers that do not support prompting ignore it.
	Prompt string

	// MIMEType declares the encoding of the audio payload (e.g.,
	// "audio/wav"). Providers may use it to name the upload correctly.
	MIMEType string
}

// Transcript is the result of transcribing one audio clip.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// provider does not report one.
	Confidence float64

	// Words contains per-word detail when the provider supports word-level
	// timestamps. Nil otherwise.
	Words []WordDetail

	// Duration is the length of the recognised utterance. Zero when the
	// provider does not report it.
	Duration time.Duration
}

// WordDetail holds per-word metadata from providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Provider is the abstraction over any batch STT backend.
//
// Implementations must be safe for concurrent use and must respect ctx
// cancellation and deadlines — the caller owns the timeout policy.
type Provider interface {
	// Transcribe converts one audio clip into a [Transcript].
	//
	// Returns an error when the backend cannot produce a usable
	// transcription. Implementations must not substitute canned or random
	// fallback text on failure; error classification is the caller's job.
	Transcribe(ctx context.Context, audio []byte, cfg Config) (Transcript, error)
}
