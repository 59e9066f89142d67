// Package coach implements an optional language-model stage that rewords the
// engine's deterministic feedback into a short conversational note.
//
// The rule-based [scoring.PronunciationFeedback] is always produced and never
// altered; the coach only adds colour on top of it. The stage is therefore
// allowed to degrade gracefully: when the model response cannot be parsed,
// the note is simply omitted rather than surfacing an error, and the attempt
// succeeds on the deterministic report alone.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/accentor-ai/accentor/pkg/scoring"
)

// systemPrompt instructs the model to stay within the deterministic
// assessment. The JSON contract keeps parsing trivial and rejects prose.
const systemPrompt = `You are a friendly English pronunciation coach.

You receive the machine-scored assessment of one spoken attempt as JSON.
Write a short, encouraging coach note (at most two sentences) for the learner.

Rules:
- Base the note ONLY on the provided scores and feedback; never invent errors
  or praise that the assessment does not support.
- Match the learner's level: levels 1-2 get simple wording, levels 4-5 may get
  technical terms like "intonation" or "stress".
- Do not repeat the numeric scores verbatim.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{"note": "<your coach note>"}`

// Completer is the minimal LLM dependency of the coach. Implementations must
// be safe for concurrent use.
type Completer interface {
	// Complete sends one system-prompted user message and returns the raw
	// model output.
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Coach produces conversational notes from analysis results.
// Safe for concurrent use.
type Coach struct {
	completer Completer
}

// New returns a [Coach] backed by the given [Completer].
func New(c Completer) *Coach {
	return &Coach{completer: c}
}

// attemptSummary is the compact assessment view sent to the model. Sending
// the full result would waste tokens on per-word detail the note never uses.
type attemptSummary struct {
	Transcription      string                        `json:"transcription"`
	PronunciationScore int                           `json:"pronunciation_score"`
	AccuracyScore      int                           `json:"accuracy_score"`
	FluencyScore       int                           `json:"fluency_score"`
	CompletenessScore  int                           `json:"completeness_score"`
	Feedback           scoring.PronunciationFeedback `json:"feedback"`
	UserLevel          int                           `json:"user_level"`
}

// noteResponse is the expected JSON structure returned by the model.
type noteResponse struct {
	Note string `json:"note"`
}

// Note implements the analyzer's coach contract.
//
// Network and context errors are returned so the caller can log them; an
// unparseable model response returns an empty note and a nil error.
func (c *Coach) Note(ctx context.Context, result *scoring.VoiceAnalysisResult, userLevel int) (string, error) {
	summary := attemptSummary{
		Transcription:      result.Transcription,
		PronunciationScore: result.PronunciationScore,
		AccuracyScore:      result.AccuracyScore,
		FluencyScore:       result.FluencyScore,
		CompletenessScore:  result.CompletenessScore,
		Feedback:           result.Feedback,
		UserLevel:          userLevel,
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("coach: marshal summary: %w", err)
	}

	raw, err := c.completer.Complete(ctx, systemPrompt, string(payload))
	if err != nil {
		return "", fmt.Errorf("coach: complete: %w", err)
	}

	var resp noteResponse
	if err := json.Unmarshal([]byte(stripMarkdown(raw)), &resp); err != nil {
		// Unparseable response: omit the note, keep the attempt.
		return "", nil
	}

	return strings.TrimSpace(resp.Note), nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
