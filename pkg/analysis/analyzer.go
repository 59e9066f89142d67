// Package analysis orchestrates the Accentor pronunciation-assessment
// pipeline: transcription (optional), scoring, feedback synthesis and error
// classification.
//
// The [Analyzer] is the sole public boundary of the engine. Internal scoring
// helpers are pure and never fail outside documented edge cases; the
// Analyzer catches, classifies and rewraps everything else so that callers
// only ever see [scoring.ErrEmptyInput], [*TranscriptionTimeoutError],
// [*TranscriptionFailedError] or [*VoiceAnalysisError]. No partial results
// are returned on failure, and no retries are performed — transcription
// retry policy belongs to the provider or its caller.
//
// An Analyzer is stateless apart from its injected collaborators and is safe
// for concurrent use.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/accentor-ai/accentor/pkg/provider/stt"
	"github.com/accentor-ai/accentor/pkg/scoring"
)

const (
	// DefaultUserLevel is assumed when a request does not specify a
	// proficiency level.
	DefaultUserLevel = 3

	minUserLevel = 1
	maxUserLevel = 5

	// defaultTranscribeTimeout bounds the only suspension point of the
	// pipeline, the provider call in [Analyzer.AnalyzeAudio].
	defaultTranscribeTimeout = 30 * time.Second
)

// Coach optionally rewords deterministic feedback into a short
// conversational note. Implementations must be safe for concurrent use.
type Coach interface {
	// Note produces a coach note for the given result. A failure must not
	// abort the attempt: the Analyzer logs it and omits the note.
	Note(ctx context.Context, result *scoring.VoiceAnalysisResult, userLevel int) (string, error)
}

// Option is a functional option for configuring an [Analyzer].
type Option func(*Analyzer)

// WithProvider attaches the transcription provider used by
// [Analyzer.AnalyzeAudio]. Without one, only the pre-transcribed
// [Analyzer.Analyze] path is available.
func WithProvider(p stt.Provider) Option {
	return func(a *Analyzer) { a.stt = p }
}

// WithTimingEstimator replaces the default [HeuristicEstimator].
func WithTimingEstimator(e TimingEstimator) Option {
	return func(a *Analyzer) { a.timing = e }
}

// WithCorrectThreshold overrides the per-word correctness threshold.
// Default: 80.
func WithCorrectThreshold(threshold int) Option {
	return func(a *Analyzer) { a.scorer = scoring.NewScorer(scoring.WithCorrectThreshold(threshold)) }
}

// WithCoach attaches an optional coach stage. Nil (the default) disables it.
func WithCoach(c Coach) Option {
	return func(a *Analyzer) { a.coach = c }
}

// WithTranscribeTimeout bounds the transcription provider call. Default: 30s.
func WithTranscribeTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.transcribeTimeout = d }
}

// Analyzer runs the full pronunciation-assessment pipeline.
type Analyzer struct {
	stt               stt.Provider
	timing            TimingEstimator
	scorer            *scoring.Scorer
	coach             Coach
	transcribeTimeout time.Duration
}

// New constructs an [Analyzer] with the supplied options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		timing:            HeuristicEstimator{},
		scorer:            scoring.NewScorer(),
		transcribeTimeout: defaultTranscribeTimeout,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Request carries a pre-transcribed attempt.
type Request struct {
	// ExpectedText is the sentence the learner was asked to read.
	ExpectedText string

	// Transcription is the candidate transcription of the attempt.
	Transcription string

	// UserLevel is the learner's proficiency (1..5). Zero means
	// [DefaultUserLevel]; out-of-range values are clamped.
	UserLevel int
}

// AudioRequest carries a raw-audio attempt for the asynchronous path.
type AudioRequest struct {
	// Audio is the recorded attempt.
	Audio []byte

	// ExpectedText is the sentence the learner was asked to read.
	ExpectedText string

	// UserLevel is the learner's proficiency (1..5); zero means default.
	UserLevel int

	// Language and MIMEType are forwarded to the transcription provider.
	Language string
	MIMEType string
}

// Analyze scores a pre-transcribed attempt and returns the composed
// [scoring.VoiceAnalysisResult].
//
// Returns [scoring.ErrEmptyInput] when ExpectedText tokenizes to zero words,
// or a [*VoiceAnalysisError] for any unexpected internal fault.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*scoring.VoiceAnalysisResult, error) {
	return a.analyze(ctx, req.ExpectedText, stt.Transcript{Text: req.Transcription}, req.UserLevel)
}

// AnalyzeAudio transcribes audio through the injected provider, then scores
// the result like [Analyzer.Analyze].
//
// The provider call is bounded by the configured transcribe timeout. A
// deadline hit is reported as [*TranscriptionTimeoutError], any other
// provider failure as [*TranscriptionFailedError]. There is no canned
// fallback transcription.
func (a *Analyzer) AnalyzeAudio(ctx context.Context, req AudioRequest) (*scoring.VoiceAnalysisResult, error) {
	if a.stt == nil {
		return nil, &VoiceAnalysisError{Op: "transcribe", Err: errors.New("no transcription provider configured")}
	}

	tctx, cancel := context.WithTimeout(ctx, a.transcribeTimeout)
	defer cancel()

	transcript, err := a.stt.Transcribe(tctx, req.Audio, stt.Config{
		Language: req.Language,
		MIMEType: req.MIMEType,
		Prompt:   req.ExpectedText,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TranscriptionTimeoutError{Timeout: a.transcribeTimeout, Err: err}
		}
		return nil, &TranscriptionFailedError{Err: err}
	}

	return a.analyze(ctx, req.ExpectedText, transcript, req.UserLevel)
}

// analyze is the shared synchronous pipeline behind both entry points.
func (a *Analyzer) analyze(ctx context.Context, expectedText string, transcript stt.Transcript, userLevel int) (*scoring.VoiceAnalysisResult, error) {
	level := clampLevel(userLevel)

	if len(scoring.Tokenize(expectedText)) == 0 {
		return nil, scoring.ErrEmptyInput
	}

	confidences := wordConfidences(transcript)

	wordScores := a.scorer.ScoreWords(expectedText, transcript.Text, confidences)
	textAccuracy := a.scorer.TextAccuracy(expectedText, transcript.Text)
	phonemeErrors := scoring.DetectPhonemeErrors(expectedText, transcript.Text)
	timing := a.timing.Estimate(transcript)

	if err := validateTiming(timing); err != nil {
		return nil, &VoiceAnalysisError{Op: "timing", Err: err}
	}

	subs, err := scoring.Aggregate(wordScores, timing, textAccuracy)
	if err != nil {
		if errors.Is(err, scoring.ErrEmptyInput) {
			return nil, err
		}
		return nil, &VoiceAnalysisError{Op: "aggregate", Err: err}
	}

	result := &scoring.VoiceAnalysisResult{
		Transcription:      transcript.Text,
		PronunciationScore: subs.Pronunciation,
		AccuracyScore:      subs.Accuracy,
		FluencyScore:       subs.Fluency,
		CompletenessScore:  subs.Completeness,
		WordScores:         wordScores,
		PhonemeErrors:      phonemeErrors,
		Timing:             timing,
		Feedback:           scoring.SynthesizeFeedback(wordScores, phonemeErrors, timing, level),
		Recommendations:    scoring.Recommend(wordScores, timing, phonemeErrors),
	}

	if a.coach != nil {
		note, err := a.coach.Note(ctx, result, level)
		if err != nil {
			// The coach is a best-effort enrichment stage; its failure
			// never fails the attempt.
			slog.WarnContext(ctx, "coach note generation failed", "err", err)
		} else {
			result.CoachNote = note
		}
	}

	return result, nil
}

// wordConfidences extracts positional per-word confidences from the
// transcript, or nil when the provider reports none.
func wordConfidences(t stt.Transcript) []float64 {
	if len(t.Words) == 0 {
		return nil
	}
	confs := make([]float64, len(t.Words))
	for i, w := range t.Words {
		confs[i] = w.Confidence
	}
	return confs
}

// validateTiming rejects malformed timing data before it can poison the
// aggregated scores.
func validateTiming(t scoring.TimingAnalysis) error {
	if math.IsNaN(t.SpeechRate) || math.IsInf(t.SpeechRate, 0) {
		return fmt.Errorf("speech rate is not finite: %v", t.SpeechRate)
	}
	if math.IsNaN(t.RhythmScore) || math.IsInf(t.RhythmScore, 0) {
		return fmt.Errorf("rhythm score is not finite: %v", t.RhythmScore)
	}
	if t.RhythmScore < 0 || t.RhythmScore > 100 {
		return fmt.Errorf("rhythm score %v outside [0,100]", t.RhythmScore)
	}
	return nil
}

// clampLevel normalises a user level to the 1..5 scale, applying the default
// for the zero value.
func clampLevel(level int) int {
	switch {
	case level == 0:
		return DefaultUserLevel
	case level < minUserLevel:
		return minUserLevel
	case level > maxUserLevel:
		return maxUserLevel
	default:
		return level
	}
}
