// Package scoring implements the pronunciation-scoring core of Accentor.
//
// The pipeline is deterministic and pure: given an expected sentence and a
// candidate transcription it computes per-word similarity scores, detects
// phoneme-level discrepancies, aggregates everything into four sub-scores and
// synthesises rule-based feedback. The package performs no I/O and holds no
// state; every function is safe to call concurrently.
//
// Scoring proceeds in stages:
//
//  1. Word scoring: both texts are tokenised on whitespace (case-insensitive)
//     and aligned positionally. Each word pair is scored by normalised
//     Levenshtein similarity on a 0–100 scale.
//  2. Sentence accuracy: a coarser binary measure counting positions whose
//     edit distance is at most one.
//  3. Phoneme-error detection: character-level discrepancies in misread word
//     pairs, with severity derived from Double Metaphone agreement.
//  4. Aggregation into pronunciation/accuracy/fluency/completeness.
//  5. Feedback and recommendation synthesis from a fixed rule table.
package scoring

import "time"

// ErrorType classifies a phoneme-level discrepancy.
type ErrorType string

const (
	ErrorSubstitution ErrorType = "substitution"
	ErrorInsertion    ErrorType = "insertion"
	ErrorDeletion     ErrorType = "deletion"
)

// Severity grades how strongly a phoneme error distorts the word.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// WordScore is the per-word scoring result for one expected word.
type WordScore struct {
	// Word is the expected token (lowercased).
	Word string `json:"word"`

	// Actual is the positionally aligned candidate token. Empty when the
	// transcription has fewer words than the expected text.
	Actual string `json:"actual"`

	// Score is the normalised edit-distance similarity in [0, 100].
	// An exact match always scores 100.
	Score int `json:"score"`

	// Confidence is the ASR confidence for the aligned token, when the
	// transcription provider reports per-word confidence. Zero otherwise.
	Confidence float64 `json:"confidence,omitempty"`

	// IsCorrect reports whether Score reached the correctness threshold.
	IsCorrect bool `json:"is_correct"`
}

// PhonemeError flags a sub-word discrepancy between an expected word and the
// token the speaker actually produced.
type PhonemeError struct {
	// Position is the character offset of the discrepancy within the
	// transcription (after whitespace normalisation).
	Position int `json:"position"`

	// Expected is the expected grapheme at the divergence point.
	Expected string `json:"expected"`

	// Actual is the grapheme the speaker produced. Empty for deletions.
	Actual string `json:"actual"`

	// Type classifies the discrepancy.
	Type ErrorType `json:"error_type"`

	// Severity grades the discrepancy by phonetic distance between the
	// surrounding words.
	Severity Severity `json:"severity"`

	// ExpectedWord and ActualWord carry the full word pair the error was
	// detected in, for feedback rendering.
	ExpectedWord string `json:"expected_word"`
	ActualWord   string `json:"actual_word"`
}

// TimingAnalysis holds prosody metrics describing delivery quality.
//
// When no real audio timing is available these values are heuristic
// estimates; an implementation with access to word-level timestamps should
// populate them from measured data while preserving the field contract.
type TimingAnalysis struct {
	// Duration is the total utterance length.
	Duration time.Duration `json:"duration"`

	// SpeechRate is the speaking rate in words per minute.
	SpeechRate float64 `json:"speech_rate"`

	// PauseCount is the number of detected inter-word pauses.
	PauseCount int `json:"pause_count"`

	// AvgPauseDuration is the mean length of detected pauses.
	AvgPauseDuration time.Duration `json:"avg_pause_duration"`

	// RhythmScore grades delivery evenness in [0, 100].
	RhythmScore float64 `json:"rhythm_score"`
}

// PronunciationFeedback is the rule-based feedback report for one attempt.
type PronunciationFeedback struct {
	OverallAssessment   string   `json:"overall_assessment"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	SpecificTips        []string `json:"specific_tips"`
}

// SubScores are the four aggregated top-level scores, each in [0, 100].
//
// All four are rounded integers. The completeness percentage is rounded like
// the others so that every sub-score follows one convention.
type SubScores struct {
	Pronunciation int `json:"pronunciation_score"`
	Accuracy      int `json:"accuracy_score"`
	Fluency       int `json:"fluency_score"`
	Completeness  int `json:"completeness_score"`
}

// VoiceAnalysisResult is the engine's sole output: one immutable record per
// scoring invocation. Callers decide whether and how to persist it.
type VoiceAnalysisResult struct {
	Transcription string `json:"transcription"`

	PronunciationScore int `json:"pronunciation_score"`
	AccuracyScore      int `json:"accuracy_score"`
	FluencyScore       int `json:"fluency_score"`
	CompletenessScore  int `json:"completeness_score"`

	// WordScores is ordered by expected-word position and always has exactly
	// one entry per expected word.
	WordScores []WordScore `json:"word_scores"`

	// PhonemeErrors is ordered by detection order. May be empty.
	PhonemeErrors []PhonemeError `json:"phoneme_errors"`

	Timing TimingAnalysis `json:"timing"`

	Feedback PronunciationFeedback `json:"feedback"`

	Recommendations []string `json:"recommendations"`

	// CoachNote is an optional conversational note produced by an LLM coach
	// stage. Empty when no coach is configured. The deterministic Feedback
	// above is never altered by the coach.
	CoachNote string `json:"coach_note,omitempty"`
}
