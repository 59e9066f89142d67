package scoring

import (
	"errors"
	"math"
)

// ErrEmptyInput is returned when the expected text tokenizes to zero words.
// Aggregation cannot proceed without at least one expected word; the engine
// fails fast instead of emitting NaN or division-by-zero artefacts.
var ErrEmptyInput = errors.New("scoring: expected text contains no words")

// Aggregate folds the per-word scores, timing metrics and sentence accuracy
// into the four top-level sub-scores:
//
//   - pronunciation: rounded mean of all word scores
//   - accuracy: the sentence-level accuracy from [Scorer.TextAccuracy],
//     passed through unchanged
//   - fluency: the rounded rhythm score
//   - completeness: rounded percentage of words meeting the correctness
//     threshold
//
// Returns [ErrEmptyInput] when wordScores is empty.
func Aggregate(wordScores []WordScore, timing TimingAnalysis, textAccuracy int) (SubScores, error) {
	if len(wordScores) == 0 {
		return SubScores{}, ErrEmptyInput
	}

	correct := 0
	for _, ws := range wordScores {
		if ws.IsCorrect {
			correct++
		}
	}

	return SubScores{
		Pronunciation: int(math.Round(meanWordScore(wordScores))),
		Accuracy:      textAccuracy,
		Fluency:       clampScore(int(math.Round(timing.RhythmScore))),
		Completeness:  int(math.Round(100 * float64(correct) / float64(len(wordScores)))),
	}, nil
}

// clampScore bounds a sub-score to the [0, 100] contract.
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
