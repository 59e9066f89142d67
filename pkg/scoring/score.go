package scoring

import (
	"math"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// defaultCorrectThreshold is the word score at or above which a word
	// counts as correctly pronounced.
	defaultCorrectThreshold = 80

	// nearMatchMaxDistance is the edit-distance tolerance used by the
	// sentence-level accuracy measure.
	nearMatchMaxDistance = 1
)

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithCorrectThreshold overrides the word score at or above which
// [WordScore.IsCorrect] is set. Default: 80.
func WithCorrectThreshold(threshold int) Option {
	return func(s *Scorer) {
		s.correctThreshold = threshold
	}
}

// Scorer computes per-word and sentence-level similarity scores.
// It is read-only after construction and safe for concurrent use.
type Scorer struct {
	correctThreshold int
}

// NewScorer returns a [Scorer] configured with the supplied options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{correctThreshold: defaultCorrectThreshold}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tokenize splits text into lowercased whitespace-separated word tokens,
// preserving order. Punctuation is kept attached to its word so that scoring
// stays symmetric between expected text and transcription.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// WordSimilarity scores how closely actual matches expected on a 0–100
// scale: the Levenshtein distance between the two words normalised by the
// longer length, converted to a similarity percentage and floored at 0.
// An exact match returns 100 without computing the distance.
func WordSimilarity(expected, actual string) int {
	if expected == actual {
		return 100
	}
	maxLen := max(len(expected), len(actual))
	if maxLen == 0 {
		return 100
	}
	dist := matchr.Levenshtein(expected, actual)
	score := int(math.Round(100 * (1 - float64(dist)/float64(maxLen))))
	if score < 0 {
		return 0
	}
	return score
}

// ScoreWords aligns the expected text against the transcription word by word
// and scores every expected word.
//
// Alignment is purely positional: word i of the expected text is compared
// with word i of the transcription. When the transcription is shorter,
// missing positions are scored against the empty string. Positional
// alignment is a deliberate, documented limitation — an inserted or dropped
// word shifts all following comparisons. See the package documentation.
//
// confidences optionally carries per-token ASR confidence for the
// transcription tokens, aligned by position. Pass nil when the provider
// reports none; [WordScore.Confidence] is then zero rather than synthetic.
func (s *Scorer) ScoreWords(expectedText, transcription string, confidences []float64) []WordScore {
	expected := Tokenize(expectedText)
	actual := Tokenize(transcription)

	scores := make([]WordScore, len(expected))
	for i, word := range expected {
		var aligned string
		if i < len(actual) {
			aligned = actual[i]
		}

		score := WordSimilarity(word, aligned)

		var conf float64
		if i < len(confidences) && i < len(actual) {
			conf = confidences[i]
		}

		scores[i] = WordScore{
			Word:       word,
			Actual:     aligned,
			Score:      score,
			Confidence: conf,
			IsCorrect:  score >= s.correctThreshold,
		}
	}
	return scores
}

// TextAccuracy computes the coarse sentence-level accuracy percentage.
//
// Each aligned position counts as correct when the edit distance between the
// two words is at most one; the count is normalised by the longer of the two
// token sequences. This binary near-match measure is intentionally
// independent of the continuous per-word scores from [Scorer.ScoreWords] —
// the two feed different sub-scores and must not be derived from one another.
//
// Returns 0 when both texts tokenize to zero words.
func (s *Scorer) TextAccuracy(expectedText, transcription string) int {
	expected := Tokenize(expectedText)
	actual := Tokenize(transcription)

	totalWords := max(len(expected), len(actual))
	if totalWords == 0 {
		return 0
	}

	correct := 0
	for i := 0; i < min(len(expected), len(actual)); i++ {
		if expected[i] == actual[i] || matchr.Levenshtein(expected[i], actual[i]) <= nearMatchMaxDistance {
			correct++
		}
	}

	return int(math.Round(100 * float64(correct) / float64(totalWords)))
}

// meanWordScore returns the arithmetic mean of all word scores, or 0 for an
// empty slice.
func meanWordScore(scores []WordScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, ws := range scores {
		sum += ws.Score
	}
	return float64(sum) / float64(len(scores))
}
