package analysis

import (
	"math"
	"time"

	"github.com/accentor-ai/accentor/pkg/provider/stt"
	"github.com/accentor-ai/accentor/pkg/scoring"
)

// TimingEstimator derives prosody metrics for an attempt. Implementations
// with access to real audio timing should replace [HeuristicEstimator] while
// preserving the [scoring.TimingAnalysis] field contract.
type TimingEstimator interface {
	Estimate(t stt.Transcript) scoring.TimingAnalysis
}

const (
	// nominalSpeechRate is the assumed speaking rate (words per minute)
	// when no timing data is available at all.
	nominalSpeechRate = 140

	// pauseGapThreshold is the inter-word gap above which a gap counts as a
	// pause.
	pauseGapThreshold = 300 * time.Millisecond

	// ratePenaltyDivisor and maxRatePenalty shape how far deviation from
	// the nominal rate lowers the rhythm score.
	ratePenaltyDivisor = 2
	maxRatePenalty     = 40

	// pausePenalty is subtracted per pause beyond the first.
	pausePenalty = 12
)

// HeuristicEstimator derives a [scoring.TimingAnalysis] from whatever the
// transcript carries, in order of preference:
//
//  1. Per-word timestamps, when the provider reports them: measured
//     duration, rate and pause structure.
//  2. The transcript's overall duration.
//  3. A nominal speaking rate applied to the word count.
//
// The estimator is deterministic: the same transcript always yields the same
// metrics. An empty transcript yields the zero value, which downstream
// scoring treats as no fluency evidence.
type HeuristicEstimator struct{}

// Compile-time interface check.
var _ TimingEstimator = (*HeuristicEstimator)(nil)

// Estimate implements [TimingEstimator].
func (HeuristicEstimator) Estimate(t stt.Transcript) scoring.TimingAnalysis {
	words := scoring.Tokenize(t.Text)
	if len(words) == 0 {
		return scoring.TimingAnalysis{}
	}

	duration := t.Duration
	pauseCount := 0
	var pauseTotal time.Duration

	if len(t.Words) > 1 {
		if duration == 0 {
			duration = t.Words[len(t.Words)-1].End - t.Words[0].Start
		}
		for i := 1; i < len(t.Words); i++ {
			gap := t.Words[i].Start - t.Words[i-1].End
			if gap > pauseGapThreshold {
				pauseCount++
				pauseTotal += gap
			}
		}
	}

	if duration <= 0 {
		// No timing data at all: assume the nominal rate.
		duration = time.Duration(float64(len(words)) / nominalSpeechRate * float64(time.Minute))
	}

	rate := float64(len(words)) / duration.Minutes()

	var avgPause time.Duration
	if pauseCount > 0 {
		avgPause = pauseTotal / time.Duration(pauseCount)
	}

	return scoring.TimingAnalysis{
		Duration:         duration,
		SpeechRate:       rate,
		PauseCount:       pauseCount,
		AvgPauseDuration: avgPause,
		RhythmScore:      rhythmScore(rate, pauseCount),
	}
}

// rhythmScore grades delivery evenness from the speech rate's deviation from
// the nominal rate and the number of pauses beyond the first.
func rhythmScore(rate float64, pauses int) float64 {
	ratePenalty := math.Abs(rate-nominalSpeechRate) / ratePenaltyDivisor
	if ratePenalty > maxRatePenalty {
		ratePenalty = maxRatePenalty
	}

	extraPauses := pauses - 1
	if extraPauses < 0 {
		extraPauses = 0
	}

	score := 100 - ratePenalty - float64(extraPauses*pausePenalty)
	if score < 0 {
		return 0
	}
	return score
}
