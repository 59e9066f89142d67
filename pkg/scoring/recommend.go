package scoring

// Recommendation trigger thresholds.
const (
	recommendMeanScoreBelow  = 70
	recommendSlowRateBelow   = 100
	recommendFastRateAbove   = 180
	recommendPhonemeErrsOver = 2
)

// Recommend derives practice recommendations from an attempt's scores,
// timing and phoneme errors.
//
// Checks run in a fixed order and the output follows check order. The slow
// and fast speech-rate bands are disjoint, so their suggestions can never
// appear together; no other triggers overlap either, so the result needs no
// de-duplication.
func Recommend(wordScores []WordScore, timing TimingAnalysis, phonemeErrors []PhonemeError) []string {
	recs := []string{}

	if meanWordScore(wordScores) < recommendMeanScoreBelow {
		recs = append(recs,
			"Practice difficult words by repeating them several times.",
			"Try shadowing native speech to internalise pronunciation patterns.",
		)
	}

	if timing.SpeechRate < recommendSlowRateBelow {
		recs = append(recs, "Increase reading-aloud practice to build fluency.")
	}

	if timing.SpeechRate > recommendFastRateAbove {
		recs = append(recs, "Slow down and enunciate each word fully.")
	}

	if len(phonemeErrors) > recommendPhonemeErrsOver {
		recs = append(recs, "Study phonetic symbols to sharpen your articulation.")
	}

	return recs
}
