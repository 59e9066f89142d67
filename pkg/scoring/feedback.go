package scoring

import "fmt"

// Speaking-pace band considered appropriate for learners, in words per
// minute.
const (
	paceLowerBound = 120
	paceUpperBound = 160
)

// correctFractionStrength is the fraction of correct words above which the
// "most words correct" strength fires.
const correctFractionStrength = 0.8

// hesitationPauseThreshold is the pause count above which the attempt is
// flagged as hesitant.
const hesitationPauseThreshold = 2

// assessmentBands maps mean word score to an overall assessment, evaluated
// top-down. Each band is inclusive on its lower bound, so bands are
// half-open [lower, next) except the top one which covers [90, 100].
var assessmentBands = []struct {
	minScore float64
	message  string
}{
	{90, "Excellent! Your pronunciation is clear and accurate."},
	{80, "Good job! Your pronunciation is solid with only minor slips."},
	{70, "Fair effort — a few words still need attention."},
	{60, "Keep practicing. You are on the right track."},
	{0, "This sentence needs more practice. Try it again slowly."},
}

// SynthesizeFeedback builds the rule-based feedback report for one attempt.
//
// The rule table is fixed and evaluated in order; every applicable rule
// fires, none are mutually exclusive except the level-dependent tip:
//
//  1. More than 80% of words correct adds a strength.
//  2. A speaking pace within 120–160 wpm adds a strength.
//  3. Every phoneme error adds one improvement area and one articulation tip.
//  4. More than two pauses adds a hesitation improvement and a rehearsal tip.
//  5. Learner level 1–2 appends a beginner tip; level 4–5 an advanced tip.
//  6. The overall assessment is selected from the score band table.
//
// userLevel follows the 1..5 proficiency scale; callers validate the range.
func SynthesizeFeedback(wordScores []WordScore, phonemeErrors []PhonemeError, timing TimingAnalysis, userLevel int) PronunciationFeedback {
	fb := PronunciationFeedback{
		Strengths:           []string{},
		AreasForImprovement: []string{},
		SpecificTips:        []string{},
	}

	// Rule 1: word correctness.
	if len(wordScores) > 0 {
		correct := 0
		for _, ws := range wordScores {
			if ws.IsCorrect {
				correct++
			}
		}
		if float64(correct)/float64(len(wordScores)) > correctFractionStrength {
			fb.Strengths = append(fb.Strengths, "You pronounced most words correctly.")
		}
	}

	// Rule 2: speaking pace.
	if timing.SpeechRate >= paceLowerBound && timing.SpeechRate <= paceUpperBound {
		fb.Strengths = append(fb.Strengths, "Your speaking pace is appropriate.")
	}

	// Rule 3: phoneme errors.
	for _, pe := range phonemeErrors {
		fb.AreasForImprovement = append(fb.AreasForImprovement, improvementFor(pe))
		fb.SpecificTips = append(fb.SpecificTips, tipFor(pe))
	}

	// Rule 4: hesitation.
	if timing.PauseCount > hesitationPauseThreshold {
		fb.AreasForImprovement = append(fb.AreasForImprovement, "Too much hesitation between words.")
		fb.SpecificTips = append(fb.SpecificTips, "Mentally rehearse the sentence before speaking.")
	}

	// Rule 5: level-dependent tip.
	switch {
	case userLevel <= 2:
		fb.SpecificTips = append(fb.SpecificTips, "Speak slowly and clearly — accuracy before speed.")
	case userLevel >= 4:
		fb.SpecificTips = append(fb.SpecificTips, "Focus on natural intonation and rhythm.")
	}

	// Rule 6: banded overall assessment.
	fb.OverallAssessment = assessmentFor(meanWordScore(wordScores))

	return fb
}

// assessmentFor selects the overall assessment message for a mean word
// score.
func assessmentFor(mean float64) string {
	for _, band := range assessmentBands {
		if mean >= band.minScore {
			return band.message
		}
	}
	return assessmentBands[len(assessmentBands)-1].message
}

// improvementFor renders the improvement-area entry for one phoneme error.
func improvementFor(pe PhonemeError) string {
	if pe.ActualWord == "" {
		return fmt.Sprintf("The word %q was missing from your attempt.", pe.ExpectedWord)
	}
	return fmt.Sprintf("You said %q where %q was expected.", pe.ActualWord, pe.ExpectedWord)
}

// tipFor renders the articulation tip for one phoneme error.
func tipFor(pe PhonemeError) string {
	return fmt.Sprintf("Practice articulating %q — say it slowly first, then at normal speed.", pe.ExpectedWord)
}
