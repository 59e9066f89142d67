package scoring_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/accentor-ai/accentor/pkg/scoring"
)

func perfectWords(n int) []scoring.WordScore {
	scores := make([]scoring.WordScore, n)
	for i := range scores {
		scores[i] = scoring.WordScore{Word: "word", Actual: "word", Score: 100, IsCorrect: true}
	}
	return scores
}

func TestSynthesizeFeedback_Strengths(t *testing.T) {
	t.Parallel()

	timing := scoring.TimingAnalysis{SpeechRate: 140}
	fb := scoring.SynthesizeFeedback(perfectWords(5), nil, timing, 3)

	if !slices.Contains(fb.Strengths, "You pronounced most words correctly.") {
		t.Errorf("Strengths=%v, want word-correctness strength", fb.Strengths)
	}
	if !slices.Contains(fb.Strengths, "Your speaking pace is appropriate.") {
		t.Errorf("Strengths=%v, want pace strength", fb.Strengths)
	}
}

func TestSynthesizeFeedback_NoStrengthsForPoorAttempt(t *testing.T) {
	t.Parallel()

	words := []scoring.WordScore{
		{Word: "hello", Actual: "", Score: 0, IsCorrect: false},
		{Word: "world", Actual: "", Score: 0, IsCorrect: false},
	}
	timing := scoring.TimingAnalysis{SpeechRate: 40}

	fb := scoring.SynthesizeFeedback(words, nil, timing, 3)
	if len(fb.Strengths) != 0 {
		t.Errorf("Strengths=%v, want none", fb.Strengths)
	}
}

func TestSynthesizeFeedback_PaceBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want bool
	}{
		{119, false},
		{120, true},
		{160, true},
		{161, false},
	}
	for _, tt := range tests {
		fb := scoring.SynthesizeFeedback(perfectWords(1), nil, scoring.TimingAnalysis{SpeechRate: tt.rate}, 3)
		got := slices.Contains(fb.Strengths, "Your speaking pace is appropriate.")
		if got != tt.want {
			t.Errorf("rate %v: pace strength present=%v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestSynthesizeFeedback_PhonemeErrorEntries(t *testing.T) {
	t.Parallel()

	phonemeErrors := []scoring.PhonemeError{
		{ExpectedWord: "cappuccino", ActualWord: "cappucino", Type: scoring.ErrorDeletion},
		{ExpectedWord: "world", ActualWord: "", Type: scoring.ErrorDeletion},
	}

	fb := scoring.SynthesizeFeedback(perfectWords(2), phonemeErrors, scoring.TimingAnalysis{}, 3)

	if len(fb.AreasForImprovement) != 2 {
		t.Fatalf("AreasForImprovement=%v, want 2 entries", fb.AreasForImprovement)
	}
	if len(fb.SpecificTips) != 2 {
		t.Fatalf("SpecificTips=%v, want 2 entries", fb.SpecificTips)
	}

	if want := `You said "cappucino" where "cappuccino" was expected.`; fb.AreasForImprovement[0] != want {
		t.Errorf("improvement[0]=%q, want %q", fb.AreasForImprovement[0], want)
	}
	// A fully missing word gets the dedicated phrasing.
	if want := `The word "world" was missing from your attempt.`; fb.AreasForImprovement[1] != want {
		t.Errorf("improvement[1]=%q, want %q", fb.AreasForImprovement[1], want)
	}
	if !strings.Contains(fb.SpecificTips[0], `"cappuccino"`) {
		t.Errorf("tip[0]=%q, want mention of the expected word", fb.SpecificTips[0])
	}
}

func TestSynthesizeFeedback_Hesitation(t *testing.T) {
	t.Parallel()

	timing := scoring.TimingAnalysis{PauseCount: 3}
	fb := scoring.SynthesizeFeedback(perfectWords(2), nil, timing, 3)

	if !slices.Contains(fb.AreasForImprovement, "Too much hesitation between words.") {
		t.Errorf("AreasForImprovement=%v, want hesitation entry for 3 pauses", fb.AreasForImprovement)
	}

	// Exactly at the threshold no flag fires.
	fb = scoring.SynthesizeFeedback(perfectWords(2), nil, scoring.TimingAnalysis{PauseCount: 2}, 3)
	if slices.Contains(fb.AreasForImprovement, "Too much hesitation between words.") {
		t.Errorf("AreasForImprovement=%v, want no hesitation entry for 2 pauses", fb.AreasForImprovement)
	}
}

func TestSynthesizeFeedback_LevelTips(t *testing.T) {
	t.Parallel()

	const (
		beginnerTip = "Speak slowly and clearly — accuracy before speed."
		advancedTip = "Focus on natural intonation and rhythm."
	)

	tests := []struct {
		level        int
		wantBeginner bool
		wantAdvanced bool
	}{
		{1, true, false},
		{2, true, false},
		{3, false, false},
		{4, false, true},
		{5, false, true},
	}
	for _, tt := range tests {
		fb := scoring.SynthesizeFeedback(perfectWords(1), nil, scoring.TimingAnalysis{}, tt.level)
		if got := slices.Contains(fb.SpecificTips, beginnerTip); got != tt.wantBeginner {
			t.Errorf("level %d: beginner tip present=%v, want %v", tt.level, got, tt.wantBeginner)
		}
		if got := slices.Contains(fb.SpecificTips, advancedTip); got != tt.wantAdvanced {
			t.Errorf("level %d: advanced tip present=%v, want %v", tt.level, got, tt.wantAdvanced)
		}
	}
}

func TestSynthesizeFeedback_AssessmentBands(t *testing.T) {
	t.Parallel()

	mkWords := func(score int) []scoring.WordScore {
		return []scoring.WordScore{{Word: "w", Actual: "w", Score: score}}
	}

	tests := []struct {
		score int
		want  string
	}{
		{95, "Excellent! Your pronunciation is clear and accurate."},
		{90, "Excellent! Your pronunciation is clear and accurate."},
		{85, "Good job! Your pronunciation is solid with only minor slips."},
		{75, "Fair effort — a few words still need attention."},
		{65, "Keep practicing. You are on the right track."},
		{30, "This sentence needs more practice. Try it again slowly."},
		{0, "This sentence needs more practice. Try it again slowly."},
	}
	for _, tt := range tests {
		fb := scoring.SynthesizeFeedback(mkWords(tt.score), nil, scoring.TimingAnalysis{}, 3)
		if fb.OverallAssessment != tt.want {
			t.Errorf("score %d: assessment=%q, want %q", tt.score, fb.OverallAssessment, tt.want)
		}
	}
}

func TestSynthesizeFeedback_EmptySlicesNotNil(t *testing.T) {
	t.Parallel()

	fb := scoring.SynthesizeFeedback(nil, nil, scoring.TimingAnalysis{}, 3)
	if fb.Strengths == nil || fb.AreasForImprovement == nil || fb.SpecificTips == nil {
		t.Errorf("feedback slices must be empty, not nil: %+v", fb)
	}
}
