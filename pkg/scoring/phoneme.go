package scoring

import (
	"github.com/antzucaro/matchr"
)

// jwLowSeverity is the Jaro-Winkler similarity above which a discrepancy in
// two phonetically equivalent words is considered cosmetic.
const jwLowSeverity = 0.90

// DetectPhonemeErrors scans the positionally aligned word pairs of the
// expected text and transcription and flags one discrepancy per misread
// pair.
//
// Detection is grapheme-level, not acoustic: for every pair whose tokens
// differ, the first divergence point is located by walking both words from
// the left and classified by the length relation of the remainders —
// substitution when both words continue, insertion when only the spoken word
// has extra material, deletion when expected material is missing. A fully
// missing word (transcription shorter than the expected text) is reported as
// a deletion of the whole word.
//
// Severity grades the pair by pronunciation distance using Double Metaphone:
// when the two words share their primary code the slip is cosmetic
// ([SeverityLow], further confirmed by Jaro-Winkler similarity), a partial
// code overlap is [SeverityMedium], and phonetically disjoint words are
// [SeverityHigh].
//
// Position values are character offsets into the normalised transcription
// (lowercased, single-space separated). Detection order follows expected
// word order, so output is deterministic.
func DetectPhonemeErrors(expectedText, transcription string) []PhonemeError {
	expected := Tokenize(expectedText)
	actual := Tokenize(transcription)

	var errs []PhonemeError
	offset := 0

	for i, word := range expected {
		var aligned string
		if i < len(actual) {
			aligned = actual[i]
		}

		if word != aligned {
			if e, ok := diffWords(word, aligned, offset); ok {
				errs = append(errs, e)
			}
		}

		if i < len(actual) {
			offset += len(actual[i]) + 1
		}
	}

	return errs
}

// diffWords locates the first divergence between an expected word and the
// aligned spoken token and builds a [PhonemeError] for it. pos is the
// character offset of the token within the normalised transcription.
func diffWords(expected, actual string, pos int) (PhonemeError, bool) {
	if actual == "" {
		return PhonemeError{
			Position:     pos,
			Expected:     expected,
			Actual:       "",
			Type:         ErrorDeletion,
			Severity:     SeverityHigh,
			ExpectedWord: expected,
			ActualWord:   "",
		}, true
	}

	// Walk past the common prefix.
	i := 0
	for i < len(expected) && i < len(actual) && expected[i] == actual[i] {
		i++
	}

	var errType ErrorType
	var expGrapheme, actGrapheme string

	switch {
	case i < len(expected) && i < len(actual):
		errType = ErrorSubstitution
		expGrapheme = string(expected[i])
		actGrapheme = string(actual[i])
	case i < len(actual):
		errType = ErrorInsertion
		actGrapheme = string(actual[i])
	case i < len(expected):
		errType = ErrorDeletion
		expGrapheme = string(expected[i])
	default:
		// Identical words; caller filtered these already.
		return PhonemeError{}, false
	}

	return PhonemeError{
		Position:     pos + i,
		Expected:     expGrapheme,
		Actual:       actGrapheme,
		Type:         errType,
		Severity:     phoneticSeverity(expected, actual),
		ExpectedWord: expected,
		ActualWord:   actual,
	}, true
}

// phoneticSeverity grades how strongly the spoken token diverges from the
// expected word in pronunciation rather than spelling.
func phoneticSeverity(expected, actual string) Severity {
	ep, es := matchr.DoubleMetaphone(expected)
	ap, as := matchr.DoubleMetaphone(actual)

	if ep != "" && ep == ap {
		// Same primary code: the words sound alike. Confirm with string
		// similarity so that long words with coincidentally equal codes are
		// not dismissed entirely.
		if matchr.JaroWinkler(expected, actual, false) >= jwLowSeverity {
			return SeverityLow
		}
		return SeverityMedium
	}

	// Any cross overlap between primary and secondary codes.
	for _, e := range []string{ep, es} {
		if e == "" {
			continue
		}
		if e == ap || e == as {
			return SeverityMedium
		}
	}

	return SeverityHigh
}
