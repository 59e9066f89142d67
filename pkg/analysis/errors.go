package analysis

import (
	"fmt"
	"time"
)

// TranscriptionTimeoutError reports that the transcription provider did not
// return a usable transcription within the allotted time.
type TranscriptionTimeoutError struct {
	// Timeout is the deadline that was exceeded.
	Timeout time.Duration

	// Err is the underlying context error.
	Err error
}

func (e *TranscriptionTimeoutError) Error() string {
	return fmt.Sprintf("analysis: transcription timed out after %s: %v", e.Timeout, e.Err)
}

func (e *TranscriptionTimeoutError) Unwrap() error { return e.Err }

// TranscriptionFailedError reports that the transcription provider returned
// an error other than a timeout.
type TranscriptionFailedError struct {
	Err error
}

func (e *TranscriptionFailedError) Error() string {
	return fmt.Sprintf("analysis: transcription failed: %v", e.Err)
}

func (e *TranscriptionFailedError) Unwrap() error { return e.Err }

// VoiceAnalysisError wraps any unexpected internal fault of the analysis
// pipeline. It is the only error type besides [scoring.ErrEmptyInput] and
// the two transcription errors above that crosses the public API boundary.
type VoiceAnalysisError struct {
	// Op names the pipeline step that failed.
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *VoiceAnalysisError) Error() string {
	return fmt.Sprintf("analysis: %s: %v", e.Op, e.Err)
}

func (e *VoiceAnalysisError) Unwrap() error { return e.Err }
