// Package export provides a simple attempt-log exporter for local
// development and offline data analysis. Attempts are appended as JSON lines
// to a local file, one record per analyzed attempt.
//
// For production-grade archival, use the PostgreSQL attempt store instead.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/accentor-ai/accentor/pkg/scoring"
)

// Record is a single attempt summary written to the file.
type Record struct {
	Timestamp          time.Time `json:"timestamp"`
	SessionID          string    `json:"session_id"`
	ExpectedText       string    `json:"expected_text"`
	Transcription      string    `json:"transcription"`
	PronunciationScore int       `json:"pronunciation_score"`
	AccuracyScore      int       `json:"accuracy_score"`
	FluencyScore       int       `json:"fluency_score"`
	CompletenessScore  int       `json:"completeness_score"`
	PhonemeErrorCount  int       `json:"phoneme_error_count"`
}

// FileStore appends attempt records as JSON lines to a local file.
// Thread-safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore that writes to the given path.
// The file is created on first write if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Log appends one attempt record to the file.
func (fs *FileStore) Log(sessionID, expectedText string, result *scoring.VoiceAnalysisResult) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	record := Record{
		Timestamp:          time.Now().UTC(),
		SessionID:          sessionID,
		ExpectedText:       expectedText,
		Transcription:      result.Transcription,
		PronunciationScore: result.PronunciationScore,
		AccuracyScore:      result.AccuracyScore,
		FluencyScore:       result.FluencyScore,
		CompletenessScore:  result.CompletenessScore,
		PhonemeErrorCount:  len(result.PhonemeErrors),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("export: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("export: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}
