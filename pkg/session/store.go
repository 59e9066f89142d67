// Package session defines the storage capabilities the Accentor engine
// consumes: a conversation log per practice session and an attempt archive
// for analysis results.
//
// Both are injected capabilities, never module-level singletons — callers
// pass a store into the server (or directly into their own orchestration)
// so that tests and alternative backends can swap implementations freely.
// The engine itself never persists anything; storage is entirely the
// caller's concern.
//
// Every implementation must be safe for concurrent use.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/accentor-ai/accentor/pkg/scoring"
)

// ErrNotFound is returned when a session or attempt does not exist.
var ErrNotFound = errors.New("session: not found")

// Turn is one entry in a session's conversation log.
type Turn struct {
	// Role identifies the author: "learner", "tutor" or "system".
	Role string `json:"role"`

	// Content is the turn's text.
	Content string `json:"content"`

	// CreatedAt is when the turn was recorded (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// ConversationStore is the injected conversation-memory capability.
type ConversationStore interface {
	// Append adds a turn to the session's log, creating the session on
	// first use.
	Append(ctx context.Context, sessionID string, turn Turn) error

	// Recent returns up to limit most recent turns in chronological order.
	// A limit of 0 applies an implementation default.
	Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// Trim discards all but the keep most recent turns of the session.
	Trim(ctx context.Context, sessionID string, keep int) error
}

// Attempt is one analyzed pronunciation attempt, archived with its full
// result.
type Attempt struct {
	ID           string                      `json:"id"`
	SessionID    string                      `json:"session_id"`
	ExpectedText string                      `json:"expected_text"`
	Result       scoring.VoiceAnalysisResult `json:"result"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// AttemptStore archives serialized analysis results. The engine treats the
// result as an opaque JSON document; schema design belongs to the backend.
type AttemptStore interface {
	// SaveAttempt archives one attempt. The store assigns Attempt.ID when
	// it is empty.
	SaveAttempt(ctx context.Context, attempt Attempt) error

	// ListAttempts returns up to limit most recent attempts of a session,
	// newest first. A limit of 0 applies an implementation default.
	ListAttempts(ctx context.Context, sessionID string, limit int) ([]Attempt, error)
}
