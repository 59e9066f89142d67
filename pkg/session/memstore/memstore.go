// Package memstore provides in-memory implementations of the session
// storage interfaces, suitable for tests and single-process development
// setups.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/accentor-ai/accentor/pkg/session"
)

// defaultLimit caps Recent/ListAttempts results when the caller passes 0.
const defaultLimit = 50

// Store is a mutex-guarded in-memory session store. The zero value is not
// usable; construct with [New]. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	turns    map[string][]session.Turn
	attempts map[string][]session.Attempt
	nextID   int
}

// Compile-time interface checks.
var (
	_ session.ConversationStore = (*Store)(nil)
	_ session.AttemptStore      = (*Store)(nil)
)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		turns:    make(map[string][]session.Turn),
		attempts: make(map[string][]session.Attempt),
	}
}

// Append implements [session.ConversationStore].
func (s *Store) Append(_ context.Context, sessionID string, turn session.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	return nil
}

// Recent implements [session.ConversationStore].
func (s *Store) Recent(_ context.Context, sessionID string, limit int) ([]session.Turn, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]session.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Trim implements [session.ConversationStore].
func (s *Store) Trim(_ context.Context, sessionID string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns[sessionID]
	if len(turns) > keep {
		trimmed := make([]session.Turn, keep)
		copy(trimmed, turns[len(turns)-keep:])
		s.turns[sessionID] = trimmed
	}
	return nil
}

// SaveAttempt implements [session.AttemptStore].
func (s *Store) SaveAttempt(_ context.Context, attempt session.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if attempt.ID == "" {
		s.nextID++
		attempt.ID = fmt.Sprintf("mem-%d", s.nextID)
	}
	s.attempts[attempt.SessionID] = append(s.attempts[attempt.SessionID], attempt)
	return nil
}

// ListAttempts implements [session.AttemptStore].
func (s *Store) ListAttempts(_ context.Context, sessionID string, limit int) ([]session.Attempt, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	attempts := s.attempts[sessionID]

	// Newest first.
	out := make([]session.Attempt, 0, min(limit, len(attempts)))
	for i := len(attempts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, attempts[i])
	}
	return out, nil
}
