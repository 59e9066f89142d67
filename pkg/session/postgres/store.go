// Package postgres provides PostgreSQL-backed implementations of the
// session storage interfaces using a pgx connection pool.
//
// Analysis results are stored as JSONB documents: the engine owns the
// result's shape and the database only needs to archive and return it, so a
// relational decomposition of scores would add schema churn without queries
// that want it.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accentor-ai/accentor/pkg/scoring"
	"github.com/accentor-ai/accentor/pkg/session"
)

// defaultLimit caps Recent/ListAttempts results when the caller passes 0.
const defaultLimit = 50

// Compile-time interface checks.
var (
	_ session.ConversationStore = (*Store)(nil)
	_ session.AttemptStore      = (*Store)(nil)
)

// Store is the PostgreSQL-backed session store. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn and runs
// [Migrate] to ensure the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the database connection, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Append implements [session.ConversationStore].
func (s *Store) Append(ctx context.Context, sessionID string, turn session.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_turns (session_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sessionID, turn.Role, turn.Content, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres store: append turn: %w", err)
	}
	return nil
}

// Recent implements [session.ConversationStore].
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]session.Turn, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content, created_at FROM (
		     SELECT role, content, created_at
		     FROM conversation_turns
		     WHERE session_id = $1
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) latest
		 ORDER BY created_at ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query turns: %w", err)
	}
	defer rows.Close()

	turns := []session.Turn{}
	for rows.Next() {
		var t session.Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres store: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: iterate turns: %w", err)
	}
	return turns, nil
}

// Trim implements [session.ConversationStore].
func (s *Store) Trim(ctx context.Context, sessionID string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	_, err := s.pool.Exec(ctx,
		`DELETE FROM conversation_turns
		 WHERE session_id = $1
		   AND id NOT IN (
		       SELECT id FROM conversation_turns
		       WHERE session_id = $1
		       ORDER BY created_at DESC, id DESC
		       LIMIT $2
		   )`,
		sessionID, keep,
	)
	if err != nil {
		return fmt.Errorf("postgres store: trim turns: %w", err)
	}
	return nil
}

// SaveAttempt implements [session.AttemptStore].
func (s *Store) SaveAttempt(ctx context.Context, attempt session.Attempt) error {
	createdAt := attempt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(attempt.Result)
	if err != nil {
		return fmt.Errorf("postgres store: marshal result: %w", err)
	}

	if attempt.ID == "" {
		err = s.pool.QueryRow(ctx,
			`INSERT INTO attempts (session_id, expected_text, result, created_at)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id::text`,
			attempt.SessionID, attempt.ExpectedText, resultJSON, createdAt,
		).Scan(&attempt.ID)
	} else {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO attempts (id, session_id, expected_text, result, created_at)
			 VALUES ($1::bigint, $2, $3, $4, $5)`,
			attempt.ID, attempt.SessionID, attempt.ExpectedText, resultJSON, createdAt,
		)
	}
	if err != nil {
		return fmt.Errorf("postgres store: save attempt: %w", err)
	}
	return nil
}

// ListAttempts implements [session.AttemptStore].
func (s *Store) ListAttempts(ctx context.Context, sessionID string, limit int) ([]session.Attempt, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, session_id, expected_text, result, created_at
		 FROM attempts
		 WHERE session_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []session.Attempt{}
	for rows.Next() {
		var a session.Attempt
		var resultJSON []byte
		if err := rows.Scan(&a.ID, &a.SessionID, &a.ExpectedText, &resultJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres store: scan attempt: %w", err)
		}
		var result scoring.VoiceAnalysisResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("postgres store: unmarshal result: %w", err)
		}
		a.Result = result
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: iterate attempts: %w", err)
	}
	return attempts, nil
}
