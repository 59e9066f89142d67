package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlConversationTurns = `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id         BIGSERIAL   PRIMARY KEY,
    session_id TEXT        NOT NULL,
    role       TEXT        NOT NULL,
    content    TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_session
    ON conversation_turns (session_id, created_at);
`

const ddlAttempts = `
CREATE TABLE IF NOT EXISTS attempts (
    id            BIGSERIAL   PRIMARY KEY,
    session_id    TEXT        NOT NULL,
    expected_text TEXT        NOT NULL,
    result        JSONB       NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_attempts_session
    ON attempts (session_id, created_at);
`

// Migrate creates all required tables and indexes if they do not exist.
// It is idempotent and safe to call on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{ddlConversationTurns, ddlAttempts} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
