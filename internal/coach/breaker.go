package coach

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCoachUnavailable is returned by [GuardedCompleter.Complete] while the
// guard is open. The analyzer treats it like any other coach failure: the
// note is omitted and the attempt succeeds.
var ErrCoachUnavailable = errors.New("coach: completer temporarily disabled after repeated failures")

const (
	defaultMaxFailures = 5
	defaultCooldown    = 30 * time.Second
)

// GuardedCompleter wraps a [Completer] with a failure guard so that a dead
// LLM backend does not add per-attempt latency. After maxFailures consecutive
// failures the guard opens and calls fail fast with [ErrCoachUnavailable];
// once the cooldown elapses a single probe call is let through, and its
// outcome decides whether the guard closes again.
//
// Safe for concurrent use.
type GuardedCompleter struct {
	inner       Completer
	maxFailures int
	cooldown    time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
}

// Compile-time interface check.
var _ Completer = (*GuardedCompleter)(nil)

// Guard wraps inner with default failure limits.
func Guard(inner Completer) *GuardedCompleter {
	return &GuardedCompleter{
		inner:       inner,
		maxFailures: defaultMaxFailures,
		cooldown:    defaultCooldown,
	}
}

// Complete implements [Completer].
func (g *GuardedCompleter) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if !g.allow() {
		return "", ErrCoachUnavailable
	}

	out, err := g.inner.Complete(ctx, systemPrompt, userMessage)
	g.record(ctx, err)
	if err != nil {
		return "", err
	}
	return out, nil
}

// allow reports whether a call may proceed, claiming the probe slot when the
// guard is open and the cooldown has elapsed.
func (g *GuardedCompleter) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failures < g.maxFailures {
		return true
	}
	if g.probing || time.Since(g.openedAt) < g.cooldown {
		return false
	}
	g.probing = true
	return true
}

// record folds one call outcome into the guard state.
func (g *GuardedCompleter) record(ctx context.Context, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wasProbe := g.probing
	g.probing = false

	if err == nil {
		if g.failures >= g.maxFailures {
			slog.InfoContext(ctx, "coach completer recovered, re-enabling notes")
		}
		g.failures = 0
		return
	}

	if wasProbe {
		// The probe failed; restart the cooldown window.
		g.openedAt = time.Now()
		return
	}

	g.failures++
	if g.failures == g.maxFailures {
		g.openedAt = time.Now()
		slog.WarnContext(ctx, "coach completer disabled after repeated failures",
			"failures", g.failures, "cooldown", g.cooldown)
	}
}
