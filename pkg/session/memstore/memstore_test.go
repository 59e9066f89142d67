package memstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/accentor-ai/accentor/pkg/scoring"
	"github.com/accentor-ai/accentor/pkg/session"
	"github.com/accentor-ai/accentor/pkg/session/memstore"
)

func TestAppendAndRecent(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		turn := session.Turn{Role: "learner", Content: fmt.Sprintf("turn %d", i)}
		if err := st.Append(ctx, "s1", turn); err != nil {
			t.Fatalf("Append: unexpected error: %v", err)
		}
	}

	turns, err := st.Recent(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("Recent: unexpected error: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("Recent: got %d turns, want 3", len(turns))
	}
	// Chronological order.
	if turns[0].Content != "turn 0" || turns[2].Content != "turn 2" {
		t.Errorf("Recent order: got %v", turns)
	}
}

func TestRecent_Limit(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = st.Append(ctx, "s1", session.Turn{Content: fmt.Sprintf("turn %d", i)})
	}

	turns, err := st.Recent(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("Recent: unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("Recent limit 2: got %d turns", len(turns))
	}
	// The two most recent, still chronological.
	if turns[0].Content != "turn 3" || turns[1].Content != "turn 4" {
		t.Errorf("Recent: got %v, want turns 3 and 4", turns)
	}
}

func TestRecent_UnknownSession(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	turns, err := st.Recent(context.Background(), "missing", 0)
	if err != nil {
		t.Fatalf("Recent: unexpected error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("Recent(unknown): got %v, want empty", turns)
	}
}

func TestTrim(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = st.Append(ctx, "s1", session.Turn{Content: fmt.Sprintf("turn %d", i)})
	}
	if err := st.Trim(ctx, "s1", 2); err != nil {
		t.Fatalf("Trim: unexpected error: %v", err)
	}

	turns, _ := st.Recent(ctx, "s1", 0)
	if len(turns) != 2 {
		t.Fatalf("after Trim(2): got %d turns", len(turns))
	}
	if turns[0].Content != "turn 3" {
		t.Errorf("after Trim: oldest kept=%q, want %q", turns[0].Content, "turn 3")
	}
}

func TestSaveAttempt_AssignsID(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	ctx := context.Background()

	attempt := session.Attempt{
		SessionID:    "s1",
		ExpectedText: "hello world",
		Result:       scoring.VoiceAnalysisResult{PronunciationScore: 95},
	}
	if err := st.SaveAttempt(ctx, attempt); err != nil {
		t.Fatalf("SaveAttempt: unexpected error: %v", err)
	}

	got, err := st.ListAttempts(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("ListAttempts: unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListAttempts: got %d attempts, want 1", len(got))
	}
	if got[0].ID == "" {
		t.Error("saved attempt has empty ID, want a generated one")
	}
	if got[0].Result.PronunciationScore != 95 {
		t.Errorf("PronunciationScore=%d, want 95", got[0].Result.PronunciationScore)
	}
}

func TestListAttempts_NewestFirst(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = st.SaveAttempt(ctx, session.Attempt{
			SessionID:    "s1",
			ExpectedText: fmt.Sprintf("sentence %d", i),
		})
	}

	got, err := st.ListAttempts(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("ListAttempts: unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListAttempts limit 2: got %d", len(got))
	}
	if got[0].ExpectedText != "sentence 2" || got[1].ExpectedText != "sentence 1" {
		t.Errorf("ListAttempts order: got %q then %q, want newest first", got[0].ExpectedText, got[1].ExpectedText)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	ctx := context.Background()

	_ = st.Append(ctx, "s1", session.Turn{Content: "a"})
	_ = st.Append(ctx, "s2", session.Turn{Content: "b"})

	turns, _ := st.Recent(ctx, "s1", 0)
	if len(turns) != 1 || turns[0].Content != "a" {
		t.Errorf("session s1 sees %v, want only its own turn", turns)
	}
}
