package checkpoint

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/n1kko777/sber-agents/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleThread(id string) *domain.Thread {
	return &domain.Thread{
		ID: id,
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Content: "какая ставка по вкладу?"},
			{Role: domain.RoleAssistant, Content: "", ToolCalls: []domain.ToolCall{
				{ID: "call-1", Name: "rag_search", Arguments: map[string]any{"query": "ставка"}},
			}},
			{Role: domain.RoleTool, Content: `{"sources":[]}`, ToolCallID: "call-1", ToolName: "rag_search"},
		},
		PendingInterrupt: &domain.InterruptRequest{
			ID:               "int-1",
			ToolName:         "open_deposit",
			ToolArgs:         map[string]any{"amount": 100000.0},
			AllowedDecisions: []domain.InterruptDecision{domain.DecisionApprove, domain.DecisionReject},
		},
		ModelCalls: 2,
		ToolCalls:  1,
		UpdatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func assertThreadEqual(t *testing.T, want, got *domain.Thread) {
	t.Helper()
	if got == nil {
		t.Fatal("thread not found")
	}
	if got.ID != want.ID {
		t.Fatalf("id: want %q, got %q", want.ID, got.ID)
	}
	if len(got.Turns) != len(want.Turns) {
		t.Fatalf("turns: want %d, got %d", len(want.Turns), len(got.Turns))
	}
	for i := range want.Turns {
		if got.Turns[i].Role != want.Turns[i].Role || got.Turns[i].Content != want.Turns[i].Content {
			t.Fatalf("turn %d differs: want %+v, got %+v", i, want.Turns[i], got.Turns[i])
		}
	}
	if got.Turns[1].ToolCalls[0].Name != "rag_search" {
		t.Fatalf("tool call lost: %+v", got.Turns[1])
	}
	if got.PendingInterrupt == nil || got.PendingInterrupt.ID != want.PendingInterrupt.ID {
		t.Fatalf("interrupt lost: %+v", got.PendingInterrupt)
	}
	if !got.PendingInterrupt.Allows(domain.DecisionReject) {
		t.Fatal("allowed decisions lost")
	}
	if got.ModelCalls != want.ModelCalls || got.ToolCalls != want.ToolCalls {
		t.Fatalf("counters lost: %d/%d", got.ModelCalls, got.ToolCalls)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	want := sampleThread("t1")
	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertThreadEqual(t, want, got)
}

func TestMemoryStore_GetUnknownReturnsNil(t *testing.T) {
	store := NewMemoryStore()
	got, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for an unknown thread")
	}
}

func TestMemoryStore_CopiesOnPutAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := sampleThread("t1")
	if err := store.Put(ctx, original); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Mutating the caller's thread after Put must not change stored state.
	original.Turns[0].Content = "изменено"
	got, _ := store.Get(ctx, "t1")
	if got.Turns[0].Content == "изменено" {
		t.Fatal("store must not alias the caller's thread")
	}

	// Mutating a Get result must not change stored state either.
	got.Turns[0].Content = "еще раз изменено"
	again, _ := store.Get(ctx, "t1")
	if again.Turns[0].Content == "еще раз изменено" {
		t.Fatal("store must return independent copies")
	}
}

func TestMemoryStore_RejectsEmptyID(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Put(context.Background(), &domain.Thread{}); err == nil {
		t.Fatal("expected error for an empty thread id")
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.db")
	store, err := NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	want := sampleThread("t1")
	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertThreadEqual(t, want, got)
}

func TestSQLiteStore_ReplaceIsWholeThread(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.db")
	store, err := NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	first := sampleThread("t1")
	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("put: %v", err)
	}

	second := sampleThread("t1")
	second.Turns = second.Turns[:1]
	second.PendingInterrupt = nil
	second.ModelCalls = 0
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Turns) != 1 {
		t.Fatalf("expected replaced thread with 1 turn, got %d", len(got.Turns))
	}
	if got.PendingInterrupt != nil {
		t.Fatal("cleared interrupt must stay cleared")
	}
}

func TestSQLiteStore_GetUnknownReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.db")
	store, err := NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	got, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for an unknown thread")
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.db")
	store, err := NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	want := sampleThread("t1")
	if err := store.Put(context.Background(), want); err != nil {
		t.Fatalf("put: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	assertThreadEqual(t, want, got)
}
