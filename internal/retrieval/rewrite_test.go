package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/n1kko777/sber-agents/internal/domain"
)

func TestRewriter_NoHistorySkipsModelCall(t *testing.T) {
	client := &fakeClient{}
	r := &Rewriter{Client: client, Prompt: "перефразируй"}

	got, err := r.Transform(context.Background(), nil, "  какая ставка?  ")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if got != "какая ставка?" {
		t.Fatalf("expected the trimmed question, got %q", got)
	}
	if client.lastReq.Messages != nil {
		t.Fatal("no model call expected without history")
	}
}

func TestRewriter_UsesHistory(t *testing.T) {
	client := &fakeClient{response: domain.ChatResponse{Content: "ставка по вкладу Лучший процент"}}
	r := &Rewriter{Client: client, Prompt: "перефразируй"}

	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "расскажи про вклад Лучший процент"},
		{Role: domain.RoleAssistant, Content: "это вклад с повышенной ставкой"},
		{Role: domain.RoleTool, Content: "служебный текст"},
	}
	got, err := r.Transform(context.Background(), history, "а какая ставка?")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if got != "ставка по вкладу Лучший процент" {
		t.Fatalf("unexpected rewrite: %q", got)
	}

	user := client.lastReq.Messages[1].Content
	if !strings.Contains(user, "Лучший процент") || !strings.Contains(user, "а какая ставка?") {
		t.Fatalf("prompt must carry history and question:\n%s", user)
	}
	if strings.Contains(user, "служебный текст") {
		t.Fatal("tool turns must not leak into the rewrite prompt")
	}
}

func TestRewriter_EmptyRewriteFallsBack(t *testing.T) {
	client := &fakeClient{response: domain.ChatResponse{Content: "   "}}
	r := &Rewriter{Client: client, Prompt: "перефразируй"}

	history := []domain.Turn{{Role: domain.RoleUser, Content: "контекст"}}
	got, err := r.Transform(context.Background(), history, "вопрос")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if got != "вопрос" {
		t.Fatalf("expected fallback to the original question, got %q", got)
	}
}
