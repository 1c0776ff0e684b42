package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/n1kko777/sber-agents/internal/domain"
)

type fakeClient struct {
	response domain.ChatResponse
	err      error
	lastReq  domain.ChatRequest
}

func (f *fakeClient) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &f.response, nil
}

func (f *fakeClient) Name() string { return "fake" }

func TestFormatContext_CitationBlocks(t *testing.T) {
	docs := []domain.Document{
		doc("tariffs.pdf", 3, "Ставка 16% годовых."),
		doc("faq.json", 0, "Вопрос: Как открыть вклад?\nОтвет: В приложении."),
	}
	got := FormatContext(docs)

	if !strings.Contains(got, "[Источник 1: tariffs.pdf, стр. 3]") {
		t.Fatalf("missing paged citation header:\n%s", got)
	}
	if !strings.Contains(got, "[Источник 2: faq.json]") {
		t.Fatalf("missing pageless citation header:\n%s", got)
	}
	if !strings.Contains(got, "\n\n---\n\n") {
		t.Fatal("blocks must be separated by a horizontal rule")
	}
	if strings.Contains(got, "faq.json, стр.") {
		t.Fatal("pageless source must not carry a page number")
	}
}

func TestSynthesizer_EmptyContextShortCircuits(t *testing.T) {
	client := &fakeClient{}
	s := &Synthesizer{Client: client, Prompt: "отвечай по контексту"}

	answer, err := s.Answer(context.Background(), "вопрос", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != noContextAnswer {
		t.Fatalf("expected the no-context answer, got %q", answer)
	}
	if client.lastReq.Messages != nil {
		t.Fatal("no model call expected for empty context")
	}
}

func TestSynthesizer_SendsContextAndQuestion(t *testing.T) {
	client := &fakeClient{response: domain.ChatResponse{Content: "  Ответ.  "}}
	s := &Synthesizer{Client: client, Prompt: "системный промпт", Model: "test-model"}

	answer, err := s.Answer(context.Background(), "какая ставка?", []domain.Document{
		doc("tariffs.pdf", 1, "Ставка 16%."),
	})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "Ответ." {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}
	if len(client.lastReq.Messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(client.lastReq.Messages))
	}
	user := client.lastReq.Messages[1].Content
	if !strings.Contains(user, "какая ставка?") || !strings.Contains(user, "Ставка 16%.") {
		t.Fatalf("user message must carry question and context:\n%s", user)
	}
}
