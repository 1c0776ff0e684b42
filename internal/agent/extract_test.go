package agent

import (
	"testing"

	"github.com/n1kko777/sber-agents/internal/domain"
)

func TestExtractDocuments_OnlyAfterLastUserTurn(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "первый вопрос"},
		{Role: domain.RoleTool, ToolName: searchToolName,
			Content: `{"sources":[{"source":"old.pdf","page":1,"text":"старое"}]}`},
		{Role: domain.RoleAssistant, Content: "ответ"},
		{Role: domain.RoleUser, Content: "второй вопрос"},
		{Role: domain.RoleTool, ToolName: searchToolName,
			Content: `{"sources":[{"source":"new.pdf","page":2,"text":"новое"}]}`},
	}

	refs := ExtractDocuments(turns, testLogger())
	if len(refs) != 1 {
		t.Fatalf("expected 1 source, got %d", len(refs))
	}
	if refs[0].Source != "new.pdf" {
		t.Fatalf("expected the source from the current exchange, got %q", refs[0].Source)
	}
}

func TestExtractDocuments_MultipleSearchesAccumulate(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "вопрос"},
		{Role: domain.RoleTool, ToolName: searchToolName,
			Content: `{"sources":[{"source":"a.pdf","page":1,"text":"а"}]}`},
		{Role: domain.RoleTool, ToolName: searchToolName,
			Content: `{"sources":[{"source":"b.pdf","page":2,"text":"б"}]}`},
	}
	refs := ExtractDocuments(turns, testLogger())
	if len(refs) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(refs))
	}
	if refs[0].Source != "a.pdf" || refs[1].Source != "b.pdf" {
		t.Fatalf("sources out of order: %+v", refs)
	}
}

func TestExtractDocuments_SkipsOtherToolsAndBadJSON(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "вопрос"},
		{Role: domain.RoleTool, ToolName: "currency_converter", Content: "1 USD = 80 RUB"},
		{Role: domain.RoleTool, ToolName: searchToolName, Content: "не json"},
		{Role: domain.RoleTool, ToolName: searchToolName,
			Content: `{"sources":[{"source":"ok.pdf","text":"текст"}]}`},
	}
	refs := ExtractDocuments(turns, testLogger())
	if len(refs) != 1 || refs[0].Source != "ok.pdf" {
		t.Fatalf("expected only the valid search payload, got %+v", refs)
	}
}

func TestExtractDocuments_NoTurns(t *testing.T) {
	if refs := ExtractDocuments(nil, testLogger()); len(refs) != 0 {
		t.Fatalf("expected no sources, got %d", len(refs))
	}
}
