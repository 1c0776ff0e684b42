package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// Retriever is the slice of the retrieval pipeline the search tool needs.
type Retriever interface {
	Retrieve(ctx context.Context, history []domain.Turn, question string) ([]domain.Document, error)
}

// KnowledgeSearchTool exposes the document retrieval pipeline to the model.
// The payload is a JSON envelope so the agent can later extract the cited
// sources from the conversation history. Retrieval failures are reported
// inside the envelope, never as a tool error, so the model can still answer
// from its own knowledge.
type KnowledgeSearchTool struct {
	retriever Retriever
	logger    *slog.Logger
}

func NewKnowledgeSearchTool(retriever Retriever, logger *slog.Logger) *KnowledgeSearchTool {
	return &KnowledgeSearchTool{retriever: retriever, logger: logger}
}

func (t *KnowledgeSearchTool) Name() string { return "rag_search" }
func (t *KnowledgeSearchTool) Description() string {
	return "Поиск информации в базе знаний банка: условия продуктов, тарифы, правила обслуживания. Используй для любых вопросов о продуктах и услугах банка."
}
func (t *KnowledgeSearchTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"query": {Type: "string", Description: "Поисковый запрос на русском языке"},
		},
		[]string{"query"},
	)
}

type searchEnvelope struct {
	Sources []domain.SourceRef `json:"sources"`
	Error   string             `json:"error,omitempty"`
}

func (t *KnowledgeSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := ArgsString(args, "query")
	if query == "" {
		return marshalEnvelope(searchEnvelope{Sources: []domain.SourceRef{}, Error: "missing argument: query"}), nil
	}

	docs, err := t.retriever.Retrieve(ctx, nil, query)
	if err != nil {
		t.logger.Warn("knowledge search failed", "query", query, "error", err)
		return marshalEnvelope(searchEnvelope{Sources: []domain.SourceRef{}, Error: "поиск временно недоступен"}), nil
	}

	refs := make([]domain.SourceRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, domain.SourceRef{Source: d.Source, Page: d.Page, Text: d.Text})
	}
	return marshalEnvelope(searchEnvelope{Sources: refs}), nil
}

func marshalEnvelope(env searchEnvelope) string {
	raw, err := json.Marshal(env)
	if err != nil {
		return `{"sources":[]}`
	}
	return string(raw)
}
