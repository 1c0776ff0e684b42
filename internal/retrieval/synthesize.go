package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// noContextAnswer is returned verbatim when retrieval produced nothing to
// ground an answer on.
const noContextAnswer = "Нет доступной информации для ответа на этот вопрос."

// Synthesizer produces a grounded answer from retrieved context via a single
// completion call. No retries; transport failures surface to the caller.
type Synthesizer struct {
	Client domain.CompletionClient
	Prompt string
	Model  string
}

// Answer formats the context block with numbered source citations and asks
// the model to answer strictly from it.
func (s *Synthesizer) Answer(ctx context.Context, question string, docs []domain.Document) (string, error) {
	if len(docs) == 0 {
		return noContextAnswer, nil
	}

	resp, err := s.Client.Chat(ctx, domain.ChatRequest{
		Model: s.Model,
		Messages: []domain.Turn{
			{Role: domain.RoleSystem, Content: s.Prompt},
			{Role: domain.RoleUser, Content: fmt.Sprintf("Контекст:\n%s\n\nВопрос: %s", FormatContext(docs), question)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("answer synthesis: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// FormatContext renders each document as a numbered citation block. Blocks
// are separated by a horizontal rule so the model can tell sources apart.
func FormatContext(docs []domain.Document) string {
	blocks := make([]string, 0, len(docs))
	for i, d := range docs {
		var header string
		if d.Page > 0 {
			header = fmt.Sprintf("[Источник %d: %s, стр. %d]", i+1, d.Source, d.Page)
		} else {
			header = fmt.Sprintf("[Источник %d: %s]", i+1, d.Source)
		}
		blocks = append(blocks, header+"\n"+d.Text)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
