package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// Rewriter condenses the conversation history and the latest question into a
// standalone search query using the completion model.
type Rewriter struct {
	Client domain.CompletionClient
	Prompt string
	Model  string
}

// historyWindow limits how many trailing turns feed the rewrite prompt.
const historyWindow = 6

// Transform returns a self-contained query. With no history the latest
// question is already standalone and is returned as-is without a model call.
// Model failures propagate so the caller can decide on a fallback.
func (r *Rewriter) Transform(ctx context.Context, history []domain.Turn, latest string) (string, error) {
	latest = strings.TrimSpace(latest)
	if len(history) == 0 {
		return latest, nil
	}

	var sb strings.Builder
	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, t := range history[start:] {
		if t.Role != domain.RoleUser && t.Role != domain.RoleAssistant {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
	}

	resp, err := r.Client.Chat(ctx, domain.ChatRequest{
		Model: r.Model,
		Messages: []domain.Turn{
			{Role: domain.RoleSystem, Content: r.Prompt},
			{Role: domain.RoleUser, Content: fmt.Sprintf("История диалога:\n%s\nВопрос: %s", sb.String(), latest)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("query rewrite: %w", err)
	}

	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		return latest, nil
	}
	return rewritten, nil
}
