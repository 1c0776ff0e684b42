package agent

import (
	"encoding/json"
	"log/slog"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// searchToolName is the registered name of the knowledge search tool whose
// results carry citable sources.
const searchToolName = "rag_search"

type sourcesEnvelope struct {
	Sources []domain.SourceRef `json:"sources"`
}

// ExtractDocuments collects the sources cited by knowledge searches in the
// current exchange: every search tool turn after the last user turn. The
// model may search several times per exchange; all results are gathered in
// order. Unparseable payloads are logged and skipped, never fatal.
func ExtractDocuments(turns []domain.Turn, logger *slog.Logger) []domain.SourceRef {
	lastUser := -1
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleUser {
			lastUser = i
			break
		}
	}

	var sources []domain.SourceRef
	for _, t := range turns[lastUser+1:] {
		if t.Role != domain.RoleTool || t.ToolName != searchToolName {
			continue
		}
		var env sourcesEnvelope
		if err := json.Unmarshal([]byte(t.Content), &env); err != nil {
			logger.Warn("skipping malformed search result",
				"error", &domain.ParseError{ToolName: searchToolName, Err: err})
			continue
		}
		sources = append(sources, env.Sources...)
	}
	return sources
}
