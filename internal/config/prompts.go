package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the system instructions used by the agent loop, the query
// rewriter and the answer synthesizer. Kept in a separate editable file so
// prompt changes do not touch code.
type Prompts struct {
	Agent          string `yaml:"agent"`
	QueryTransform string `yaml:"queryTransform"`
	Answering      string `yaml:"answering"`
}

// DefaultPrompts are used when no prompts file is configured.
func DefaultPrompts() *Prompts {
	return &Prompts{
		Agent: "Ты — ассистент банка. Отвечай на вопросы клиентов, используя инструменты. " +
			"Для вопросов о продуктах и условиях сначала вызови инструмент rag_search. " +
			"Отвечай кратко и по делу, на русском языке.",
		QueryTransform: "Перефразируй последний вопрос пользователя в самостоятельный поисковый запрос " +
			"с учетом истории диалога. Верни только текст запроса, без пояснений.",
		Answering: "Ты — ассистент банка. Ответь на вопрос пользователя, опираясь только на " +
			"приведенный контекст. Если ответа в контексте нет, честно скажи об этом.",
	}
}

// LoadPrompts reads a YAML prompts file; missing fields fall back to defaults.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read prompts file %s: %w", path, err)
	}
	p := DefaultPrompts()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("cannot parse prompts file %s: %w", path, err)
	}
	return p, nil
}
