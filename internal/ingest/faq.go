package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/n1kko777/sber-agents/internal/domain"
	"github.com/n1kko777/sber-agents/internal/index"
)

type faqEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// LoadFAQ reads the curated question-answer file. Each entry becomes one
// document carrying the normalized question for fuzzy matching; duplicate
// question-answer pairs are dropped. FAQ entries are never split.
func LoadFAQ(path string) ([]domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}
	var entries []faqEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse faq file %s: %w", path, err)
	}

	source := filepath.Base(path)
	seen := make(map[string]struct{}, len(entries))
	var docs []domain.Document
	for _, e := range entries {
		question := strings.TrimSpace(e.Question)
		answer := strings.TrimSpace(e.Answer)
		if question == "" || answer == "" {
			continue
		}
		key := question + "\x00" + answer
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		doc := domain.NewDocument(source, 0, fmt.Sprintf("Вопрос: %s\nОтвет: %s", question, answer))
		doc.IsFAQ = true
		doc.Category = e.Category
		doc.NormalizedQuestion = index.NormalizeQuestion(question)
		docs = append(docs, doc)
	}
	return docs, nil
}
