package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// CrossEncoder implements domain.PairScorer against a text-embeddings-
// inference style /rerank endpoint: the service scores each (query, text)
// pair jointly and returns one relevance score per text.
type CrossEncoder struct {
	apiBase string
	apiKey  string
	client  *http.Client
}

type CrossEncoderConfig struct {
	APIBase string
	APIKey  string
}

func NewCrossEncoder(cfg CrossEncoderConfig) *CrossEncoder {
	return &CrossEncoder{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (c *CrossEncoder) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/rerank", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport("reranker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus("reranker", resp.StatusCode, string(body))
	}

	var items []rerankItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	scores := make([]float64, len(texts))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(scores) {
			return nil, &domain.DependencyError{
				Service: "reranker",
				Reason:  domain.ReasonUnknown,
				Err:     fmt.Errorf("score index %d out of range for %d texts", item.Index, len(texts)),
			}
		}
		scores[item.Index] = item.Score
	}
	return scores, nil
}
