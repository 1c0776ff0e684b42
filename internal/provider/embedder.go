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

// Embedder calls an OpenAI-compatible /embeddings endpoint. Its Embed method
// is injected into the semantic index as a domain.EmbedFunc; the index never
// computes vectors itself.
type Embedder struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
}

type EmbedderConfig struct {
	APIKey  string
	APIBase string
	Model   string
}

func NewEmbedder(cfg EmbedderConfig) *Embedder {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	return &Embedder{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.apiBase+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyTransport("embeddings", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus("embeddings", resp.StatusCode, string(body))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, &domain.DependencyError{
			Service: "embeddings",
			Reason:  domain.ReasonUnknown,
			Err:     fmt.Errorf("empty embedding response"),
		}
	}
	return out.Data[0].Embedding, nil
}

// Func returns the Embed method as an injectable domain.EmbedFunc.
func (e *Embedder) Func() domain.EmbedFunc {
	return e.Embed
}
