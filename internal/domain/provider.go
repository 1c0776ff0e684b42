package domain

import "context"

// ChatRequest is a single call to an external completion service.
type ChatRequest struct {
	Messages    []Turn
	Tools       []ToolDefinition
	Model       string
	MaxTokens   int
	Temperature float64
}

type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string // stop | tool_calls | length
	Usage        Usage
}

func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionClient is the interface to an external chat completion service.
// The agent loop, query rewriter and answer synthesizer all speak through it.
type CompletionClient interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// EmbedFunc turns a text into a vector. Embeddings are always an injected
// external capability; indexes never compute them.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// PairScorer scores (query, text) pairs jointly, cross-encoder style.
// Scores are returned in the order of texts.
type PairScorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}
