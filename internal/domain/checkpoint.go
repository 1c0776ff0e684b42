package domain

import (
	"context"
	"time"
)

// InterruptDecision is a human verdict on a deferred protected tool call.
type InterruptDecision string

const (
	DecisionApprove InterruptDecision = "approve"
	DecisionReject  InterruptDecision = "reject"
)

// InterruptRequest is emitted when the agent selects a protected tool call.
// It is consumed exactly once by a resume operation.
type InterruptRequest struct {
	ID               string              `json:"id"`
	ToolName         string              `json:"tool_name"`
	ToolArgs         map[string]any      `json:"tool_args"`
	AllowedDecisions []InterruptDecision `json:"allowed_decisions"`
}

// Allows reports whether the decision is in the request's allowed set.
func (r *InterruptRequest) Allows(d InterruptDecision) bool {
	for _, a := range r.AllowedDecisions {
		if a == d {
			return true
		}
	}
	return false
}

// Thread is the durable conversation state keyed by thread identifier: the
// full turn list, at most one pending interrupt, and the call budget counters
// of the current run.
type Thread struct {
	ID               string            `json:"id"`
	Turns            []Turn            `json:"turns"`
	PendingInterrupt *InterruptRequest `json:"pending_interrupt,omitempty"`
	ModelCalls       int               `json:"model_calls"`
	ToolCalls        int               `json:"tool_calls"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// CheckpointStore persists conversation threads. Put replaces the whole
// thread atomically so concurrent threads never observe a partial write;
// Get returns (nil, nil) for an unknown thread.
type CheckpointStore interface {
	Get(ctx context.Context, threadID string) (*Thread, error)
	Put(ctx context.Context, thread *Thread) error
	Close() error
}
