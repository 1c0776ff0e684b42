package domain

import "fmt"

// DependencyReason classifies why an external service call failed.
// Decided from transport-level facts (status codes, network errors) by the
// calling client, never by matching error message text.
type DependencyReason string

const (
	ReasonUnsupportedEndpoint DependencyReason = "unsupported_endpoint"
	ReasonRateLimited         DependencyReason = "rate_limited"
	ReasonTransient           DependencyReason = "transient"
	ReasonUnknown             DependencyReason = "unknown"
)

// DependencyError reports an unreachable or erroring external service
// (completion, embeddings, pair scoring).
type DependencyError struct {
	Service string
	Reason  DependencyReason
	Err     error
}

func (e *DependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s dependency failed (%s): %v", e.Service, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s dependency failed (%s)", e.Service, e.Reason)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// ConfigurationError reports invalid retrieval-mode or weight configuration.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Detail)
}

// BudgetExceededError terminates an agent run once a call ceiling is reached.
// It is not surfaced to the end user as an error; the loop converts it into
// an explicit best-effort answer.
type BudgetExceededError struct {
	Kind  string // "model" | "tool"
	Calls int
	Limit int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s call budget exceeded: %d calls, limit %d", e.Kind, e.Calls, e.Limit)
}

// InterruptProtocolError is an integration error in the suspend/resume
// protocol: resuming with no pending interrupt, a decision outside the
// allowed set, or a new message while an interrupt is pending.
type InterruptProtocolError struct {
	ThreadID string
	Detail   string
}

func (e *InterruptProtocolError) Error() string {
	return fmt.Sprintf("interrupt protocol violation on thread %s: %s", e.ThreadID, e.Detail)
}

// ParseError reports a tool result that was expected to be structured JSON
// but was not.
type ParseError struct {
	ToolName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s tool result: %v", e.ToolName, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
