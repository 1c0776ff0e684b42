package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/n1kko777/sber-agents/internal/domain"
)

const defaultHTTPTimeout = 60 * time.Second

// classifyStatus maps an HTTP status code to a structured dependency error.
// The reason is decided here, from the status code, so callers never have to
// string-match error messages.
func classifyStatus(service string, status int, body string) *domain.DependencyError {
	var reason domain.DependencyReason
	switch {
	case status == http.StatusMethodNotAllowed || status == http.StatusNotFound:
		// The provider does not serve this endpoint at all (e.g. an
		// OpenAI-compatible gateway without /embeddings). Actionable for the
		// operator: point the client at a provider that supports it.
		reason = domain.ReasonUnsupportedEndpoint
	case status == http.StatusTooManyRequests:
		reason = domain.ReasonRateLimited
	case status >= 500:
		reason = domain.ReasonTransient
	default:
		reason = domain.ReasonUnknown
	}
	return &domain.DependencyError{
		Service: service,
		Reason:  reason,
		Err:     fmt.Errorf("HTTP %d: %s", status, body),
	}
}

// classifyTransport wraps a network-level failure as a transient dependency error.
func classifyTransport(service string, err error) *domain.DependencyError {
	return &domain.DependencyError{Service: service, Reason: domain.ReasonTransient, Err: err}
}
