package domain

import "context"

// Tool is the interface for agent capabilities (document search, product
// catalog, currency conversion, account opening).
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}
