package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// Reranker reorders candidates with a cross-encoder relevance scorer. The
// scorer is constructed lazily on first use and cached for the process
// lifetime; a failed construction is retried on the next call.
type Reranker struct {
	NewScorer func() (domain.PairScorer, error)
	TopK      int
	Logger    *slog.Logger

	mu     sync.Mutex
	scorer domain.PairScorer
}

// Rerank scores every candidate against the query and returns the top k by
// descending relevance. When the scoring dependency is unavailable the
// pre-rerank order is kept and truncated to k instead of failing the request.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []domain.Document) ([]domain.Document, error) {
	k := r.TopK
	if k <= 0 || k > len(docs) {
		k = len(docs)
	}
	if len(docs) == 0 {
		return docs, nil
	}

	scorer, err := r.getScorer()
	if err != nil {
		return r.fallback(docs, k, err)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	scores, err := scorer.Score(ctx, query, texts)
	if err != nil {
		return r.fallback(docs, k, err)
	}
	if len(scores) != len(docs) {
		return r.fallback(docs, k, &domain.DependencyError{
			Service: "reranker",
			Reason:  domain.ReasonUnknown,
			Err:     errors.New("score count does not match candidate count"),
		})
	}

	idx := make([]int, len(docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	ranked := make([]domain.Document, 0, k)
	for _, i := range idx[:k] {
		ranked = append(ranked, docs[i])
	}
	return ranked, nil
}

func (r *Reranker) getScorer() (domain.PairScorer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scorer != nil {
		return r.scorer, nil
	}
	s, err := r.NewScorer()
	if err != nil {
		return nil, err
	}
	r.scorer = s
	return s, nil
}

// fallback degrades gracefully on dependency errors only; anything else is a
// bug worth surfacing.
func (r *Reranker) fallback(docs []domain.Document, k int, err error) ([]domain.Document, error) {
	var depErr *domain.DependencyError
	if !errors.As(err, &depErr) {
		return nil, err
	}
	r.Logger.Warn("reranker unavailable, keeping ensemble order",
		"service", depErr.Service,
		"reason", depErr.Reason,
		"error", err,
	)
	return docs[:k], nil
}
