// Package retrieval implements the hybrid retrieval pipeline: weighted
// rank fusion of the lexical and semantic indexes, query rewriting,
// cross-encoder reranking and grounded answer synthesis.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// rrfConstant dampens the contribution of lower ranks in reciprocal rank
// fusion; 60 is the conventional value.
const rrfConstant = 60

// Searcher is one rank source for the ensemble.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]domain.RetrievalResult, error)
}

// Ensemble merges semantic and lexical result lists with weighted reciprocal
// rank fusion. Raw index scores are never combined; only the rank position
// within each list feeds the combiner.
type Ensemble struct {
	Semantic       Searcher
	Lexical        Searcher
	SemanticK      int
	LexicalK       int
	WeightSemantic float64
	WeightBM25     float64
}

// NewEnsemble validates the weights; they must sum to a positive value but
// need not sum to 1.
func NewEnsemble(semantic, lexical Searcher, semanticK, lexicalK int, weightSemantic, weightBM25 float64) (*Ensemble, error) {
	if weightSemantic < 0 || weightBM25 < 0 || weightSemantic+weightBM25 <= 0 {
		return nil, &domain.ConfigurationError{
			Field:  "retrieval.weights",
			Detail: fmt.Sprintf("weights must be non-negative and sum to a positive value, got %.3f and %.3f", weightSemantic, weightBM25),
		}
	}
	return &Ensemble{
		Semantic:       semantic,
		Lexical:        lexical,
		SemanticK:      semanticK,
		LexicalK:       lexicalK,
		WeightSemantic: weightSemantic,
		WeightBM25:     weightBM25,
	}, nil
}

// Retrieve runs both indexes independently and fuses the rankings. Ties break
// by first-seen order, semantic results before lexical ones.
func (e *Ensemble) Retrieve(ctx context.Context, query string) ([]domain.Document, error) {
	semantic, err := e.Semantic.Query(ctx, query, e.SemanticK)
	if err != nil {
		return nil, fmt.Errorf("semantic retrieval: %w", err)
	}
	lexical, err := e.Lexical.Query(ctx, query, e.LexicalK)
	if err != nil {
		return nil, fmt.Errorf("lexical retrieval: %w", err)
	}

	type fused struct {
		doc   domain.Document
		score float64
		seen  int // first-seen position for tie-breaking
	}
	combined := make(map[domain.DedupKey]*fused)
	order := 0

	accumulate := func(results []domain.RetrievalResult, weight float64) {
		for rank, r := range results {
			key := r.Document.DedupKey()
			contribution := weight / float64(rank+1+rrfConstant)
			if f, ok := combined[key]; ok {
				f.score += contribution
				continue
			}
			combined[key] = &fused{doc: r.Document, score: contribution, seen: order}
			order++
		}
	}
	accumulate(semantic, e.WeightSemantic)
	accumulate(lexical, e.WeightBM25)

	ranked := make([]*fused, 0, len(combined))
	for _, f := range combined {
		ranked = append(ranked, f)
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].seen < ranked[b].seen
	})

	docs := make([]domain.Document, 0, len(ranked))
	for _, f := range ranked {
		docs = append(docs, f.doc)
	}
	return docs, nil
}

// RetrieveDual runs retrieval for the original and transformed queries and
// unions the results with DedupKey-based deduplication, first occurrence
// wins. This compensates for rewrites that hurt precision: the raw query's
// results always survive.
func (e *Ensemble) RetrieveDual(ctx context.Context, originalQuery, transformedQuery string) ([]domain.Document, error) {
	docs, err := e.Retrieve(ctx, originalQuery)
	if err != nil {
		return nil, err
	}
	if transformedQuery != "" && transformedQuery != originalQuery {
		more, err := e.Retrieve(ctx, transformedQuery)
		if err != nil {
			return nil, err
		}
		docs = append(docs, more...)
	}
	return Deduplicate(docs), nil
}

// Deduplicate removes documents with an equal DedupKey, preserving the order
// of first appearance.
func Deduplicate(docs []domain.Document) []domain.Document {
	seen := make(map[domain.DedupKey]struct{}, len(docs))
	unique := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		key := d.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, d)
	}
	return unique
}
