package index

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// Semantic is a nearest-neighbor index over externally supplied embedding
// vectors, backed by an in-memory chromem collection. Embeddings come from
// the injected domain.EmbedFunc; the index never computes them itself.
type Semantic struct {
	coll  *chromem.Collection
	byID  map[string]domain.Document
	count int
}

// BuildSemantic embeds and indexes the documents. The embed function is the
// external capability; a failure during indexing surfaces as-is so reindexing
// can abort without swapping in a half-built snapshot.
func BuildSemantic(ctx context.Context, docs []domain.Document, embed domain.EmbedFunc) (*Semantic, error) {
	db := chromem.NewDB()
	coll, err := db.CreateCollection("documents", nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s := &Semantic{coll: coll, byID: make(map[string]domain.Document, len(docs))}
	if len(docs) == 0 {
		return s, nil
	}

	chromemDocs := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:      doc.ID,
			Content: doc.Text,
		})
		s.byID[doc.ID] = doc
	}
	if err := coll.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}
	s.count = len(chromemDocs)
	return s, nil
}

// Query returns up to k results by cosine similarity, best first.
func (s *Semantic) Query(ctx context.Context, text string, k int) ([]domain.RetrievalResult, error) {
	if text == "" || s.count == 0 || k <= 0 {
		return nil, nil
	}
	if k > s.count {
		k = s.count
	}

	hits, err := s.coll.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("semantic query: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		doc, ok := s.byID[h.ID]
		if !ok {
			continue
		}
		results = append(results, domain.RetrievalResult{Document: doc, Score: float64(h.Similarity)})
	}
	return results, nil
}
