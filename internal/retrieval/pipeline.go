package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/n1kko777/sber-agents/internal/domain"
	"github.com/n1kko777/sber-agents/internal/index"
)

// Retrieval modes, from cheapest to most precise.
const (
	ModeSemantic       = "semantic"
	ModeHybrid         = "hybrid"
	ModeHybridReranker = "hybrid_reranker"
)

// Pipeline is the full retrieval path for one question: FAQ shortcut, query
// rewriting, ensemble retrieval and optional reranking, selected by mode.
type Pipeline struct {
	Runtime      *index.Runtime
	Rewriter     *Rewriter
	Reranker     *Reranker
	Mode         string
	SemanticK    int
	LexicalK     int
	WeightSem    float64
	WeightBM25   float64
	TopK         int
	FAQThreshold float64
	Logger       *slog.Logger
}

// Retrieve returns the context documents for the question, best first,
// capped at TopK. The FAQ shortcut is consulted before any index work; a
// rewrite failure degrades to the raw question rather than failing retrieval.
func (p *Pipeline) Retrieve(ctx context.Context, history []domain.Turn, question string) ([]domain.Document, error) {
	snap := p.Runtime.Snapshot()
	if snap == nil {
		return nil, &domain.ConfigurationError{Field: "index", Detail: "no index snapshot loaded, run ingestion first"}
	}

	if hit, score := snap.FAQ.BestMatch(question, p.FAQThreshold); hit != nil {
		p.Logger.Debug("faq shortcut hit", "source", hit.Source, "score", score)
		return []domain.Document{*hit}, nil
	}

	query := question
	if p.Rewriter != nil {
		rewritten, err := p.Rewriter.Transform(ctx, history, question)
		if err != nil {
			p.Logger.Warn("query rewrite failed, using raw question", "error", err)
		} else {
			query = rewritten
		}
	}

	docs, err := p.retrieve(ctx, snap, question, query)
	if err != nil {
		return nil, err
	}

	if p.Mode == ModeHybridReranker {
		return p.Reranker.Rerank(ctx, question, docs)
	}
	if p.TopK > 0 && len(docs) > p.TopK {
		docs = docs[:p.TopK]
	}
	return docs, nil
}

func (p *Pipeline) retrieve(ctx context.Context, snap *index.Snapshot, question, query string) ([]domain.Document, error) {
	switch p.Mode {
	case ModeSemantic:
		results, err := snap.Semantic.Query(ctx, query, p.SemanticK)
		if err != nil {
			return nil, fmt.Errorf("semantic retrieval: %w", err)
		}
		docs := make([]domain.Document, 0, len(results))
		for _, r := range results {
			docs = append(docs, r.Document)
		}
		return docs, nil

	case ModeHybrid, ModeHybridReranker:
		ensemble, err := NewEnsemble(snap.Semantic, snap.Lexical, p.SemanticK, p.LexicalK, p.WeightSem, p.WeightBM25)
		if err != nil {
			return nil, err
		}
		return ensemble.RetrieveDual(ctx, question, query)

	default:
		return nil, &domain.ConfigurationError{Field: "retrieval.mode", Detail: fmt.Sprintf("unknown mode %q", p.Mode)}
	}
}
