package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/n1kko777/sber-agents/internal/domain"
)

type fakeScorer struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.scores[:len(texts)], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestReranker_ReordersByScore(t *testing.T) {
	docs := []domain.Document{
		doc("a.pdf", 1, "первый"),
		doc("b.pdf", 1, "второй"),
		doc("c.pdf", 1, "третий"),
	}
	scorer := &fakeScorer{scores: []float64{0.1, 0.9, 0.5}}
	r := &Reranker{
		NewScorer: func() (domain.PairScorer, error) { return scorer, nil },
		TopK:      2,
		Logger:    testLogger(),
	}

	out, err := r.Rerank(context.Background(), "запрос", docs)
	if err != nil {
		t.Fatalf("rerank: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected top 2, got %d", len(out))
	}
	if out[0].Source != "b.pdf" || out[1].Source != "c.pdf" {
		t.Fatalf("unexpected order: %s, %s", out[0].Source, out[1].Source)
	}
}

func TestReranker_FallbackOnDependencyError(t *testing.T) {
	docs := []domain.Document{
		doc("a.pdf", 1, "первый"),
		doc("b.pdf", 1, "второй"),
		doc("c.pdf", 1, "третий"),
	}
	depErr := &domain.DependencyError{
		Service: "reranker",
		Reason:  domain.ReasonUnsupportedEndpoint,
		Err:     errors.New("405"),
	}
	r := &Reranker{
		NewScorer: func() (domain.PairScorer, error) { return &fakeScorer{err: depErr}, nil },
		TopK:      2,
		Logger:    testLogger(),
	}

	out, err := r.Rerank(context.Background(), "запрос", docs)
	if err != nil {
		t.Fatalf("expected graceful fallback, got error: %v", err)
	}
	// Pre-rerank order, truncated.
	if len(out) != 2 || out[0].Source != "a.pdf" || out[1].Source != "b.pdf" {
		t.Fatalf("expected original order a, b; got %v", out)
	}
}

func TestReranker_NonDependencyErrorSurfaces(t *testing.T) {
	r := &Reranker{
		NewScorer: func() (domain.PairScorer, error) {
			return &fakeScorer{err: errors.New("boom")}, nil
		},
		TopK:   2,
		Logger: testLogger(),
	}
	_, err := r.Rerank(context.Background(), "запрос", []domain.Document{doc("a.pdf", 1, "текст")})
	if err == nil {
		t.Fatal("expected the error to surface")
	}
}

func TestReranker_ScorerBuiltOnce(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.5}}
	builds := 0
	r := &Reranker{
		NewScorer: func() (domain.PairScorer, error) {
			builds++
			return scorer, nil
		},
		TopK:   1,
		Logger: testLogger(),
	}

	docs := []domain.Document{doc("a.pdf", 1, "текст")}
	for i := 0; i < 3; i++ {
		if _, err := r.Rerank(context.Background(), "запрос", docs); err != nil {
			t.Fatalf("rerank %d: %v", i, err)
		}
	}
	if builds != 1 {
		t.Fatalf("expected one scorer construction, got %d", builds)
	}
}

func TestReranker_FailedConstructionRetried(t *testing.T) {
	depErr := &domain.DependencyError{Service: "reranker", Reason: domain.ReasonTransient, Err: errors.New("down")}
	builds := 0
	r := &Reranker{
		NewScorer: func() (domain.PairScorer, error) {
			builds++
			if builds == 1 {
				return nil, depErr
			}
			return &fakeScorer{scores: []float64{0.5}}, nil
		},
		TopK:   1,
		Logger: testLogger(),
	}

	docs := []domain.Document{doc("a.pdf", 1, "текст")}
	if _, err := r.Rerank(context.Background(), "запрос", docs); err != nil {
		t.Fatalf("first call should fall back: %v", err)
	}
	if _, err := r.Rerank(context.Background(), "запрос", docs); err != nil {
		t.Fatalf("second call should succeed: %v", err)
	}
	if builds != 2 {
		t.Fatalf("expected construction retry, builds=%d", builds)
	}
}

func TestReranker_EmptyInput(t *testing.T) {
	r := &Reranker{
		NewScorer: func() (domain.PairScorer, error) { t.Fatal("scorer must not be built"); return nil, nil },
		TopK:      4,
		Logger:    testLogger(),
	}
	out, err := r.Rerank(context.Background(), "запрос", nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty result, got %v, %v", out, err)
	}
}
