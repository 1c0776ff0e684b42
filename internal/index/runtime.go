package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// Snapshot bundles the document store and every index built from one
// ingestion run. A snapshot is immutable: queries against it never race with
// a rebuild.
type Snapshot struct {
	Documents []domain.Document
	Lexical   *Lexical
	Semantic  *Semantic
	FAQ       *FAQ
}

// Runtime is the process-wide retrieval context. It replaces module-level
// mutable globals with an explicitly initialized object; Reindex builds a
// complete new snapshot offline and swaps the active pointer atomically, so
// concurrent readers observe either the old or the new index set, never a
// mix.
type Runtime struct {
	active atomic.Pointer[Snapshot]
	embed  domain.EmbedFunc
	logger *slog.Logger
}

func NewRuntime(embed domain.EmbedFunc, logger *slog.Logger) *Runtime {
	return &Runtime{embed: embed, logger: logger}
}

// Snapshot returns the currently active snapshot, or nil before the first
// successful Reindex.
func (r *Runtime) Snapshot() *Snapshot {
	return r.active.Load()
}

// Reindex bulk-loads a new document set, builds all indexes, and atomically
// replaces the active snapshot. Returns the number of indexed chunks. On any
// build failure the previous snapshot stays active.
func (r *Runtime) Reindex(ctx context.Context, docs []domain.Document) (int, error) {
	semantic, err := BuildSemantic(ctx, docs, r.embed)
	if err != nil {
		return 0, fmt.Errorf("build semantic index: %w", err)
	}

	snap := &Snapshot{
		Documents: docs,
		Lexical:   NewLexical(docs),
		Semantic:  semantic,
		FAQ:       NewFAQ(docs),
	}
	r.active.Store(snap)

	r.logger.Info("index snapshot swapped",
		"chunks", len(docs),
		"faq_entries", snap.FAQ.Len(),
	)
	return len(docs), nil
}
