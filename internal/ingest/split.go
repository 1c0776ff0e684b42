// Package ingest loads the knowledge base: PDF documents split into
// retrieval chunks and the curated FAQ file.
package ingest

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 450
	chunkOverlap = 120
)

// splitSeparators is ordered from strongest to weakest boundary; the list
// includes Russian-text bullet markers so chunks break on list items before
// falling back to sentences and words.
var splitSeparators = []string{"\n\n", "\n•", "\n- ", "\n— ", "\n", ". ", " ", ""}

// SplitText chunks text for indexing with a recursive character splitter.
// Empty and whitespace-only fragments are dropped.
func SplitText(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(splitSeparators),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
