// Package index holds the read-only retrieval indexes: BM25 lexical search,
// chromem-backed vector search, the FAQ shortcut, and the runtime snapshot
// that swaps all of them atomically on reindex.
package index

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/n1kko777/sber-agents/internal/domain"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Lexical is a BM25 index over tokenized document text. Built once per
// snapshot and read-only afterwards, so queries need no locking.
type Lexical struct {
	docs      []domain.Document
	docTerms  []map[string]int // term frequency per document
	docLens   []int
	avgDocLen float64
	docFreq   map[string]int // documents containing the term
}

// NewLexical indexes the documents in order. Insertion order is preserved and
// meaningful: score ties resolve to the earlier document.
func NewLexical(docs []domain.Document) *Lexical {
	l := &Lexical{
		docs:    docs,
		docFreq: make(map[string]int),
	}
	totalLen := 0
	for _, doc := range docs {
		terms := Tokenize(doc.Text)
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for t := range tf {
			l.docFreq[t]++
		}
		l.docTerms = append(l.docTerms, tf)
		l.docLens = append(l.docLens, len(terms))
		totalLen += len(terms)
	}
	if len(docs) > 0 {
		l.avgDocLen = float64(totalLen) / float64(len(docs))
	}
	return l
}

// Query returns up to k results ranked by BM25 score. An empty query or an
// empty index yields an empty result, never an error.
func (l *Lexical) Query(_ context.Context, text string, k int) ([]domain.RetrievalResult, error) {
	queryTerms := Tokenize(text)
	if len(queryTerms) == 0 || len(l.docs) == 0 || k <= 0 {
		return nil, nil
	}

	n := float64(len(l.docs))
	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	for i := range l.docs {
		var score float64
		for _, term := range queryTerms {
			tf := float64(l.docTerms[i][term])
			if tf == 0 {
				continue
			}
			df := float64(l.docFreq[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(l.docLens[i])/l.avgDocLen))
			score += idf * norm
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}

	// Stable sort keeps original document order on equal scores.
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.RetrievalResult{Document: l.docs[h.idx], Score: h.score})
	}
	return results, nil
}

// Tokenize lowercases and splits on anything that is not a letter or digit.
// Works for Cyrillic and Latin text alike.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
