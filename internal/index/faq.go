package index

import (
	"strings"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// FAQ is a fuzzy lookup over the curated Q&A subset of the corpus. It is a
// low-latency shortcut consulted before the full ensemble; the FAQ set is
// small (tens to low hundreds of entries), so the O(n*m) similarity scan per
// entry is fine.
type FAQ struct {
	docs []domain.Document
}

func NewFAQ(docs []domain.Document) *FAQ {
	var faq []domain.Document
	for _, d := range docs {
		if d.IsFAQ && d.NormalizedQuestion != "" {
			faq = append(faq, d)
		}
	}
	return &FAQ{docs: faq}
}

func (f *FAQ) Len() int { return len(f.docs) }

// BestMatch returns the highest-scoring FAQ entry when its similarity to the
// question reaches the threshold, else nil. The score is always returned for
// observability.
func (f *FAQ) BestMatch(question string, threshold float64) (*domain.Document, float64) {
	if len(f.docs) == 0 || question == "" {
		return nil, 0
	}

	normalized := NormalizeQuestion(question)
	var best *domain.Document
	bestScore := 0.0
	for i := range f.docs {
		score := similarityRatio(normalized, f.docs[i].NormalizedQuestion)
		if score > bestScore {
			best = &f.docs[i]
			bestScore = score
		}
	}
	if best != nil && bestScore >= threshold {
		return best, bestScore
	}
	return nil, bestScore
}

// NormalizeQuestion lowercases and collapses all whitespace runs.
func NormalizeQuestion(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(text))), " ")
}

// similarityRatio is an LCS-based sequence similarity in [0, 1]:
// 2*LCS(a, b) / (len(a) + len(b)) over runes.
func similarityRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Single-row LCS dynamic program.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}
