package domain

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Document is a unit of retrievable text with source provenance.
// Immutable once indexed; owned by the index snapshot that created it.
type Document struct {
	ID                 string `json:"id"`
	Text               string `json:"text"`
	Source             string `json:"source"`
	Page               int    `json:"page,omitempty"` // 0 = no page locator
	Category           string `json:"category,omitempty"`
	IsFAQ              bool   `json:"is_faq,omitempty"`
	NormalizedQuestion string `json:"normalized_question,omitempty"`
}

// NewDocument derives a stable ID from source, locator and a content hash,
// so re-indexing identical source content yields the same identity.
func NewDocument(source string, page int, text string) Document {
	hash := sha256.Sum256([]byte(text))
	return Document{
		ID:     fmt.Sprintf("%s:%d:%x", source, page, hash[:8]),
		Text:   text,
		Source: source,
		Page:   page,
	}
}

// DedupKey identifies the same logical chunk across retrieval paths.
type DedupKey struct {
	Source string
	Page   int
	Text   string
}

func (d Document) DedupKey() DedupKey {
	return DedupKey{Source: d.Source, Page: d.Page, Text: strings.TrimSpace(d.Text)}
}

// RetrievalResult is one ranked hit from a single index. Scores are on an
// index-local scale and must never be compared across indexes.
type RetrievalResult struct {
	Document Document
	Score    float64
}

// SourceRef is the wire shape of a cited document, as produced by the search
// tool and returned to the calling surface.
type SourceRef struct {
	Source string `json:"source"`
	Page   int    `json:"page,omitempty"`
	Text   string `json:"text"`
}
