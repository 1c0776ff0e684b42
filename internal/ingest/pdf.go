package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// LoadPDF extracts text page by page and splits each page into chunks. The
// source name is the file's base name; pages are 1-based and preserved on
// every chunk for citations.
func LoadPDF(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %w", path, err)
	}

	source := filepath.Base(path)
	var docs []domain.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, path, err)
		}

		chunks, err := SplitText(text)
		if err != nil {
			return nil, err
		}
		for _, chunk := range chunks {
			docs = append(docs, domain.NewDocument(source, i, chunk))
		}
	}
	return docs, nil
}
