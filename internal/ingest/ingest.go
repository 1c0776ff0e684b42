package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// Load gathers the whole corpus: every PDF under dir (sorted by name for
// deterministic chunk order) plus the FAQ file when configured. Either part
// may be absent; an empty corpus is an error because there would be nothing
// to retrieve.
func Load(dir, faqFile string, logger *slog.Logger) ([]domain.Document, error) {
	var docs []domain.Document

	if dir != "" {
		pdfs, err := listPDFs(dir)
		if err != nil {
			return nil, err
		}
		for _, path := range pdfs {
			loaded, err := LoadPDF(path)
			if err != nil {
				return nil, err
			}
			logger.Info("loaded document", "file", filepath.Base(path), "chunks", len(loaded))
			docs = append(docs, loaded...)
		}
	}

	if faqFile != "" {
		faq, err := LoadFAQ(faqFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded faq", "file", filepath.Base(faqFile), "entries", len(faq))
		docs = append(docs, faq...)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents found in %q", dir)
	}
	return docs, nil
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
