package index

import (
	"testing"

	"github.com/n1kko777/sber-agents/internal/domain"
)

func faqDoc(question, answer string) domain.Document {
	doc := domain.NewDocument("faq.json", 0, "Вопрос: "+question+"\nОтвет: "+answer)
	doc.IsFAQ = true
	doc.NormalizedQuestion = NormalizeQuestion(question)
	return doc
}

func TestFAQ_ExactMatch(t *testing.T) {
	faq := NewFAQ([]domain.Document{
		faqDoc("Как открыть вклад?", "В отделении или в приложении."),
		faqDoc("Как заблокировать карту?", "Позвоните в банк."),
	})

	hit, score := faq.BestMatch("Как открыть вклад?", 0.82)
	if hit == nil {
		t.Fatalf("expected a match, score was %f", score)
	}
	if score != 1 {
		t.Fatalf("expected exact match score 1, got %f", score)
	}
}

func TestFAQ_FuzzyMatchAboveThreshold(t *testing.T) {
	faq := NewFAQ([]domain.Document{
		faqDoc("Как открыть вклад?", "В отделении или в приложении."),
	})

	// Case and whitespace differences must not matter.
	hit, score := faq.BestMatch("  как   открыть вклад", 0.82)
	if hit == nil {
		t.Fatalf("expected a fuzzy match, score was %f", score)
	}
}

func TestFAQ_BelowThreshold(t *testing.T) {
	faq := NewFAQ([]domain.Document{
		faqDoc("Как открыть вклад?", "В отделении или в приложении."),
	})

	hit, score := faq.BestMatch("Какой курс доллара сегодня?", 0.82)
	if hit != nil {
		t.Fatalf("expected no match, got one with score %f", score)
	}
}

func TestFAQ_IgnoresNonFAQDocuments(t *testing.T) {
	faq := NewFAQ([]domain.Document{
		domain.NewDocument("tariffs.pdf", 3, "Как открыть вклад? Просто."),
	})
	if faq.Len() != 0 {
		t.Fatalf("expected 0 faq entries, got %d", faq.Len())
	}
	if hit, _ := faq.BestMatch("Как открыть вклад?", 0.5); hit != nil {
		t.Fatal("expected no match from a non-faq document")
	}
}

func TestNormalizeQuestion(t *testing.T) {
	got := NormalizeQuestion("  КАК   Открыть\tВклад?  ")
	if got != "как открыть вклад?" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestSimilarityRatio(t *testing.T) {
	if r := similarityRatio("abc", "abc"); r != 1 {
		t.Fatalf("identical strings: expected 1, got %f", r)
	}
	if r := similarityRatio("abc", "xyz"); r != 0 {
		t.Fatalf("disjoint strings: expected 0, got %f", r)
	}
	if r := similarityRatio("", ""); r != 1 {
		t.Fatalf("empty strings: expected 1, got %f", r)
	}
	// 2*LCS/(n+m): LCS("вклад","вклады")=5, 2*5/11
	r := similarityRatio("вклад", "вклады")
	if r < 0.9 || r > 0.91 {
		t.Fatalf("expected ratio near 0.909, got %f", r)
	}
}
