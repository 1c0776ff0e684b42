package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testCatalog = `[
  {
    "product_type": "deposit",
    "name": "Вклад Лучший процент",
    "description": "Максимальная ставка при открытии онлайн",
    "rate_min": 12.0,
    "rate_max": 16.0,
    "amount_min": 100000,
    "amount_max": 10000000,
    "currency": "RUB",
    "term_months": "3-36",
    "features": ["онлайн-открытие", "капитализация"]
  },
  {
    "product_type": "credit_card",
    "name": "Кредитная СберКарта",
    "description": "Карта с льготным периодом 120 дней",
    "rate_min": 25.4,
    "rate_max": 49.9,
    "amount_min": 10000,
    "amount_max": 1000000,
    "currency": "RUB",
    "term_months": "",
    "features": ["льготный период"]
  },
  {
    "product_type": "deposit",
    "name": "Валютный вклад",
    "description": "Вклад в долларах США",
    "rate_min": 1.0,
    "rate_max": 3.0,
    "amount_min": 1000,
    "amount_max": 0,
    "currency": "USD",
    "term_months": "6-12",
    "features": []
  }
]`

func catalogTool(t *testing.T) *ProductSearchTool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bank_products.json")
	if err := os.WriteFile(path, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	tool, err := NewProductSearchTool(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return tool
}

func TestProducts_FilterByType(t *testing.T) {
	tool := catalogTool(t)
	out, err := tool.Execute(context.Background(), map[string]any{"product_type": "deposit"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Найдено 2 продукт(ов)") {
		t.Fatalf("expected 2 deposits:\n%s", out)
	}
	if strings.Contains(out, "СберКарта") {
		t.Fatalf("credit card must be filtered out:\n%s", out)
	}
}

func TestProducts_FilterByKeyword(t *testing.T) {
	tool := catalogTool(t)
	out, err := tool.Execute(context.Background(), map[string]any{"keyword": "льготным"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Кредитная СберКарта") {
		t.Fatalf("keyword must match the description:\n%s", out)
	}
	if strings.Contains(out, "Лучший процент") {
		t.Fatalf("unrelated product leaked:\n%s", out)
	}
}

func TestProducts_FilterByCurrencyAndRate(t *testing.T) {
	tool := catalogTool(t)
	out, err := tool.Execute(context.Background(), map[string]any{
		"currency": "USD",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Валютный вклад") || strings.Contains(out, "Лучший процент") {
		t.Fatalf("currency filter broken:\n%s", out)
	}

	out, err = tool.Execute(context.Background(), map[string]any{"min_rate": 10.0})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(out, "Валютный вклад") {
		t.Fatalf("low-rate product must not pass min_rate filter:\n%s", out)
	}
}

func TestProducts_MinAmountMeansAvailableFrom(t *testing.T) {
	tool := catalogTool(t)
	// A client with 50 000 cannot open the 100 000 minimum deposit.
	out, err := tool.Execute(context.Background(), map[string]any{
		"product_type": "deposit", "min_amount": 50_000.0,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(out, "Лучший процент") {
		t.Fatalf("deposit with a higher minimum must be excluded:\n%s", out)
	}
	if !strings.Contains(out, "Валютный вклад") {
		t.Fatalf("accessible deposit must remain:\n%s", out)
	}
}

func TestProducts_NoMatches(t *testing.T) {
	tool := catalogTool(t)
	out, err := tool.Execute(context.Background(), map[string]any{"keyword": "ипотека"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "Продукты не найдены по заданным критериям." {
		t.Fatalf("unexpected empty-result message: %q", out)
	}
}

func TestProducts_MissingCatalogFile(t *testing.T) {
	if _, err := NewProductSearchTool("/nonexistent/products.json"); err == nil {
		t.Fatal("expected error for a missing catalog")
	}
}
