package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/n1kko777/sber-agents/internal/domain"
)

const productResultLimit = 10

// Product is one catalog entry of the bank's product database.
type Product struct {
	ProductType string   `json:"product_type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	RateMin     float64  `json:"rate_min"`
	RateMax     float64  `json:"rate_max"`
	AmountMin   float64  `json:"amount_min"`
	AmountMax   float64  `json:"amount_max"`
	Currency    string   `json:"currency"`
	TermMonths  string   `json:"term_months"`
	Features    []string `json:"features"`
}

// ProductSearchTool filters the static product catalog by type, keyword,
// amount range, rate range and currency.
type ProductSearchTool struct {
	products []Product
}

// NewProductSearchTool loads the catalog once at startup.
func NewProductSearchTool(path string) (*ProductSearchTool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read product catalog: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("parse product catalog %s: %w", path, err)
	}
	return &ProductSearchTool{products: products}, nil
}

func (t *ProductSearchTool) Name() string { return "search_products" }
func (t *ProductSearchTool) Description() string {
	return "Поиск актуальных продуктов банка (вклады, кредиты, карты, счета) с фильтрацией по типу, ключевому слову, сумме, ставке и валюте."
}
func (t *ProductSearchTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"product_type": {Type: "string", Description: "Тип продукта: deposit, credit, debit_card, credit_card, account"},
			"keyword":      {Type: "string", Description: "Ключевое слово для поиска в названии и описании"},
			"min_amount":   {Type: "number", Description: "Минимальная сумма, от которой продукт должен быть доступен"},
			"max_amount":   {Type: "number", Description: "Максимальная сумма, которую продукт должен покрывать"},
			"min_rate":     {Type: "number", Description: "Минимальная процентная ставка"},
			"max_rate":     {Type: "number", Description: "Максимальная процентная ставка"},
			"currency":     {Type: "string", Description: "Валюта продукта, например RUB или USD"},
		},
		nil,
	)
}

func (t *ProductSearchTool) Execute(_ context.Context, args map[string]any) (string, error) {
	filtered := t.filter(args)
	return formatProducts(filtered, productResultLimit), nil
}

func (t *ProductSearchTool) filter(args map[string]any) []Product {
	productType := ArgsString(args, "product_type")
	keyword := strings.ToLower(ArgsString(args, "keyword"))
	currency := ArgsString(args, "currency")
	minAmount, hasMinAmount := ArgsFloat(args, "min_amount")
	maxAmount, hasMaxAmount := ArgsFloat(args, "max_amount")
	minRate, hasMinRate := ArgsFloat(args, "min_rate")
	maxRate, hasMaxRate := ArgsFloat(args, "max_rate")

	var filtered []Product
	for _, p := range t.products {
		if productType != "" && p.ProductType != productType {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(p.Name), keyword) &&
			!strings.Contains(strings.ToLower(p.Description), keyword) {
			continue
		}
		if hasMinAmount && p.AmountMin > minAmount {
			continue
		}
		if hasMaxAmount && p.AmountMax > 0 && p.AmountMax < maxAmount {
			continue
		}
		if hasMinRate && p.RateMax < minRate {
			continue
		}
		if hasMaxRate && p.RateMin > maxRate {
			continue
		}
		if currency != "" && !strings.Contains(p.Currency, currency) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func formatProducts(products []Product, limit int) string {
	if len(products) == 0 {
		return "Продукты не найдены по заданным критериям."
	}
	if len(products) > limit {
		products = products[:limit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Найдено %d продукт(ов):\n\n", len(products))
	for i, p := range products {
		fmt.Fprintf(&sb, "**%d. %s**\n", i+1, p.Name)
		fmt.Fprintf(&sb, "   Описание: %s\n", p.Description)
		if p.RateMin > 0 || p.RateMax > 0 {
			if p.RateMin == p.RateMax {
				fmt.Fprintf(&sb, "   Ставка: %.4g%% годовых\n", p.RateMin)
			} else {
				fmt.Fprintf(&sb, "   Ставка: от %.4g%% до %.4g%% годовых\n", p.RateMin, p.RateMax)
			}
		}
		if p.AmountMin > 0 || p.AmountMax > 0 {
			currency := p.Currency
			if currency == "" {
				currency = "RUB"
			}
			if p.AmountMax > 0 {
				fmt.Fprintf(&sb, "   Сумма: от %.0f до %.0f %s\n", p.AmountMin, p.AmountMax, currency)
			} else {
				fmt.Fprintf(&sb, "   Сумма: от %.0f %s\n", p.AmountMin, currency)
			}
		}
		if p.TermMonths != "" {
			fmt.Fprintf(&sb, "   Срок: %s месяцев\n", p.TermMonths)
		}
		if len(p.Features) > 0 {
			fmt.Fprintf(&sb, "   Особенности: %s\n", strings.Join(p.Features, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var _ domain.Tool = (*ProductSearchTool)(nil)
