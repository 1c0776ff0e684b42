package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/n1kko777/sber-agents/internal/domain"
)

const (
	cbrRatesURL     = "https://www.cbr-xml-daily.ru/latest.js"
	currencyTimeout = 10 * time.Second
)

// RateSource fetches exchange rates relative to RUB: rates["USD"] is how many
// USD one ruble buys.
type RateSource interface {
	Rates(ctx context.Context) (map[string]float64, error)
}

// CBRRateSource pulls the daily rates published by the Central Bank of
// Russia.
type CBRRateSource struct {
	client  *http.Client
	baseURL string
}

func NewCBRRateSource() *CBRRateSource {
	return &CBRRateSource{
		client:  &http.Client{Timeout: currencyTimeout},
		baseURL: cbrRatesURL,
	}
}

type cbrResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (s *CBRRateSource) Rates(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.DependencyError{Service: "cbr", Reason: domain.ReasonTransient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason := domain.ReasonUnknown
		if resp.StatusCode >= 500 {
			reason = domain.ReasonTransient
		}
		return nil, &domain.DependencyError{
			Service: "cbr",
			Reason:  reason,
			Err:     fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.DependencyError{Service: "cbr", Reason: domain.ReasonTransient, Err: err}
	}
	var parsed cbrResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &domain.DependencyError{Service: "cbr", Reason: domain.ReasonUnknown, Err: err}
	}
	return parsed.Rates, nil
}

// CurrencyTool converts between currencies using central bank rates. All
// conversions go through the ruble because the source publishes RUB-relative
// rates only.
type CurrencyTool struct {
	source RateSource
}

func NewCurrencyTool(source RateSource) *CurrencyTool {
	return &CurrencyTool{source: source}
}

func (t *CurrencyTool) Name() string { return "currency_converter" }
func (t *CurrencyTool) Description() string {
	return "Конвертация валют по актуальным курсам ЦБ РФ. Без суммы возвращает текущий курс."
}
func (t *CurrencyTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"from_currency": {Type: "string", Description: "Исходная валюта, например RUB, USD, EUR"},
			"to_currency":   {Type: "string", Description: "Целевая валюта"},
			"amount":        {Type: "number", Description: "Сумма для конвертации (необязательно)"},
		},
		[]string{"from_currency", "to_currency"},
	)
}

func (t *CurrencyTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	from := strings.ToUpper(strings.TrimSpace(ArgsString(args, "from_currency")))
	to := strings.ToUpper(strings.TrimSpace(ArgsString(args, "to_currency")))
	if from == "" || to == "" {
		return "", fmt.Errorf("missing argument: from_currency and to_currency are required")
	}
	amount, hasAmount := ArgsFloat(args, "amount")

	rates, err := t.source.Rates(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch exchange rates: %w", err)
	}
	return convertCurrency(from, to, amount, hasAmount, rates)
}

func convertCurrency(from, to string, amount float64, hasAmount bool, rates map[string]float64) (string, error) {
	if from != "RUB" {
		if _, ok := rates[from]; !ok {
			return fmt.Sprintf("Валюта %s не поддерживается", from), nil
		}
	}
	if to != "RUB" {
		if _, ok := rates[to]; !ok {
			return fmt.Sprintf("Валюта %s не поддерживается", to), nil
		}
	}
	if from == to {
		if hasAmount {
			return fmt.Sprintf("%.2f %s = %.2f %s", amount, from, amount, to), nil
		}
		return fmt.Sprintf("1 %s = 1 %s", from, to), nil
	}

	// Rates are RUB-relative, so any pair converts through the ruble.
	var rate float64
	switch {
	case from == "RUB":
		rate = rates[to]
	case to == "RUB":
		rate = 1 / rates[from]
	default:
		rate = (1 / rates[from]) * rates[to]
	}

	rateStr := fmt.Sprintf("1 %s = %.4f %s", from, rate, to)
	if hasAmount {
		converted := amount * rate
		return fmt.Sprintf("%.2f %s = %.2f %s\n\nТекущий курс: %s", amount, from, converted, to, rateStr), nil
	}
	return rateStr, nil
}
