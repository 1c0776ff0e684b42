package tool

import (
	"context"
	"fmt"
	"strings"
)

// Personal income tax applies to deposit income above this threshold.
const (
	taxFreeIncome = 150_000.0
	taxRate       = 0.13
)

// DepositCalculatorTool computes deposit yield with simple or compounded
// interest and the Russian personal income tax on the result.
type DepositCalculatorTool struct{}

func NewDepositCalculatorTool() *DepositCalculatorTool { return &DepositCalculatorTool{} }

func (t *DepositCalculatorTool) Name() string { return "deposit_calculator" }
func (t *DepositCalculatorTool) Description() string {
	return "Расчет доходности вклада: простой процент или с капитализацией, с учетом НДФЛ на доход свыше 150 000 рублей."
}
func (t *DepositCalculatorTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"amount":                {Type: "number", Description: "Начальная сумма вклада в рублях"},
			"rate":                  {Type: "number", Description: "Годовая процентная ставка"},
			"term_months":           {Type: "number", Description: "Срок вклада в месяцах"},
			"capitalization":        {Type: "boolean", Description: "Капитализировать проценты (по умолчанию да)"},
			"capitalization_months": {Type: "number", Description: "Период капитализации в месяцах: 1, 3, 6 или 12"},
			"include_tax":           {Type: "boolean", Description: "Учитывать НДФЛ (по умолчанию да)"},
		},
		[]string{"amount", "rate", "term_months"},
	)
}

func (t *DepositCalculatorTool) Execute(_ context.Context, args map[string]any) (string, error) {
	amount, ok := ArgsFloat(args, "amount")
	if !ok || amount <= 0 {
		return "", fmt.Errorf("invalid argument: amount must be a positive number")
	}
	rate, ok := ArgsFloat(args, "rate")
	if !ok || rate <= 0 {
		return "", fmt.Errorf("invalid argument: rate must be a positive number")
	}
	termFloat, ok := ArgsFloat(args, "term_months")
	if !ok || termFloat < 1 {
		return "", fmt.Errorf("invalid argument: term_months must be at least 1")
	}
	termMonths := int(termFloat)

	capitalize := ArgsBool(args, "capitalization", true)
	includeTax := ArgsBool(args, "include_tax", true)
	capMonths := 1
	if v, ok := ArgsFloat(args, "capitalization_months"); ok && v >= 1 {
		capMonths = int(v)
	}

	var income, total float64
	if capitalize {
		income, total = compoundInterest(amount, rate, termMonths, capMonths)
	} else {
		income, total = simpleInterest(amount, rate, termMonths)
	}

	var tax float64
	if includeTax {
		tax = depositTax(income)
		total -= tax
	}
	return formatDepositCalculation(amount, rate, termMonths, income, total, capitalize, tax), nil
}

// simpleInterest accrues without capitalization: income = amount * rate * years.
func simpleInterest(amount, rate float64, termMonths int) (income, total float64) {
	income = amount * (rate / 100) * (float64(termMonths) / 12)
	return income, amount + income
}

// compoundInterest accrues per capitalization period, reinvesting each
// period's income. A trailing partial period accrues simple interest on the
// accumulated sum.
func compoundInterest(amount, rate float64, termMonths, capMonths int) (income, total float64) {
	current := amount
	periods := termMonths / capMonths
	remaining := termMonths % capMonths

	for i := 0; i < periods; i++ {
		current += current * (rate / 100) * (float64(capMonths) / 12)
	}
	if remaining > 0 {
		current += current * (rate / 100) * (float64(remaining) / 12)
	}
	return current - amount, current
}

// depositTax is 13% on income above the tax-free threshold.
func depositTax(income float64) float64 {
	if income <= taxFreeIncome {
		return 0
	}
	return (income - taxFreeIncome) * taxRate
}

func formatDepositCalculation(amount, rate float64, termMonths int, income, total float64, capitalize bool, tax float64) string {
	var sb strings.Builder
	sb.WriteString("**Расчет доходности вклада**\n\n")
	fmt.Fprintf(&sb, "Начальная сумма: %.0f₽\n", amount)
	fmt.Fprintf(&sb, "Ставка: %.4g%% годовых\n", rate)
	fmt.Fprintf(&sb, "Срок: %d мес.\n", termMonths)
	if capitalize {
		sb.WriteString("Тип: с капитализацией\n\n")
	} else {
		sb.WriteString("Тип: без капитализации\n\n")
	}
	sb.WriteString("**Результат:**\n")
	fmt.Fprintf(&sb, "Доход: %.2f₽\n", income)
	if tax > 0 {
		fmt.Fprintf(&sb, "Налог (НДФЛ 13%%): %.2f₽\n", tax)
		fmt.Fprintf(&sb, "Чистый доход: %.2f₽\n", income-tax)
	}
	fmt.Fprintf(&sb, "Итоговая сумма: %.2f₽\n", total)
	return sb.String()
}
