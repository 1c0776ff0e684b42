package tool

import (
	"context"
	"math"
	"strings"
	"testing"
)

func TestSimpleInterest(t *testing.T) {
	// 100 000 at 12% for 6 months: 100000 * 0.12 * 0.5 = 6000.
	income, total := simpleInterest(100_000, 12, 6)
	if math.Abs(income-6000) > 0.01 {
		t.Fatalf("income: expected 6000, got %f", income)
	}
	if math.Abs(total-106_000) > 0.01 {
		t.Fatalf("total: expected 106000, got %f", total)
	}
}

func TestCompoundInterest_BeatsSimple(t *testing.T) {
	simpleIncome, _ := simpleInterest(100_000, 12, 12)
	compoundIncome, _ := compoundInterest(100_000, 12, 12, 1)
	if compoundIncome <= simpleIncome {
		t.Fatalf("monthly capitalization must beat simple interest: %f <= %f",
			compoundIncome, simpleIncome)
	}
}

func TestCompoundInterest_PartialTrailingPeriod(t *testing.T) {
	// 7 months with quarterly capitalization: two full quarters plus one month.
	income, total := compoundInterest(100_000, 12, 7, 3)
	if income <= 0 || math.Abs(total-(100_000+income)) > 0.01 {
		t.Fatalf("inconsistent result: income=%f total=%f", income, total)
	}
	// Must accrue more than 6 months and less than 9 months at the same terms.
	sixIncome, _ := compoundInterest(100_000, 12, 6, 3)
	nineIncome, _ := compoundInterest(100_000, 12, 9, 3)
	if income <= sixIncome || income >= nineIncome {
		t.Fatalf("7-month income %f must sit between %f and %f", income, sixIncome, nineIncome)
	}
}

func TestDepositTax(t *testing.T) {
	if tax := depositTax(150_000); tax != 0 {
		t.Fatalf("income at the threshold is tax free, got %f", tax)
	}
	if tax := depositTax(250_000); math.Abs(tax-13_000) > 0.01 {
		t.Fatalf("expected 13%% of the excess (13000), got %f", tax)
	}
}

func TestDepositCalculator_Execute(t *testing.T) {
	calc := NewDepositCalculatorTool()
	out, err := calc.Execute(context.Background(), map[string]any{
		"amount": 100_000.0, "rate": 12.0, "term_months": 6.0, "capitalization": false,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Доход: 6000.00₽") {
		t.Fatalf("expected simple interest income in output:\n%s", out)
	}
	if strings.Contains(out, "Налог") {
		t.Fatalf("no tax expected below the threshold:\n%s", out)
	}
}

func TestDepositCalculator_TaxAppears(t *testing.T) {
	calc := NewDepositCalculatorTool()
	// 2 000 000 at 20% for 12 months simple = 400 000 income, taxable.
	out, err := calc.Execute(context.Background(), map[string]any{
		"amount": 2_000_000.0, "rate": 20.0, "term_months": 12.0, "capitalization": false,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Налог (НДФЛ 13%)") {
		t.Fatalf("expected tax line:\n%s", out)
	}
}

func TestDepositCalculator_RejectsBadInput(t *testing.T) {
	calc := NewDepositCalculatorTool()
	cases := []map[string]any{
		{"rate": 12.0, "term_months": 6.0},
		{"amount": -5.0, "rate": 12.0, "term_months": 6.0},
		{"amount": 100.0, "rate": 12.0, "term_months": 0.0},
	}
	for i, args := range cases {
		if _, err := calc.Execute(context.Background(), args); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
