package agent

import "testing"

func TestMaskCards(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain card number",
			in:   "Номер карты 4111111111111111.",
			want: "Номер карты [REDACTED_CREDIT_CARD].",
		},
		{
			name: "spaced card number",
			in:   "Карта 5105 1051 0510 5100 активна",
			want: "Карта [REDACTED_CREDIT_CARD] активна",
		},
		{
			name: "hyphenated card number",
			in:   "5105-1051-0510-5100",
			want: "[REDACTED_CREDIT_CARD]",
		},
		{
			name: "luhn-invalid digits survive",
			in:   "Заказ 1234 5678 9012 3456 оформлен",
			want: "Заказ 1234 5678 9012 3456 оформлен",
		},
		{
			name: "short numbers survive",
			in:   "Счет 40817810099910004312 содержит 12345",
			want: "Счет 40817810099910004312 содержит 12345",
		},
		{
			name: "no digits",
			in:   "Обычный текст без номеров",
			want: "Обычный текст без номеров",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskCards(tc.in); got != tc.want {
				t.Fatalf("MaskCards(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
