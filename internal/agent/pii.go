package agent

import (
	"regexp"
	"strings"
)

const cardPlaceholder = "[REDACTED_CREDIT_CARD]"

// cardPattern matches 13 to 19 digit runs optionally separated by spaces or
// hyphens. Candidates are confirmed with the Luhn checksum before redaction
// so order numbers and phone-like sequences survive.
var cardPattern = regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`)

// MaskCards replaces credit card numbers in outbound text with a placeholder.
// Applied to user-facing output only; stored history keeps the original so
// tools can still act on it.
func MaskCards(text string) string {
	return cardPattern.ReplaceAllStringFunc(text, func(match string) string {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, match)
		if len(digits) < 13 || len(digits) > 19 || !luhnValid(digits) {
			return match
		}
		return cardPlaceholder
	})
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
