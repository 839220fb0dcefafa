// Package currencyutils provides common currency and decimal operations used throughout the application.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"fjacquet/finchat/internal/flowerror"

	"github.com/shopspring/decimal"
)

var (
	currencyPattern = regexp.MustCompile(`(?i)(r\$|us\$|brl|reais|real|\$|€|£)`)
	hundred         = decimal.NewFromInt(100)
)

// ParseAmount parses a string representation of an amount into a decimal value.
// It handles Brazilian and international formats like "45,90", "1.234,56",
// "1,234.56", "R$ 1 234,56" and non-breaking space variants.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	standardized := StandardizeAmount(amountStr)
	if standardized == "" {
		return decimal.Zero, flowerror.NewInputError("amount", amountStr, flowerror.ErrEmptyInput)
	}

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, flowerror.NewInputError("amount", amountStr, fmt.Errorf("not a number: %w", err))
	}

	return amount, nil
}

// ParsePositiveAmount parses an amount and rejects zero and negative values.
// The result is rounded to cents.
func ParsePositiveAmount(amountStr string) (decimal.Decimal, error) {
	amount, err := ParseAmount(amountStr)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, flowerror.NewInputError("amount", amountStr, flowerror.ErrOutOfRange)
	}
	return amount.Round(2), nil
}

// StandardizeAmount converts various currency string formats to a standard format that can be parsed by decimal.NewFromString
func StandardizeAmount(amountStr string) string {
	amountStr = currencyPattern.ReplaceAllString(amountStr, "")

	// Any whitespace flavour (incl. U+00A0, U+202F) and apostrophes are grouping noise
	amountStr = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' || r == '’' {
			return -1
		}
		return r
	}, amountStr)

	hasComma := strings.Contains(amountStr, ",")
	hasDot := strings.Contains(amountStr, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(amountStr, ".") < strings.LastIndex(amountStr, ",") {
			// Brazilian format (1.234,56)
			amountStr = strings.ReplaceAll(amountStr, ".", "")
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			// US format (1,234.56)
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	case hasComma:
		// A single comma is always the pt-BR decimal separator
		parts := strings.Split(amountStr, ",")
		if len(parts) == 2 {
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else if thousandGroups(parts) {
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	case hasDot:
		parts := strings.Split(amountStr, ".")
		if (len(parts) == 2 && len(parts[1]) == 3) || (len(parts) > 2 && thousandGroups(parts)) {
			// "1.500" is fifteen hundred in pt-BR
			amountStr = strings.ReplaceAll(amountStr, ".", "")
		}
	}

	return amountStr
}

// thousandGroups reports whether every group after the first has three digits.
func thousandGroups(parts []string) bool {
	if len(parts) < 2 || parts[0] == "" {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// FormatBRL formats an amount the Brazilian way: "R$ 1.234,56".
func FormatBRL(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	return fmt.Sprintf("%sR$ %s,%s", sign, grouped.String(), fracPart)
}

// SplitEvenly divides total by parts, rounded half-up to cents.
func SplitEvenly(total decimal.Decimal, parts int) decimal.Decimal {
	if parts <= 1 {
		return total.Round(2)
	}
	return total.DivRound(decimal.NewFromInt(int64(parts)), 2)
}

// Percent returns part as a percentage of whole, rounded to one decimal.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, 1)
}
