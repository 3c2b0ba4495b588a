package render

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
)

// DefaultCurrency is used by the money filter when no code is given.
const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"INR": "₹",
	"KRW": "₩",
	"BRL": "R$",
	"CAD": "CA$",
	"AUD": "A$",
	"MXN": "MX$",
	"CHF": "CHF ",
	"SEK": "kr ",
	"NOK": "kr ",
	"DKK": "kr ",
	"PLN": "zł ",
}

// FormatMoney formats an amount expressed in the currency's minor units,
// using the ISO 4217 scale of the currency: 1234 USD is "$12.34" and
// 150000 JPY is "¥150,000".
func FormatMoney(minor int64, code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("render: unknown currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)

	negative := minor < 0
	if negative {
		minor = -minor
	}
	digits := strconv.FormatInt(minor, 10)
	if scale > 0 {
		for len(digits) <= scale {
			digits = "0" + digits
		}
	}
	whole, fraction := digits, ""
	if scale > 0 {
		whole, fraction = digits[:len(digits)-scale], digits[len(digits)-scale:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	iso := unit.String()
	symbol, ok := currencySymbols[iso]
	if !ok {
		symbol = iso + " "
	}
	b.WriteString(symbol)
	b.WriteString(groupThousands(whole))
	if fraction != "" {
		b.WriteByte('.')
		b.WriteString(fraction)
	}
	return b.String(), nil
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
