package parser

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// currencySymbols maps the prefixes used on quote pages to ISO 4217 codes.
var currencySymbols = map[string]string{
	"$":   "USD",
	"€":   "EUR",
	"R$":  "BRL",
	"¥":   "JPY",
	"£":   "GBP",
	"A$":  "AUD",
	"C$":  "CAD",
	"CHF": "CHF",
	"CN¥": "CNY",
	"₹":   "INR",
}

var magnitudes = []struct {
	suffix string
	exp    int32
}{
	{"T", 12},
	{"B", 9},
	{"M", 6},
}

var errNotNumeric = errors.New("not numeric")

// CurrencyCodes lists the ISO codes the symbol table can produce.
func CurrencyCodes() []string {
	codes := make([]string, 0, len(currencySymbols))
	for _, code := range currencySymbols {
		codes = append(codes, code)
	}
	return codes
}

// ParseMarketCap converts text such as "$3.2B", "CHF150M" or "£900" into an
// absolute value and a currency code. Unrecognized prefixes are stripped and
// reported as USD.
func ParseMarketCap(text string) (float64, string, error) {
	raw := text
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")

	prefixEnd := strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.' || r == '+' || r == '-'
	})
	if prefixEnd < 0 {
		return 0, "", &ParseError{Field: "market cap", Text: raw, Err: errNotNumeric}
	}

	currency := DefaultCurrency
	if symbol := strings.TrimSpace(text[:prefixEnd]); symbol != "" {
		if code, ok := currencySymbols[symbol]; ok {
			currency = code
		}
	}

	number := strings.TrimSpace(text[prefixEnd:])
	var exp int32
	for _, m := range magnitudes {
		if strings.HasSuffix(number, m.suffix) {
			number = strings.TrimSpace(strings.TrimSuffix(number, m.suffix))
			exp = m.exp
			break
		}
	}

	value, err := decimal.NewFromString(number)
	if err != nil {
		return 0, "", &ParseError{Field: "market cap", Text: raw, Err: err}
	}
	scaled, _ := value.Mul(decimal.New(1, exp)).Float64()
	return scaled, currency, nil
}

// ParsePercent converts text such as "+1.25%", "-0.4 %" or "−3.1%" to a float.
func ParsePercent(text string) (float64, error) {
	raw := text
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "%")
	text = strings.ReplaceAll(text, "−", "-")
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimPrefix(strings.TrimSpace(text), "+")
	if text == "" {
		return 0, &ParseError{Field: "percent", Text: raw, Err: errNotNumeric}
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return 0, &ParseError{Field: "percent", Text: raw, Err: err}
	}
	f, _ := value.Float64()
	return f, nil
}
