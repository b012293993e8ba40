package dataflows

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// NormalizeSymbol converts symbol to standard format
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// ParseDate parses a YYYY-MM-DD trading date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date %q: %w", date, err)
	}
	return t, nil
}

// QuotePageURL is the page scraped for a symbol's name, performance and peers.
func QuotePageURL(baseURL, symbol string) string {
	return fmt.Sprintf("%s/investing/stock/%s?mod=u.s.-market-data",
		strings.TrimRight(baseURL, "/"),
		strings.ToLower(strings.TrimSpace(symbol)))
}
