package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/StockSync/pkg/dataflows"
)

const maxSymbolLength = 5

// ValidationError is a bad caller input, detected before any external call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || len([]rune(symbol)) > maxSymbolLength {
		return &ValidationError{Message: fmt.Sprintf("Stock symbol must be %d characters or less. You sent: %s", maxSymbolLength, symbol)}
	}
	return nil
}

func ValidateDate(date string) error {
	if _, err := time.Parse(dataflows.DateLayout, date); err != nil {
		return &ValidationError{Message: "Invalid date format. Use YYYY-MM-DD."}
	}
	return nil
}

// DefaultDate is the day before now. Today is never the default because
// intraday values are not final.
func DefaultDate(now time.Time) string {
	return now.AddDate(0, 0, -1).Format(dataflows.DateLayout)
}
