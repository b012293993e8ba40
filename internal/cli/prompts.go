package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, MSFT, YELP):",
		Help:    "At most 5 characters",
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		return validateTicker(val.(string))
	}))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

func validateTicker(s string) error {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) == 0 {
		return fmt.Errorf("ticker symbol cannot be empty")
	}
	if len(s) > 5 {
		return fmt.Errorf("ticker symbol too long (max 5 characters)")
	}
	if !tickerPattern.MatchString(s) {
		return fmt.Errorf("invalid ticker format (use letters, numbers, dots, and hyphens only)")
	}
	return nil
}

// PromptConfirmAdjust asks before lowering a purchased amount.
func PromptConfirmAdjust(symbol string, delta int64) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Remove %d units of %s from your stock record?", -delta, strings.ToUpper(symbol)),
		Default: false,
	}

	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}
