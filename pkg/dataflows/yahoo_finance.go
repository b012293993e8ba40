package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/dyike/StockSync/models"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog/log"
)

// YahooFinanceClient reads daily bars from the Yahoo Finance chart API.
type YahooFinanceClient struct{}

func NewYahooFinanceClient() *YahooFinanceClient {
	return &YahooFinanceClient{}
}

// GetDailyQuote returns the bar whose trading date matches date.
func (yf *YahooFinanceClient) GetDailyQuote(ctx context.Context, symbol, date string) (*models.Quote, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := day.AddDate(0, 0, -1)
	end := day.AddDate(0, 0, 2)
	params := &chart.Params{
		Symbol:   NormalizeSymbol(symbol),
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	log.Debug().Str("symbol", symbol).Str("date", date).Msg("requesting yahoo chart")
	iter := chart.Get(params)
	for iter.Next() {
		bar := iter.Bar()
		if time.Unix(int64(bar.Timestamp), 0).In(marketLocation()).Format(DateLayout) != date {
			continue
		}
		open, _ := bar.Open.Float64()
		high, _ := bar.High.Float64()
		low, _ := bar.Low.Float64()
		closePrice, _ := bar.Close.Float64()
		return &models.Quote{Open: open, High: high, Low: low, Close: closePrice}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get chart for %s: %w", symbol, err)
	}

	return nil, fmt.Errorf("%s on %s: %w", symbol, date, ErrQuoteNotFound)
}

func marketLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}
