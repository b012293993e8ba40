package dataflows

import (
	"context"

	"github.com/dyike/StockSync/models"
)

// QuoteProvider returns the OHLC values for one trading day. It returns
// ErrQuoteNotFound when the provider reports no data for the day.
type QuoteProvider interface {
	GetDailyQuote(ctx context.Context, symbol, date string) (*models.Quote, error)
}
